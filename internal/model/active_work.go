// internal/model/active_work.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// ActiveWorkEntry is the denormalized pointer the engine discovers work
// through. One row exists iff the campaign's status is scheduled or running;
// it is written in the same transaction as every campaign status change so
// the engine never scans the campaigns table.
type ActiveWorkEntry struct {
	CampaignID  uuid.UUID `db:"campaign_id" json:"campaign_id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	Status      string    `db:"status" json:"status"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Tenant is the read-only channel configuration consumed by the engine.
// Campaigns of a tenant whose channel is disconnected are skipped, not failed.
type Tenant struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	InstanceID string `db:"instance_id" json:"instance_id"`
	APIToken   string `db:"api_token" json:"-"`
	Connected  bool   `db:"connected" json:"connected"`
}
