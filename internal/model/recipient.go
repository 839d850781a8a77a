// internal/model/recipient.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Recipient delivery statuses. "sending" is the in-flight claim marker so a
// duplicated tick can never dispatch the same recipient twice.
const (
	RecipientPending = "pending"
	RecipientSending = "sending"
	RecipientSent    = "sent"
	RecipientFailed  = "failed"
)

// Recipient is one addressable send target within a campaign. Recipients are
// stored one row each, keyed by (campaign_id, position), so marking one sent
// is a single-row update rather than a rewrite of the whole list.
type Recipient struct {
	CampaignID  uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	Position    int        `db:"position" json:"position"`
	Destination string     `db:"destination" json:"destination"`
	Status      string     `db:"status" json:"status"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
}
