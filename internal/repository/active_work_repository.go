package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
)

type ActiveWorkRepositoryInterface interface {
	QueryDue(now time.Time, limit int) ([]model.ActiveWorkEntry, error)
	Upsert(e model.ActiveWorkEntry) error
	Remove(campaignID uuid.UUID) error
}

// ActiveWorkRepository is the denormalized discovery index. The engine only
// ever reads this table to find work, never the campaigns table itself, so
// idle ticks cost one bounded query regardless of how many campaigns exist.
type ActiveWorkRepository struct {
	DB *sql.DB
}

// QueryDue returns active entries whose scheduled time has arrived, oldest
// schedule first so the longest-waiting campaigns win when limit truncates.
func (r *ActiveWorkRepository) QueryDue(now time.Time, limit int) ([]model.ActiveWorkEntry, error) {
	query := `
        SELECT campaign_id, tenant_id, status, scheduled_at, created_at
        FROM active_campaigns
        WHERE status IN ($1, $2) AND scheduled_at <= $3
        ORDER BY scheduled_at ASC
        LIMIT $4
    `
	rows, err := r.DB.Query(query, model.StatusScheduled, model.StatusRunning, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.ActiveWorkEntry{}
	for rows.Next() {
		var e model.ActiveWorkEntry
		if err := rows.Scan(&e.CampaignID, &e.TenantID, &e.Status, &e.ScheduledAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ActiveWorkRepository) Upsert(e model.ActiveWorkEntry) error {
	query := `
        INSERT INTO active_campaigns (campaign_id, tenant_id, status, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (campaign_id)
        DO UPDATE SET status=EXCLUDED.status, scheduled_at=EXCLUDED.scheduled_at
    `
	_, err := r.DB.Exec(query, e.CampaignID, e.TenantID, e.Status, e.ScheduledAt, e.CreatedAt)
	return err
}

func (r *ActiveWorkRepository) Remove(campaignID uuid.UUID) error {
	_, err := r.DB.Exec(`DELETE FROM active_campaigns WHERE campaign_id=$1`, campaignID)
	return err
}

var _ ActiveWorkRepositoryInterface = (*ActiveWorkRepository)(nil)
