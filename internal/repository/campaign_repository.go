package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/CesarNXT/vitoria4u-v2-sub002/internal/errors"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign + recipients + index entry, one transaction
	Create(c *model.Campaign, recipients []model.Recipient) error
	GetByID(id uuid.UUID) (*model.Campaign, error)

	// TransitionStatus moves a campaign along the state machine and keeps the
	// active-work index in sync in the same transaction.
	TransitionStatus(id uuid.UUID, from []string, to string, at time.Time) error
	Reschedule(id uuid.UUID, date time.Time, startTime string) (*model.Campaign, error)
	Delete(id uuid.UUID) error
	GetStats(campaignID uuid.UUID) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign lifecycle ======================

func (r *CampaignRepository) Create(c *model.Campaign, recipients []model.Recipient) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusScheduled
	}
	c.TotalRecipients = len(recipients)

	startsAt, err := c.StartsAt()
	if err != nil {
		return err
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaigns
            (id, tenant_id, name, kind, message, media_url, scheduled_date, start_time,
             status, total_recipients, sent_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11)
    `
	if _, err := tx.Exec(query,
		c.ID, c.TenantID, c.Name, c.Kind, c.Message, c.MediaURL,
		c.ScheduledDate, c.StartTime, c.Status, c.TotalRecipients, c.CreatedAt,
	); err != nil {
		return err
	}

	for i := range recipients {
		recipients[i].CampaignID = c.ID
		recipients[i].Position = i
		recipients[i].Status = model.RecipientPending
		if _, err := tx.Exec(`
            INSERT INTO campaign_recipients (campaign_id, position, destination, status)
            VALUES ($1, $2, $3, $4)
        `, c.ID, i, recipients[i].Destination, model.RecipientPending); err != nil {
			return err
		}
	}

	// Index entry is born with the campaign, never after it.
	if _, err := tx.Exec(`
        INSERT INTO active_campaigns (campaign_id, tenant_id, status, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, c.ID, c.TenantID, c.Status, startsAt, c.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *CampaignRepository) GetByID(id uuid.UUID) (*model.Campaign, error) {
	query := `
        SELECT id, tenant_id, name, kind, message, media_url, scheduled_date, start_time,
               status, total_recipients, sent_count, last_sent_at,
               created_at, started_at, completed_at, canceled_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Kind, &c.Message, &c.MediaURL,
		&c.ScheduledDate, &c.StartTime, &c.Status, &c.TotalRecipients, &c.SentCount,
		&c.LastSentAt, &c.CreatedAt, &c.StartedAt, &c.CompletedAt, &c.CanceledAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

// TransitionStatus performs the status update and the matching index write
// atomically: the entry is updated while the campaign stays active and
// deleted exactly when it becomes terminal. The conditional WHERE makes the
// call a no-op-with-error if the campaign already left the expected states.
func (r *CampaignRepository) TransitionStatus(id uuid.UUID, from []string, to string, at time.Time) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stampCol string
	switch to {
	case model.StatusRunning:
		stampCol = "started_at"
	case model.StatusCompleted:
		stampCol = "completed_at"
	case model.StatusCanceled:
		stampCol = "canceled_at"
	}

	query := `UPDATE campaigns SET status=$1 WHERE id=$2 AND status = ANY($3)`
	if stampCol != "" {
		query = `UPDATE campaigns SET status=$1, ` + stampCol + `=$4 WHERE id=$2 AND status = ANY($3)`
	}
	args := []interface{}{to, id, pq.Array(from)}
	if stampCol != "" {
		args = append(args, at)
	}
	res, err := tx.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already past the expected states.
		var current string
		if err := tx.QueryRow(`SELECT status FROM campaigns WHERE id=$1`, id).Scan(&current); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.NewCampaignNotFound(id)
			}
			return err
		}
		return appErrors.NewInvalidTransition(current, to)
	}

	switch to {
	case model.StatusScheduled, model.StatusRunning:
		if _, err := tx.Exec(`UPDATE active_campaigns SET status=$1 WHERE campaign_id=$2`, to, id); err != nil {
			return err
		}
	default:
		if _, err := tx.Exec(`DELETE FROM active_campaigns WHERE campaign_id=$1`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignRepository) Reschedule(id uuid.UUID, date time.Time, startTime string) (*model.Campaign, error) {
	query := `
        UPDATE campaigns SET scheduled_date=$1, start_time=$2
        WHERE id=$3 AND status=$4
    `
	res, err := r.DB.Exec(query, date, startTime, id, model.StatusScheduled)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		c, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		return nil, appErrors.NewInvalidTransition(c.Status, model.StatusScheduled)
	}
	return r.GetByID(id)
}

// Delete removes the campaign; recipients go with it via FK cascade. The
// index delete is defensive: a correctly maintained index has no entry for a
// terminal campaign, but a lingering one must not survive its campaign.
func (r *CampaignRepository) Delete(id uuid.UUID) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	if _, err := tx.Exec(`DELETE FROM active_campaigns WHERE campaign_id=$1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CampaignRepository) GetStats(campaignID uuid.UUID) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sending": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
