package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
)

type RecipientRepositoryInterface interface {
	ListPending(campaignID uuid.UUID, limit int) ([]model.Recipient, error)
	Claim(campaignID uuid.UUID, position int) (bool, error)
	MarkSent(campaignID uuid.UUID, position int, sentAt time.Time) error
	MarkFailed(campaignID uuid.UUID, position int, lastError string) error
	RequeueFailed(campaignID uuid.UUID) (int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

// ListPending returns pending recipients in list order. Earlier positions are
// always attempted before later ones within a tick's quota.
func (r *RecipientRepository) ListPending(campaignID uuid.UUID, limit int) ([]model.Recipient, error) {
	query := `
        SELECT campaign_id, position, destination, status, sent_at, last_error
        FROM campaign_recipients
        WHERE campaign_id=$1 AND status=$2
        ORDER BY position ASC
        LIMIT $3
    `
	rows, err := r.DB.Query(query, campaignID, model.RecipientPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		var lastError sql.NullString
		if err := rows.Scan(&rec.CampaignID, &rec.Position, &rec.Destination, &rec.Status, &rec.SentAt, &lastError); err != nil {
			return nil, err
		}
		rec.LastError = lastError.String
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// Claim flips one recipient pending -> sending. The conditional update is the
// compare-and-set that makes an overlapping tick lose the race instead of
// double-sending.
func (r *RecipientRepository) Claim(campaignID uuid.UUID, position int) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE campaign_recipients SET status=$1
        WHERE campaign_id=$2 AND position=$3 AND status=$4
    `, model.RecipientSending, campaignID, position, model.RecipientPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkSent records the outcome and the campaign aggregates in one
// transaction: sent_count stays equal to the number of sent rows, and
// last_sent_at is durable before the tick moves on, because the next tick's
// pacing depends on it.
func (r *RecipientRepository) MarkSent(campaignID uuid.UUID, position int, sentAt time.Time) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
        UPDATE campaign_recipients SET status=$1, sent_at=$2, last_error=NULL
        WHERE campaign_id=$3 AND position=$4 AND status=$5
    `, model.RecipientSent, sentAt, campaignID, position, model.RecipientSending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Not claimed by us; leave the aggregates alone.
		return tx.Commit()
	}

	if _, err := tx.Exec(`
        UPDATE campaigns SET sent_count=sent_count+1, last_sent_at=$1 WHERE id=$2
    `, sentAt, campaignID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RecipientRepository) MarkFailed(campaignID uuid.UUID, position int, lastError string) error {
	_, err := r.DB.Exec(`
        UPDATE campaign_recipients SET status=$1, last_error=$2
        WHERE campaign_id=$3 AND position=$4 AND status=$5
    `, model.RecipientFailed, lastError, campaignID, position, model.RecipientSending)
	return err
}

// RequeueFailed resets failed recipients to pending. This is the manual
// recovery path for an operator; nothing calls it automatically.
func (r *RecipientRepository) RequeueFailed(campaignID uuid.UUID) (int, error) {
	res, err := r.DB.Exec(`
        UPDATE campaign_recipients SET status=$1, last_error=NULL
        WHERE campaign_id=$2 AND status=$3
    `, model.RecipientPending, campaignID, model.RecipientFailed)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
