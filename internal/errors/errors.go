// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID uuid.UUID
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id uuid.UUID) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// IsCampaignNotFound reports whether err wraps an ErrCampaignNotFound.
func IsCampaignNotFound(err error) bool {
	var nf *ErrCampaignNotFound
	return errors.As(err, &nf)
}

type ErrTenantNotFound struct {
	TenantID string
}

func (e *ErrTenantNotFound) Error() string {
	return fmt.Sprintf("tenant %s not found", e.TenantID)
}

func NewTenantNotFound(id string) error {
	return &ErrTenantNotFound{TenantID: id}
}

// ErrInvalidTransition is returned when a status change would leave a
// terminal state or skip an edge of the campaign state machine.
type ErrInvalidTransition struct {
	From, To string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid campaign transition %s -> %s", e.From, e.To)
}

func NewInvalidTransition(from, to string) error {
	return &ErrInvalidTransition{From: from, To: to}
}

// ErrTooManyRecipients is returned when a create request exceeds the
// fixed recipient cap.
type ErrTooManyRecipients struct {
	Count, Max int
}

func (e *ErrTooManyRecipients) Error() string {
	return fmt.Sprintf("too many recipients: %d (max %d)", e.Count, e.Max)
}

func NewTooManyRecipients(count, max int) error {
	return &ErrTooManyRecipients{Count: count, Max: max}
}
