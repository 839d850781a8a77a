// internal/model/campaign.go
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Campaign statuses. Completed and Canceled are terminal.
const (
	StatusScheduled = "scheduled"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusError     = "error"
)

// Message kinds supported by the outbound channel.
const (
	KindText  = "text"
	KindImage = "image"
	KindAudio = "audio"
	KindVideo = "video"
)

// MaxRecipients caps the recipient list fixed at campaign creation.
const MaxRecipients = 200

type Campaign struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	TenantID        string     `db:"tenant_id" json:"tenant_id"`
	Name            string     `db:"name" json:"name"`
	Kind            string     `db:"kind" json:"kind"`
	Message         string     `db:"message" json:"message"`
	MediaURL        string     `db:"media_url" json:"media_url,omitempty"`
	ScheduledDate   time.Time  `db:"scheduled_date" json:"scheduled_date"`
	StartTime       string     `db:"start_time" json:"start_time"` // "HH:MM", local time-of-day
	Status          string     `db:"status" json:"status"`
	TotalRecipients int        `db:"total_recipients" json:"total_recipients"`
	SentCount       int        `db:"sent_count" json:"sent_count"`
	LastSentAt      *time.Time `db:"last_sent_at" json:"last_sent_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CanceledAt      *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
}

// IsTerminal reports whether no further status change is allowed.
func (c *Campaign) IsTerminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusCanceled
}

// CanTransition reports whether moving to the given status is a legal
// forward edge of the campaign state machine.
func (c *Campaign) CanTransition(to string) bool {
	switch to {
	case StatusRunning:
		return c.Status == StatusScheduled
	case StatusCompleted:
		return c.Status == StatusRunning
	case StatusCanceled, StatusError:
		return c.Status == StatusScheduled || c.Status == StatusRunning
	}
	return false
}

// StartsAt combines the scheduled date with the "HH:MM" start time in the
// date's location. The time-of-day matters: a campaign scheduled for 14:00
// must not begin at midnight of the same day.
func (c *Campaign) StartsAt() (time.Time, error) {
	parts := strings.SplitN(c.StartTime, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid start time %q", c.StartTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid start time %q", c.StartTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid start time %q", c.StartTime)
	}
	d := c.ScheduledDate
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location()), nil
}

// ValidKind reports whether k is a supported message kind.
func ValidKind(k string) bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo:
		return true
	}
	return false
}
