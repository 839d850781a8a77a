// internal/service/campaign_service.go
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/CesarNXT/vitoria4u-v2-sub002/internal/errors"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/repository"
)

// CampaignService owns the lifecycle operations around the engine: creating
// a campaign together with its index entry, canceling, rescheduling,
// deleting, and the manual failed-recipient requeue.
type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	IndexRepo     repository.ActiveWorkRepositoryInterface
	TenantRepo    repository.TenantRepositoryInterface
	Log           zerolog.Logger
}

type CreateCampaignInput struct {
	TenantID      string   `json:"tenant_id"`
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	Message       string   `json:"message"`
	MediaURL      string   `json:"media_url"`
	ScheduledDate string   `json:"scheduled_date"` // "2006-01-02"
	StartTime     string   `json:"start_time"`     // "HH:MM"
	Recipients    []string `json:"recipients"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	if !model.ValidKind(in.Kind) {
		return nil, fmt.Errorf("invalid message kind %q", in.Kind)
	}
	if in.Kind == model.KindText && strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("message is required for text campaigns")
	}
	if in.Kind != model.KindText && strings.TrimSpace(in.MediaURL) == "" {
		return nil, fmt.Errorf("media_url is required for %s campaigns", in.Kind)
	}

	tenant, err := s.TenantRepo.GetByID(in.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, appErrors.NewTenantNotFound(in.TenantID)
	}

	date, err := time.Parse("2006-01-02", in.ScheduledDate)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled_date: %w", err)
	}

	// Dedupe while preserving list order; the cap applies to unique targets.
	seen := map[string]bool{}
	recipients := []model.Recipient{}
	for _, dest := range in.Recipients {
		dest = strings.TrimSpace(dest)
		if dest == "" || seen[dest] {
			continue
		}
		seen[dest] = true
		recipients = append(recipients, model.Recipient{Destination: dest})
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	if len(recipients) > model.MaxRecipients {
		return nil, appErrors.NewTooManyRecipients(len(recipients), model.MaxRecipients)
	}

	c := &model.Campaign{
		TenantID:      in.TenantID,
		Name:          in.Name,
		Kind:          in.Kind,
		Message:       in.Message,
		MediaURL:      in.MediaURL,
		ScheduledDate: date,
		StartTime:     in.StartTime,
		Status:        model.StatusScheduled,
	}
	if _, err := c.StartsAt(); err != nil {
		return nil, err
	}

	if err := s.CampaignRepo.Create(c, recipients); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("campaign_id", c.ID.String()).
		Str("tenant_id", c.TenantID).
		Int("recipients", c.TotalRecipients).
		Msg("campaign created")
	return c, nil
}

// CancelCampaign moves a scheduled or running campaign to canceled and drops
// its index entry so no later tick picks it up. Already-sent recipients keep
// their status; pending ones stay pending forever.
func (s *CampaignService) CancelCampaign(id uuid.UUID) error {
	err := s.CampaignRepo.TransitionStatus(id,
		[]string{model.StatusScheduled, model.StatusRunning},
		model.StatusCanceled, time.Now())
	if err != nil {
		return err
	}
	s.Log.Info().Str("campaign_id", id.String()).Msg("campaign canceled")
	return nil
}

// Reschedule moves a still-scheduled campaign's start and refreshes the
// index entry so discovery sees the new time.
func (s *CampaignService) Reschedule(id uuid.UUID, scheduledDate, startTime string) (*model.Campaign, error) {
	date, err := time.Parse("2006-01-02", scheduledDate)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled_date: %w", err)
	}
	probe := model.Campaign{ScheduledDate: date, StartTime: startTime}
	startsAt, err := probe.StartsAt()
	if err != nil {
		return nil, err
	}

	c, err := s.CampaignRepo.Reschedule(id, date, startTime)
	if err != nil {
		return nil, err
	}

	if err := s.IndexRepo.Upsert(model.ActiveWorkEntry{
		CampaignID:  c.ID,
		TenantID:    c.TenantID,
		Status:      c.Status,
		ScheduledAt: startsAt,
		CreatedAt:   c.CreatedAt,
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) DeleteCampaign(id uuid.UUID) error {
	if err := s.CampaignRepo.Delete(id); err != nil {
		return err
	}
	s.Log.Info().Str("campaign_id", id.String()).Msg("campaign deleted")
	return nil
}

// GetCampaignDetails fetches a campaign with per-status recipient counts.
func (s *CampaignService) GetCampaignDetails(id uuid.UUID) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetStats(id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: c, Stats: stats}, nil
}

// RequeueFailed resets failed recipients of a still-active campaign back to
// pending so the next tick retries them. Completed and Canceled are terminal;
// their recipients are never touched again. This is the only path back from
// failed, and nothing triggers it automatically.
func (s *CampaignService) RequeueFailed(id uuid.UUID) (int, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return 0, err
	}
	if c.IsTerminal() {
		return 0, appErrors.NewInvalidTransition(c.Status, model.StatusRunning)
	}

	n, err := s.RecipientRepo.RequeueFailed(id)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Info().Str("campaign_id", id.String()).Int("requeued", n).Msg("failed recipients requeued")
	}
	return n, nil
}
