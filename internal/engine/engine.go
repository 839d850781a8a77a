// Package engine runs one bounded campaign-processing tick: discover due
// work through the active-work index, advance each campaign's state machine,
// apply pacing, dispatch to pending recipients and persist the outcomes.
// Ticks hold no state across invocations; progress lives entirely in
// recipient and campaign rows, so a crashed tick is resumed by the next one.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/dispatcher"
	appErrors "github.com/CesarNXT/vitoria4u-v2-sub002/internal/errors"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/events"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/repository"
)

type Config struct {
	// DiscoveryLimit bounds how many due index entries one tick picks up.
	DiscoveryLimit int
	// GlobalSendCap bounds total sends across all campaigns in one tick.
	GlobalSendCap int
	// PendingBatch bounds how many pending recipients are loaded per campaign.
	PendingBatch int
}

func (c Config) withDefaults() Config {
	if c.DiscoveryLimit <= 0 {
		c.DiscoveryLimit = 30
	}
	if c.GlobalSendCap <= 0 {
		c.GlobalSendCap = 50
	}
	if c.PendingBatch <= 0 {
		c.PendingBatch = 25
	}
	return c
}

// TickResult is the response contract of one tick. Processed counts
// successful sends; Errors counts failed sends plus campaign-level
// processing errors.
type TickResult struct {
	Processed        int    `json:"processed"`
	Errors           int    `json:"errors"`
	CampaignsChecked int    `json:"campaignsChecked"`
	CampaignsUpdated int    `json:"campaignsUpdated"`
	DurationMs       int64  `json:"durationMs"`
	Message          string `json:"message"`
}

// Pacer decides how many sends a campaign may make right now.
type Pacer interface {
	Allow(lastSentAt *time.Time, now time.Time) int
}

type Engine struct {
	Campaigns  repository.CampaignRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Index      repository.ActiveWorkRepositoryInterface
	Tenants    repository.TenantRepositoryInterface
	Dispatcher dispatcher.Sender
	Pacer      Pacer
	Events     events.Publisher
	Cfg        Config
	Log        zerolog.Logger

	// Now is the tick clock, swappable in tests.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Tick executes exactly one bounded pass. Only a failure to query the index
// aborts the tick and propagates; every campaign- and recipient-level error
// is recorded in the result and isolated from the rest of the batch.
func (e *Engine) Tick(ctx context.Context) (*TickResult, error) {
	cfg := e.Cfg.withDefaults()
	wallStart := time.Now()
	now := e.now()
	res := &TickResult{}

	// Fast path: one bounded index read. With no due work the tick is done
	// before any campaign row is touched.
	entries, err := e.Index.QueryDue(now, cfg.DiscoveryLimit)
	if err != nil {
		return nil, fmt.Errorf("query due campaigns: %w", err)
	}
	if len(entries) == 0 {
		res.Message = "no due campaigns"
		res.DurationMs = time.Since(wallStart).Milliseconds()
		return res, nil
	}

	budget := cfg.GlobalSendCap
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		res.CampaignsChecked++
		if err := e.processCampaign(ctx, entry, &budget, res); err != nil {
			res.Errors++
			e.Log.Error().Err(err).
				Str("campaign_id", entry.CampaignID.String()).
				Str("tenant_id", entry.TenantID).
				Msg("campaign processing failed")
		}
	}

	res.DurationMs = time.Since(wallStart).Milliseconds()
	res.Message = fmt.Sprintf("checked %d campaigns, sent %d, %d errors",
		res.CampaignsChecked, res.Processed, res.Errors)
	return res, nil
}

func (e *Engine) processCampaign(ctx context.Context, entry model.ActiveWorkEntry, budget *int, res *TickResult) error {
	now := e.now()

	c, err := e.Campaigns.GetByID(entry.CampaignID)
	if err != nil {
		if appErrors.IsCampaignNotFound(err) {
			// Stale pointer: the campaign was deleted underneath the index.
			// Heal the index and move on, this is not a tick error.
			e.Log.Warn().
				Str("campaign_id", entry.CampaignID.String()).
				Msg("removing orphan index entry")
			return e.Index.Remove(entry.CampaignID)
		}
		return err
	}

	if c.IsTerminal() || c.Status == model.StatusError {
		// Should have left the index when it became terminal; heal it now.
		return e.Index.Remove(c.ID)
	}

	if c.Status == model.StatusScheduled {
		startsAt, err := c.StartsAt()
		if err != nil {
			res.CampaignsUpdated++
			if terr := e.Campaigns.TransitionStatus(c.ID,
				[]string{model.StatusScheduled, model.StatusRunning},
				model.StatusError, now); terr != nil {
				return terr
			}
			return fmt.Errorf("unparseable start time: %w", err)
		}
		if now.Before(startsAt) {
			// Due by date but not yet by time-of-day.
			return nil
		}
		if err := e.Campaigns.TransitionStatus(c.ID,
			[]string{model.StatusScheduled}, model.StatusRunning, now); err != nil {
			return err
		}
		c.Status = model.StatusRunning
		res.CampaignsUpdated++
		e.Log.Info().
			Str("campaign_id", c.ID.String()).
			Str("tenant_id", c.TenantID).
			Msg("campaign started")
	}

	cfg := e.Cfg.withDefaults()
	pending, err := e.Recipients.ListPending(c.ID, cfg.PendingBatch)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		if err := e.Campaigns.TransitionStatus(c.ID,
			[]string{model.StatusRunning}, model.StatusCompleted, now); err != nil {
			return err
		}
		res.CampaignsUpdated++
		e.Log.Info().
			Str("campaign_id", c.ID.String()).
			Int("sent", c.SentCount).
			Msg("campaign completed")
		return nil
	}

	quota := e.Pacer.Allow(c.LastSentAt, now)
	if quota == 0 {
		return nil
	}
	if quota > *budget {
		quota = *budget
	}
	if quota > len(pending) {
		quota = len(pending)
	}
	if quota == 0 {
		return nil
	}

	tenant, err := e.Tenants.GetByID(c.TenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return appErrors.NewTenantNotFound(c.TenantID)
	}
	if !tenant.Connected {
		e.Log.Warn().
			Str("campaign_id", c.ID.String()).
			Str("tenant_id", c.TenantID).
			Msg("channel disconnected, skipping campaign this tick")
		return nil
	}

	creds := dispatcher.Credentials{InstanceID: tenant.InstanceID, APIToken: tenant.APIToken}
	payload := dispatcher.Payload{Kind: c.Kind, Text: c.Message, MediaURL: c.MediaURL}

	for _, rec := range pending[:quota] {
		e.dispatchOne(ctx, c, creds, payload, rec, res)
		*budget--
	}
	return nil
}

// dispatchOne claims a recipient, sends, and persists the outcome. The claim
// is a compare-and-set: if an overlapping tick already took this recipient,
// we silently lose and nothing is sent twice.
func (e *Engine) dispatchOne(ctx context.Context, c *model.Campaign, creds dispatcher.Credentials, payload dispatcher.Payload, rec model.Recipient, res *TickResult) {
	claimed, err := e.Recipients.Claim(c.ID, rec.Position)
	if err != nil {
		res.Errors++
		e.Log.Error().Err(err).
			Str("campaign_id", c.ID.String()).
			Int("position", rec.Position).
			Msg("failed to claim recipient")
		return
	}
	if !claimed {
		return
	}

	ev := events.DeliveryEvent{
		CampaignID:  c.ID,
		TenantID:    c.TenantID,
		Destination: rec.Destination,
		Position:    rec.Position,
	}

	if sendErr := e.Dispatcher.Send(ctx, creds, rec.Destination, payload); sendErr != nil {
		res.Errors++
		if err := e.Recipients.MarkFailed(c.ID, rec.Position, sendErr.Error()); err != nil {
			e.Log.Error().Err(err).
				Str("campaign_id", c.ID.String()).
				Int("position", rec.Position).
				Msg("failed to persist failed status")
		}
		ev.Status = model.RecipientFailed
		ev.Error = sendErr.Error()
		ev.At = e.now()
		_ = e.Events.PublishDelivery(ev)
		e.Log.Warn().Err(sendErr).
			Str("campaign_id", c.ID.String()).
			Str("destination", rec.Destination).
			Msg("send failed")
		return
	}

	sentAt := e.now()
	if err := e.Recipients.MarkSent(c.ID, rec.Position, sentAt); err != nil {
		// The message went out but the mark did not stick. Count it as an
		// error; the recipient stays claimed and an operator decides.
		res.Errors++
		e.Log.Error().Err(err).
			Str("campaign_id", c.ID.String()).
			Int("position", rec.Position).
			Msg("failed to persist sent status")
		return
	}
	res.Processed++
	ev.Status = model.RecipientSent
	ev.At = sentAt
	_ = e.Events.PublishDelivery(ev)
}
