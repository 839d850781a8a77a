// Package pacing implements the per-campaign anti-ban throttle: a minimum
// interval, plus jitter, between consecutive sends on the same campaign.
// Campaigns pace themselves independently; there is no shared token bucket,
// so overall throughput scales with the number of running campaigns.
package pacing

import (
	"math/rand"
	"time"
)

type Controller struct {
	MinInterval time.Duration
	MaxJitter   time.Duration

	// MaxPerTick bounds how many sends one campaign may make within a single
	// tick once its interval has elapsed. With a positive interval anything
	// above 1 would burst, so 1 is the working value.
	MaxPerTick int

	rnd *rand.Rand
}

func New(minInterval, maxJitter time.Duration) *Controller {
	return &Controller{
		MinInterval: minInterval,
		MaxJitter:   maxJitter,
		MaxPerTick:  1,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allow returns how many sends the campaign may make right now. The first
// send of a campaign (no prior successful send) is never deferred. After
// that, zero sends are allowed until at least MinInterval (+ random jitter up
// to MaxJitter) has passed since the last successful send; the next tick
// simply retries.
func (p *Controller) Allow(lastSentAt *time.Time, now time.Time) int {
	quota := p.MaxPerTick
	if quota <= 0 {
		quota = 1
	}
	if lastSentAt == nil || lastSentAt.IsZero() {
		return quota
	}

	required := p.MinInterval
	if p.MaxJitter > 0 {
		required += time.Duration(p.rnd.Int63n(int64(p.MaxJitter) + 1))
	}
	if now.Sub(*lastSentAt) < required {
		return 0
	}
	return quota
}
