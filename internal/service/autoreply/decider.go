// Package autoreply decides which normalized events receive an automatic
// reply.
package autoreply

import (
	"time"

	"github.com/kdialloh/waresponder/internal/config"
	"github.com/kdialloh/waresponder/internal/domain/models"
)

// Decider applies the reply qualification rules in order; the first failing
// rule rejects the event.
type Decider struct {
	allowedKinds    map[string]struct{}
	minSenderLength int
	businessLine    string

	now func() time.Time
}

// NewDecider builds a decider for one deployment. businessLine is the
// phone-number id replies may be triggered on; events addressed to any other
// line never qualify.
func NewDecider(cfg config.AutoReplyConfig, businessLine string) *Decider {
	allowed := make(map[string]struct{}, len(cfg.AllowedKinds))
	for _, kind := range cfg.AllowedKinds {
		allowed[kind] = struct{}{}
	}
	return &Decider{
		allowedKinds:    allowed,
		minSenderLength: cfg.MinSenderLength,
		businessLine:    businessLine,
		now:             time.Now,
	}
}

// Qualifies checks the event-shape rules: allowed kind, plausible sender
// phone and matching business line. Delivery statuses are rejected even when
// configured into the allow-list.
func (d *Decider) Qualifies(event models.InboundEvent) bool {
	if event.IsStatus() {
		return false
	}
	if _, ok := d.allowedKinds[event.Kind]; !ok {
		return false
	}

	if event.Sender == "" || event.Sender == models.SenderUnknown {
		return false
	}
	if len(event.Sender) < d.minSenderLength {
		return false
	}

	return event.Recipient == d.businessLine
}

// ShouldReply applies the stored configuration to a qualifying event: replies
// are off when no configuration exists, when disabled, or when the event falls
// outside the optional recency window.
func (d *Decider) ShouldReply(event models.InboundEvent, cfg *models.ResponseConfig) bool {
	if cfg == nil || !cfg.Enabled || cfg.TemplateMessage == "" {
		return false
	}

	if cfg.TimeWindowHours > 0 && event.OccurredAt > 0 {
		cutoff := d.now().Add(-time.Duration(cfg.TimeWindowHours) * time.Hour)
		if time.Unix(event.OccurredAt, 0).Before(cutoff) {
			return false
		}
	}

	return true
}
