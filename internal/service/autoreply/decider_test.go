package autoreply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kdialloh/waresponder/internal/config"
	"github.com/kdialloh/waresponder/internal/domain/models"
)

func newDecider() *Decider {
	return NewDecider(config.AutoReplyConfig{
		AllowedKinds:    []string{"text", "interactive", "button"},
		MinSenderLength: 10,
		CacheTTL:        time.Minute,
	}, "phone-1")
}

func event(kind, sender, recipient string) models.InboundEvent {
	return models.InboundEvent{
		EventID:    "id-1",
		Kind:       kind,
		Sender:     sender,
		Recipient:  recipient,
		OccurredAt: time.Now().Unix(),
	}
}

func TestQualifiesAcceptsAllowedKinds(t *testing.T) {
	d := newDecider()

	assert.True(t, d.Qualifies(event("text", "5511999999999", "phone-1")))
	assert.True(t, d.Qualifies(event("interactive", "5511999999999", "phone-1")))
	assert.True(t, d.Qualifies(event("button", "5511999999999", "phone-1")))
}

func TestQualifiesRejectsDisallowedKinds(t *testing.T) {
	d := newDecider()

	for _, kind := range []string{"image", "audio", "location", "reactions", "unknown_field"} {
		assert.False(t, d.Qualifies(event(kind, "5511999999999", "phone-1")), "kind %s", kind)
	}
}

func TestQualifiesRejectsStatusKindsEvenWhenConfigured(t *testing.T) {
	d := NewDecider(config.AutoReplyConfig{
		AllowedKinds:    []string{"text", "delivered", "read"},
		MinSenderLength: 10,
	}, "phone-1")

	for _, kind := range []string{"sent", "delivered", "read", "failed"} {
		assert.False(t, d.Qualifies(event(kind, "5511999999999", "phone-1")), "kind %s", kind)
	}
}

func TestQualifiesRejectsImplausibleSenders(t *testing.T) {
	d := newDecider()

	assert.False(t, d.Qualifies(event("text", "", "phone-1")))
	assert.False(t, d.Qualifies(event("text", "unknown", "phone-1")))
	assert.False(t, d.Qualifies(event("text", "12345", "phone-1")))
}

func TestQualifiesRejectsOtherBusinessLines(t *testing.T) {
	d := newDecider()

	assert.False(t, d.Qualifies(event("text", "5511999999999", "phone-2")))
	assert.False(t, d.Qualifies(event("text", "5511999999999", "")))
}

func TestShouldReply(t *testing.T) {
	d := newDecider()
	ev := event("text", "5511999999999", "phone-1")

	assert.False(t, d.ShouldReply(ev, nil))
	assert.False(t, d.ShouldReply(ev, &models.ResponseConfig{Enabled: false, TemplateMessage: "Hello"}))
	assert.False(t, d.ShouldReply(ev, &models.ResponseConfig{Enabled: true}))
	assert.True(t, d.ShouldReply(ev, &models.ResponseConfig{Enabled: true, TemplateMessage: "Hello"}))
}

func TestShouldReplyTimeWindow(t *testing.T) {
	d := newDecider()
	d.now = func() time.Time { return time.Unix(1700100000, 0) }

	cfg := &models.ResponseConfig{Enabled: true, TemplateMessage: "Hello", TimeWindowHours: 24}

	recent := models.InboundEvent{Kind: "text", OccurredAt: 1700090000}
	assert.True(t, d.ShouldReply(recent, cfg))

	stale := models.InboundEvent{Kind: "text", OccurredAt: 1700000000}
	assert.False(t, d.ShouldReply(stale, cfg))

	// Events without a parseable timestamp are not filtered by the window.
	unknown := models.InboundEvent{Kind: "text", OccurredAt: 0}
	assert.True(t, d.ShouldReply(unknown, cfg))
}
