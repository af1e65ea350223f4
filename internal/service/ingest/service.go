// Package ingest turns webhook deliveries into stored event records and
// dispatches automatic replies for qualifying messages.
package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/domain/models"
	"github.com/kdialloh/waresponder/internal/service/autoreply"
)

const (
	storeTimeout = 10 * time.Second
	replyTimeout = 20 * time.Second
)

// Webhook verification failures, mapped to distinct HTTP statuses by the
// handler.
var (
	ErrMissingVerifyParams = errors.New("missing hub.mode, hub.verify_token or hub.challenge")
	ErrUnsupportedMode     = errors.New("unsupported hub.mode")
	ErrVerifyTokenUnset    = errors.New("verify token not configured")
	ErrVerifyTokenMismatch = errors.New("invalid verify token")
)

// Ingestor describes the operations the HTTP layer can perform.
type Ingestor interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	Process(ctx context.Context, payload models.WebhookPayload, raw []byte)
}

// ConfigSource supplies the current auto-reply configuration.
type ConfigSource interface {
	Get(ctx context.Context) *models.ResponseConfig
}

// ReplySender delivers the canned reply body to one recipient.
type ReplySender interface {
	Send(ctx context.Context, recipient, body string) models.OutboundSendResult
}

// EventInserter is the slice of the event store needed here.
type EventInserter interface {
	InsertEvent(ctx context.Context, event models.InboundEvent) error
}

// Service is the production Ingestor implementation.
type Service struct {
	verifyToken string
	events      EventInserter
	configs     ConfigSource
	decider     *autoreply.Decider
	sender      ReplySender
	reporter    Reporter
	logger      *zap.Logger
}

// NewService wires a new ingest service instance.
func NewService(verifyToken string, events EventInserter, configs ConfigSource, decider *autoreply.Decider, sender ReplySender, reporter Reporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = NewZapReporter(logger)
	}
	return &Service{
		verifyToken: verifyToken,
		events:      events,
		configs:     configs,
		decider:     decider,
		sender:      sender,
		reporter:    reporter,
		logger:      logger,
	}
}

// VerifyWebhookToken validates the callback verification handshake.
func (s *Service) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" || challenge == "" {
		return "", ErrMissingVerifyParams
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", ErrUnsupportedMode
	}

	if s.verifyToken == "" {
		return "", ErrVerifyTokenUnset
	}

	if verifyToken != s.verifyToken {
		return "", ErrVerifyTokenMismatch
	}

	return challenge, nil
}

// Process normalizes one delivery, stores every event and fans out automatic
// replies. It runs detached from the HTTP response; every failure is isolated
// per event and handed to the reporter, never returned.
func (s *Service) Process(ctx context.Context, payload models.WebhookPayload, raw []byte) {
	events := Normalize(payload, raw)
	if len(events) == 0 {
		s.logger.Debug("delivery produced no events")
		return
	}

	s.storeAll(ctx, events)

	var candidates []models.InboundEvent
	for _, event := range events {
		if s.decider.Qualifies(event) {
			candidates = append(candidates, event)
		}
	}

	if len(candidates) == 0 {
		s.logger.Info("delivery processed",
			zap.Int("events", len(events)),
			zap.Int("replies", 0))
		return
	}

	replied := s.replyAll(ctx, candidates)

	s.logger.Info("delivery processed",
		zap.Int("events", len(events)),
		zap.Int("reply_candidates", len(candidates)),
		zap.Int("replies", replied))
}

// storeAll inserts every event concurrently with best-effort semantics; a
// failing insert is reported and does not affect the others.
func (s *Service) storeAll(ctx context.Context, events []models.InboundEvent) {
	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		go func(event models.InboundEvent) {
			defer wg.Done()
			insertCtx, cancel := context.WithTimeout(ctx, storeTimeout)
			defer cancel()
			if err := s.events.InsertEvent(insertCtx, event); err != nil {
				s.reporter.Report("store", event.EventID, err)
			}
		}(event)
	}
	wg.Wait()
}

// replyAll resolves the configuration once per delivery and fans out one send
// per qualifying event, each isolated from the others' failures.
func (s *Service) replyAll(ctx context.Context, candidates []models.InboundEvent) int {
	cfg := s.configs.Get(ctx)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		replied int
	)
	for _, event := range candidates {
		if !s.decider.ShouldReply(event, cfg) {
			continue
		}

		wg.Add(1)
		go func(event models.InboundEvent) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, replyTimeout)
			defer cancel()

			result := s.sender.Send(sendCtx, event.Sender, cfg.TemplateMessage)
			if !result.Success {
				reason := "send rejected"
				if result.Error != nil {
					reason = *result.Error
				}
				s.reporter.Report("reply", event.EventID, errors.New(reason))
				return
			}

			mu.Lock()
			replied++
			mu.Unlock()
		}(event)
	}
	wg.Wait()

	return replied
}
