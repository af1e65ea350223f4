// Package digest builds the daily ingestion summary for operators.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/domain/models"
)

const (
	dateLayout      = "2006-01-02"
	digestDataRange = "Digest!A:C"
	digestWindow    = 24 * time.Hour
)

// EventCounter provides the aggregated event counts for the digest window.
type EventCounter interface {
	CountByKindSince(ctx context.Context, since time.Time) ([]models.KindCount, error)
}

// RowWriter exports one digest row. Nil disables the export.
type RowWriter interface {
	AppendRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// SummarySender pushes the digest text over WhatsApp.
type SummarySender interface {
	Send(ctx context.Context, recipient, body string) models.OutboundSendResult
}

// Service aggregates the last day of stored events into a one-line summary,
// appends it to the operations spreadsheet and messages it to the configured
// ops number. Sheet export and WhatsApp summary are each optional and skipped
// when unconfigured.
type Service struct {
	events    EventCounter
	sheet     RowWriter
	sender    SummarySender
	recipient string
	logger    *zap.Logger
}

// NewService wires a new digest service instance.
func NewService(events EventCounter, sheet RowWriter, sender SummarySender, recipient string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events:    events,
		sheet:     sheet,
		sender:    sender,
		recipient: recipient,
		logger:    logger,
	}
}

// Run computes and distributes the digest for the 24 hours before now.
func (s *Service) Run(ctx context.Context, now time.Time) error {
	since := now.Add(-digestWindow)

	counts, err := s.events.CountByKindSince(ctx, since)
	if err != nil {
		return fmt.Errorf("load digest counts: %w", err)
	}

	var total int64
	parts := make([]string, 0, len(counts))
	for _, bucket := range counts {
		total += bucket.Count
		parts = append(parts, fmt.Sprintf("%s=%d", bucket.Kind, bucket.Count))
	}

	summary := fmt.Sprintf("Webhook digest %s: %d events", now.Format(dateLayout), total)
	if len(parts) > 0 {
		summary = fmt.Sprintf("%s (%s)", summary, strings.Join(parts, ", "))
	}

	if s.sheet != nil {
		row := []interface{}{now.Format(dateLayout), total, strings.Join(parts, ", ")}
		if err := s.sheet.AppendRow(ctx, digestDataRange, row); err != nil {
			s.logger.Error("digest sheet export failed", zap.Error(err))
		}
	} else {
		s.logger.Debug("digest sheet export disabled")
	}

	if s.recipient == "" {
		s.logger.Debug("digest recipient not configured, skipping summary send")
		return nil
	}

	result := s.sender.Send(ctx, s.recipient, summary)
	if !result.Success {
		reason := "send rejected"
		if result.Error != nil {
			reason = *result.Error
		}
		return fmt.Errorf("send digest summary: %s", reason)
	}

	s.logger.Info("digest distributed",
		zap.Int64("events", total),
		zap.String("recipient", s.recipient))
	return nil
}
