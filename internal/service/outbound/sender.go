// Package outbound adapts the WhatsApp client into the send-result contract
// used by the rest of the service.
package outbound

import (
	"context"

	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/config"
	"github.com/kdialloh/waresponder/internal/domain/models"
	"github.com/kdialloh/waresponder/pkg/clients/whatsapp"
)

const missingCredentialsMsg = "whatsapp access token or phone number id not configured"

// Sender issues outbound messages and folds every outcome into an
// OutboundSendResult. Missing credentials are reported as a configuration
// failure at the point of use instead of crashing the process at startup.
type Sender struct {
	cfg    config.WhatsAppConfig
	client whatsapp.Client
	logger *zap.Logger
}

// NewSender wires a sender over the given client.
func NewSender(cfg config.WhatsAppConfig, client whatsapp.Client, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{cfg: cfg, client: client, logger: logger}
}

// Send delivers a plain text body. No retry happens in this path.
func (s *Sender) Send(ctx context.Context, recipient, body string) models.OutboundSendResult {
	if result, ok := s.checkCredentials(); !ok {
		return result
	}

	resp, err := s.client.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{
		To:   recipient,
		Body: body,
	})
	return s.toResult(recipient, resp, err)
}

// SendTemplate delivers an approved message template. The client retries
// connection-class failures with linear backoff.
func (s *Sender) SendTemplate(ctx context.Context, recipient, templateName, languageCode string) models.OutboundSendResult {
	if result, ok := s.checkCredentials(); !ok {
		return result
	}

	resp, err := s.client.SendTemplateMessage(ctx, whatsapp.SendTemplateMessageRequest{
		To:           recipient,
		TemplateName: templateName,
		LanguageCode: languageCode,
	})
	return s.toResult(recipient, resp, err)
}

func (s *Sender) checkCredentials() (models.OutboundSendResult, bool) {
	if s.cfg.AccessToken == "" || s.cfg.PhoneNumberID == "" {
		s.logger.Error("outbound send rejected", zap.String("reason", missingCredentialsMsg))
		msg := missingCredentialsMsg
		return models.OutboundSendResult{Error: &msg}, false
	}
	return models.OutboundSendResult{}, true
}

func (s *Sender) toResult(recipient string, resp *whatsapp.SendMessageResponse, err error) models.OutboundSendResult {
	if err != nil {
		s.logger.Warn("outbound send failed",
			zap.String("recipient", recipient),
			zap.Error(err))
		msg := err.Error()
		return models.OutboundSendResult{Error: &msg}
	}

	result := models.OutboundSendResult{Success: true}
	if id := resp.MessageID(); id != "" {
		result.ProviderMessageID = &id
	}

	s.logger.Info("outbound send accepted",
		zap.String("recipient", recipient),
		zap.Stringp("provider_message_id", result.ProviderMessageID))
	return result
}
