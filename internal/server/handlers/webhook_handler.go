package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/domain/models"
	"github.com/kdialloh/waresponder/internal/service/ingest"
)

// MessageSender covers the operator send endpoints.
type MessageSender interface {
	Send(ctx context.Context, recipient, body string) models.OutboundSendResult
	SendTemplate(ctx context.Context, recipient, templateName, languageCode string) models.OutboundSendResult
}

// WebhookHandler handles inbound and outbound WhatsApp HTTP events.
type WebhookHandler struct {
	svc    ingest.Ingestor
	sender MessageSender
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc ingest.Ingestor, sender MessageSender, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, sender: sender, logger: logger}
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	resp, err := h.svc.VerifyWebhookToken(mode, token, challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		switch {
		case errors.Is(err, ingest.ErrMissingVerifyParams), errors.Is(err, ingest.ErrUnsupportedMode):
			c.String(http.StatusBadRequest, "bad verification request")
		case errors.Is(err, ingest.ErrVerifyTokenUnset):
			c.String(http.StatusInternalServerError, "verification not configured")
		default:
			c.String(http.StatusForbidden, "verification failed")
		}
		return
	}

	c.String(http.StatusOK, resp)
}

// Receive ingests webhook POST callbacks from Meta. The delivery is always
// acknowledged with 200 once the body is a JSON object, before processing
// completes, so the platform never retries because of slow downstream calls.
// Type drift inside a delivery is tolerated: the mistyped fragment is dropped
// and the rest of the payload still flows through. Only a body that is not a
// decodable object earns a 400.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("failed reading webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	body := bytes.TrimSpace(raw)
	if len(body) == 0 || body[0] != '{' {
		h.logger.Warn("webhook body is not a JSON object")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			h.logger.Warn("invalid webhook payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		h.logger.Warn("webhook payload decoded partially", zap.Error(err))
	}

	go h.svc.Process(context.Background(), payload, raw)

	c.String(http.StatusOK, "OK")
}

// SendMessage allows sending outbound automation or manual responses.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result := h.sender.Send(c.Request.Context(), req.To, req.Message)
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// TemplateMessageRequest is the operator request for a template send.
type TemplateMessageRequest struct {
	To           string `json:"to" binding:"required"`
	TemplateName string `json:"template_name" binding:"required"`
	LanguageCode string `json:"language_code"`
}

// SendTemplate pushes an approved message template to one recipient.
func (h *WebhookHandler) SendTemplate(c *gin.Context) {
	var req TemplateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid template payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result := h.sender.SendTemplate(c.Request.Context(), req.To, req.TemplateName, req.LanguageCode)
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}

	c.JSON(http.StatusOK, result)
}
