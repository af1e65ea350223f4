package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kdialloh/waresponder/internal/config"
)

const (
	maxTemplateAttempts = 3
	responseExcerptLen  = 200
)

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error)
	SendTemplateMessage(ctx context.Context, req SendTemplateMessageRequest) (*SendMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AccessToken)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTemplateMessageRequest represents an approved-template send.
type SendTemplateMessageRequest struct {
	To           string
	TemplateName string
	LanguageCode string
}

// SendMessageResponse mirrors the successful response from Meta.
type SendMessageResponse struct {
	Messages []SentMessage `json:"messages"`
}

// SentMessage is one accepted message reference in the vendor response.
type SentMessage struct {
	ID string `json:"id"`
}

// MessageID returns the vendor-assigned id of the first accepted message.
func (r *SendMessageResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// APIError is a rejection returned by the Cloud API, either as a non-2xx
// status or as an error object embedded in a 2xx body. It is never retried.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

// ConnectionError marks transport-level failures (DNS, refused connection,
// timeout). These are the only errors eligible for retry.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("whatsapp connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error belongs to the transient-connection
// class. Vendor rejections and undecodable responses are permanent.
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// apiEnvelope is the union of the success and error response shapes.
type apiEnvelope struct {
	Messages []SentMessage `json:"messages"`
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendTextMessage issues a single text send. No retry happens in this path;
// callers own the failure.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "text",
		"text": map[string]any{
			"body":        req.Body,
			"preview_url": req.PreviewURL,
		},
	}

	return c.post(ctx, payload)
}

// SendTemplateMessage issues a template send, retrying connection-class
// failures with a linear backoff of one second per attempt.
func (c *APIClient) SendTemplateMessage(ctx context.Context, req SendTemplateMessageRequest) (*SendMessageResponse, error) {
	language := req.LanguageCode
	if language == "" {
		language = "en"
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "template",
		"template": map[string]any{
			"name": req.TemplateName,
			"language": map[string]any{
				"code": language,
			},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxTemplateAttempts; attempt++ {
		resp, err := c.post(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == maxTemplateAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return nil, fmt.Errorf("send template after %d attempts: %w", maxTemplateAttempts, lastErr)
}

func (c *APIClient) post(ctx context.Context, payload map[string]any) (*SendMessageResponse, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("decode whatsapp response: %w (body: %s)", err, excerpt(resp.Body()))
	}

	if resp.StatusCode() >= http.StatusBadRequest || envelope.Error != nil {
		apiErr := &APIError{Status: resp.StatusCode()}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return nil, apiErr
	}

	result := &SendMessageResponse{Messages: envelope.Messages}
	return result, nil
}

// excerpt truncates a raw response body for diagnostics.
func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > responseExcerptLen {
		return text[:responseExcerptLen] + "..."
	}
	return text
}
