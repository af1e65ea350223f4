package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdialloh/waresponder/internal/domain/models"
	"github.com/kdialloh/waresponder/internal/service/ingest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIngestor struct {
	verifyErr error

	mu        sync.Mutex
	processed chan struct{}
	payloads  []models.WebhookPayload
	raws      [][]byte
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{processed: make(chan struct{}, 8)}
}

func (f *fakeIngestor) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return challenge, nil
}

func (f *fakeIngestor) Process(_ context.Context, payload models.WebhookPayload, raw []byte) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.raws = append(f.raws, raw)
	f.mu.Unlock()
	f.processed <- struct{}{}
}

func (f *fakeIngestor) waitProcessed(t *testing.T) {
	t.Helper()
	select {
	case <-f.processed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook processing")
	}
}

type stubSender struct {
	result models.OutboundSendResult
}

func (s *stubSender) Send(context.Context, string, string) models.OutboundSendResult {
	return s.result
}

func (s *stubSender) SendTemplate(context.Context, string, string, string) models.OutboundSendResult {
	return s.result
}

func newWebhookRouter(svc ingest.Ingestor, sender MessageSender) *gin.Engine {
	handler := NewWebhookHandler(svc, sender, nil)
	r := gin.New()
	r.GET("/webhook", handler.Verify)
	r.POST("/webhook", handler.Receive)
	r.POST("/send-message", handler.SendMessage)
	r.POST("/send-template", handler.SendTemplate)
	return r
}

func TestVerifyReturnsChallenge(t *testing.T) {
	r := newWebhookRouter(newFakeIngestor(), &stubSender{})

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=challenge-1", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "challenge-1", rr.Body.String())
}

func TestVerifyFailureStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing params", ingest.ErrMissingVerifyParams, http.StatusBadRequest},
		{"unsupported mode", ingest.ErrUnsupportedMode, http.StatusBadRequest},
		{"token unset", ingest.ErrVerifyTokenUnset, http.StatusInternalServerError},
		{"token mismatch", ingest.ErrVerifyTokenMismatch, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeIngestor()
			svc.verifyErr = tc.err
			r := newWebhookRouter(svc, &stubSender{})

			req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=x&hub.challenge=c", nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestReceiveAcknowledgesAndProcessesDetached(t *testing.T) {
	svc := newFakeIngestor()
	r := newWebhookRouter(svc, &stubSender{})

	body := `{"object": "whatsapp_business_account", "entry": [{"changes": [{"value": {"messages": [{"from": "5511999999999", "id": "wamid.A", "type": "text", "text": {"body": "hi"}}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	svc.waitProcessed(t)
	require.Len(t, svc.raws, 1)
	assert.Equal(t, body, string(svc.raws[0]))
}

func TestReceiveMissingEntryStillAcknowledged(t *testing.T) {
	svc := newFakeIngestor()
	r := newWebhookRouter(svc, &stubSender{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object": "whatsapp_business_account"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.waitProcessed(t)
	assert.Empty(t, svc.payloads[0].Entry)
}

func TestReceiveDriftedFieldStillAcknowledged(t *testing.T) {
	svc := newFakeIngestor()
	r := newWebhookRouter(svc, &stubSender{})

	body := `{"object": "whatsapp_business_account", "entry": [{"id": "entry-1", "changes": [{"field": "messages", "value": {"messages": {}, "statuses": [{"id": "wamid.S1", "status": "delivered", "recipient_id": "5511999999999"}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	// The mistyped messages key must not cost us the status that rode along
	// in the same delivery.
	svc.waitProcessed(t)
	require.Len(t, svc.payloads, 1)
	value := svc.payloads[0].Entry[0].Changes[0].Value
	require.Len(t, value.Statuses, 1)
	assert.Equal(t, "wamid.S1", value.Statuses[0].ID)
	assert.Contains(t, value.Extra, "messages")
}

func TestReceiveDriftedChangesStillAcknowledged(t *testing.T) {
	svc := newFakeIngestor()
	r := newWebhookRouter(svc, &stubSender{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object": "whatsapp_business_account", "entry": [{"id": "entry-1", "changes": {}}]}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.waitProcessed(t)
	require.Len(t, svc.payloads, 1)
	assert.Empty(t, svc.payloads[0].Entry[0].Changes)
}

func TestReceiveRejectsUndecodableBody(t *testing.T) {
	svc := newFakeIngestor()
	r := newWebhookRouter(svc, &stubSender{})

	for _, body := range []string{`not-json`, `[1, 2]`, `"text"`} {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}

	assert.Empty(t, svc.payloads)
}

func TestSendMessageSuccess(t *testing.T) {
	id := "wamid.OUT1"
	sender := &stubSender{result: models.OutboundSendResult{Success: true, ProviderMessageID: &id}}
	r := newWebhookRouter(newFakeIngestor(), sender)

	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(`{"to": "5511999999999", "message": "Hello"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "wamid.OUT1")
}

func TestSendMessageValidationAndFailure(t *testing.T) {
	reason := "invalid recipient"
	sender := &stubSender{result: models.OutboundSendResult{Error: &reason}}
	r := newWebhookRouter(newFakeIngestor(), sender)

	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(`{"to": ""}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(`{"to": "5511999999999", "message": "Hello"}`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid recipient")
}

func TestSendTemplateValidation(t *testing.T) {
	r := newWebhookRouter(newFakeIngestor(), &stubSender{result: models.OutboundSendResult{Success: true}})

	req := httptest.NewRequest(http.MethodPost, "/send-template", strings.NewReader(`{"to": "5511999999999"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/send-template", strings.NewReader(`{"to": "5511999999999", "template_name": "order_update"}`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
