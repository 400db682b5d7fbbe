package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncwell/zoomcrm/internal/logger"
	"github.com/syncwell/zoomcrm/internal/webhook"
	"github.com/syncwell/zoomcrm/internal/zoom"
)

const testSecret = "webhook-secret"

type fakeProcessor struct {
	events []zoom.Event
	result bool
}

func (f *fakeProcessor) ProcessEvent(_ context.Context, evt zoom.Event) bool {
	f.events = append(f.events, evt)
	return f.result
}

func postWebhook(t *testing.T, h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/zoom-webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Receive(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestWebhookHandshakeBypassesSignature(t *testing.T) {
	processor := &fakeProcessor{result: true}
	h := NewWebhookHandler(logger.L, processor, testSecret)

	body := `{"event":"endpoint.url_validation","payload":{"plainToken":"tok-1"}}`
	rec := postWebhook(t, h, body, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plainToken":"tok-1"`)
	assert.Contains(t, rec.Body.String(), `"encryptedToken"`)
	assert.Empty(t, processor.events, "handshake must not reach the processor")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	processor := &fakeProcessor{result: true}
	h := NewWebhookHandler(logger.L, processor, testSecret)

	body := `{"event":"meeting.ended","event_ts":1,"payload":{"object":{"uuid":"m-1"}}}`
	rec := postWebhook(t, h, body, "v0=deadbeef")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"invalid signature"`)
	assert.Empty(t, processor.events)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	processor := &fakeProcessor{result: true}
	h := NewWebhookHandler(logger.L, processor, testSecret)

	body := `{"event":"meeting.ended","event_ts":1,"payload":{"object":{"uuid":"m-1"}}}`
	rec := postWebhook(t, h, body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookProcessesSignedEvent(t *testing.T) {
	processor := &fakeProcessor{result: true}
	h := NewWebhookHandler(logger.L, processor, testSecret)

	body := `{"event":"meeting.ended","event_ts":42,"payload":{"object":{"uuid":"m-1"}}}`
	rec := postWebhook(t, h, body, webhook.Sign([]byte(body), testSecret))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
	require.Len(t, processor.events, 1)
	assert.Equal(t, "meeting.ended", processor.events[0].Event)
	assert.Equal(t, int64(42), processor.events[0].EventTS)
}

func TestWebhookFailedProcessingReturns500(t *testing.T) {
	processor := &fakeProcessor{result: false}
	h := NewWebhookHandler(logger.L, processor, testSecret)

	body := `{"event":"meeting.ended","event_ts":1,"payload":{"object":{"uuid":"m-1"}}}`
	rec := postWebhook(t, h, body, webhook.Sign([]byte(body), testSecret))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookRejectsGarbageBody(t *testing.T) {
	processor := &fakeProcessor{result: true}
	h := NewWebhookHandler(logger.L, processor, testSecret)

	rec := postWebhook(t, h, "not json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
