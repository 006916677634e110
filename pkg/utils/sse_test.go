package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendSSEText(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, SendSSEText(rec, rec, "token", " there"))
	require.NoError(t, SendSSEText(rec, rec, "", "a\r\nb"))
	require.Equal(t, "event: token\ndata:  there\n\ndata: a\ndata: b\n\n", rec.Body.String())
	require.True(t, rec.Flushed)
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, SendSSEEvent(rec, rec, "done", map[string]string{"session_id": "session_a"}))
	require.Equal(t, "event: done\ndata: {\"session_id\":\"session_a\"}\n\n", rec.Body.String())
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "session not found")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"session not found"}`, rec.Body.String())
}

func TestSetupSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}
