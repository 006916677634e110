package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

func newTestAPI(t *testing.T, h http.HandlerFunc, creds Credentials) *API {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api, err := NewAPI(srv.URL+"/", creds, NewHTTPTransportWithClient(srv.Client()))
	require.NoError(t, err)
	return api
}

func TestStreamChatSendsRequest(t *testing.T) {
	var got ChatRequest
	var auth, accept string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, endpointChatStream, r.URL.Path)
		auth = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: token\ndata: hi\n\n")
	}, Credentials{APIKey: "bh_pk_test"})

	body, err := api.StreamChat(context.Background(), "session_1", "hello")
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)

	require.Equal(t, "event: token\ndata: hi\n\n", string(raw))
	require.Equal(t, ChatRequest{SessionID: "session_1", Message: "hello"}, got)
	require.Equal(t, "Bearer bh_pk_test", auth)
	require.Equal(t, "text/event-stream", accept)
}

func TestStreamChatCustomerVariant(t *testing.T) {
	var raw map[string]any
	var auth string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&raw))
	}, Credentials{CustomerID: "cust_42"})

	body, err := api.StreamChat(context.Background(), "session_1", "hello")
	require.NoError(t, err)
	_ = body.Close()

	require.Empty(t, auth)
	require.Equal(t, "cust_42", raw["customer_id"])
}

func TestStreamChatNon2xx(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}, Credentials{APIKey: "k"})

	_, err := api.StreamChat(context.Background(), "session_1", "hello")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	require.Equal(t, "upstream busy", statusErr.Body)
}

func TestHistory(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case endpointSessionHistory + "session_known":
			_, _ = io.WriteString(w, `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
		case endpointSessionHistory + "session_gone":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}, Credentials{APIKey: "k"})
	ctx := context.Background()

	msgs, err := api.History(ctx, "session_known")
	require.NoError(t, err)
	require.Equal(t, []chat.TranscriptMessage{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
	}, msgs)

	_, err = api.History(ctx, "session_gone")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = api.History(ctx, "session_broken")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	api, err := NewAPI(url, Credentials{}, NewHTTPTransport(0))
	require.NoError(t, err)
	_, err = api.StreamChat(context.Background(), "session_1", "hello")
	require.Error(t, err)
	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://api.bellhop.ai", want: "https://api.bellhop.ai"},
		{in: "https://api.bellhop.ai/", want: "https://api.bellhop.ai"},
		{in: "dev.konverza.co.uk", want: "https://dev.konverza.co.uk"},
		{in: "http://localhost:8080/prefix/", want: "http://localhost:8080/prefix"},
		{in: "", wantErr: true},
		{in: "https://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := normalizeBaseURL(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}
}
