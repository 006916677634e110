package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

// ErrSessionNotFound means the backend no longer knows the session.
var ErrSessionNotFound = errors.New("session not found on backend")

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// Credentials are passed through to the backend untouched.
type Credentials struct {
	APIKey     string
	CustomerID string
}

// ChatRequest is the body of POST /api/v1/chat/stream.
type ChatRequest struct {
	SessionID  string `json:"session_id"`
	Message    string `json:"message"`
	CustomerID string `json:"customer_id,omitempty"`
}

type historyResponse struct {
	Messages []chat.TranscriptMessage `json:"messages"`
}

const errorBodyLimit = 512

// API wraps the chat backend endpoints.
type API struct {
	baseURL   string
	creds     Credentials
	transport Transport
}

// NewAPI validates baseURL and binds credentials and transport.
func NewAPI(baseURL string, creds Credentials, transport Transport) (*API, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	return &API{baseURL: normalized, creds: creds, transport: transport}, nil
}

// normalizeBaseURL adds a scheme when missing and strips trailing slashes.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("api url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.Errorf("invalid api url %q", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalised backend URL.
func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) header() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if a.creds.APIKey != "" {
		h.Set("Authorization", "Bearer "+a.creds.APIKey)
	}
	return h
}

// StreamChat posts one user message and returns the open event-stream body
// on a 2xx response. Any other status is a *StatusError.
func (a *API) StreamChat(ctx context.Context, sessionID, message string) (io.ReadCloser, error) {
	body, err := sonic.Marshal(ChatRequest{
		SessionID:  sessionID,
		Message:    message,
		CustomerID: a.creds.CustomerID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal chat request")
	}

	header := a.header()
	header.Set("Accept", "text/event-stream")
	resp, err := a.transport.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    a.baseURL + endpointChatStream,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, drainStatusError(resp)
	}
	return resp.Body, nil
}

// History fetches the transcript of sessionID. A 404 yields ErrSessionNotFound.
func (a *API) History(ctx context.Context, sessionID string) ([]chat.TranscriptMessage, error) {
	resp, err := a.transport.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    a.baseURL + endpointSessionHistory + url.PathEscape(sessionID),
		Header: a.header(),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		closeBody(resp)
		return nil, ErrSessionNotFound
	}
	if !resp.OK() {
		return nil, drainStatusError(resp)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read history")
	}
	var history historyResponse
	if err := sonic.Unmarshal(raw, &history); err != nil {
		return nil, errors.Wrap(err, "decode history")
	}
	return history.Messages, nil
}

func closeBody(resp *Response) {
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func drainStatusError(resp *Response) error {
	if resp.Body == nil {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}
