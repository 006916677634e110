// Package client talks to the chat backend: a fetch-like Transport plus the
// two endpoints the widget consumes.
package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Request is the transport-level view of one call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response carries the status and the still-open body stream.
type Response struct {
	StatusCode int
	Body       io.ReadCloser
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs one request. The returned body is read incrementally and
// must be closed by the caller; cancelling ctx aborts an in-progress read.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport builds a transport whose connect and response-header phases
// are bounded by timeout. Body reads are bounded only by the request context
// so long streams are not cut off.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       60 * time.Second,
		MaxIdleConns:          10,
	}
	return &HTTPTransport{client: &http.Client{Transport: base}}
}

// NewHTTPTransportWithClient wraps an existing client.
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPTransport{client: c}
}

func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	return &Response{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}
