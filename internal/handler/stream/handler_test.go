package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
	aiService "github.com/zhouzirui/bellhop-widget/internal/service/ai"
	chatService "github.com/zhouzirui/bellhop-widget/internal/service/chat"
)

type failing struct{}

func (failing) Stream(context.Context, []chat.Message, string) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("model offline")
}

type broken struct{}

func (broken) Stream(context.Context, []chat.Message, string) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](2)
	sw.Send(schema.AssistantMessage("Hi", nil), nil)
	sw.Send(nil, errors.New("upstream reset"))
	sw.Close()
	return sr, nil
}

func setupRouter(responder aiService.Responder) (*chi.Mux, *chatService.Service) {
	chatSvc := chatService.NewService()
	r := chi.NewRouter()
	New(responder, chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestStreamWritesTokenEvents(t *testing.T) {
	r, chatSvc := setupRouter(aiService.Scripted{Fragments: []string{"Hi", " there"}})

	resp := post(r, `{"session_id":"session_a","message":"hello"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	want := "event: start\ndata: {\"session_id\":\"session_a\"}\n\n" +
		"event: token\ndata: Hi\n\n" +
		"event: token\ndata:  there\n\n" +
		"event: done\ndata: {\"session_id\":\"session_a\",\"length\":8}\n\n"
	require.Equal(t, want, resp.Body.String())

	messages, err := chatSvc.LoadTranscript(context.Background(), "session_a")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, chat.RoleUser, messages[0].Role)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "Hi there", messages[1].Content)
}

func TestStreamValidatesBody(t *testing.T) {
	r, _ := setupRouter(aiService.Echo{})

	require.Equal(t, http.StatusBadRequest, post(r, `not json`).Code)
	require.Equal(t, http.StatusBadRequest, post(r, `{"session_id":"session_a","message":"  "}`).Code)
	require.Equal(t, http.StatusBadRequest, post(r, `{"message":"hello"}`).Code)
}

func TestStreamResponderFailure(t *testing.T) {
	r, _ := setupRouter(failing{})
	resp := post(r, `{"session_id":"session_a","message":"hello"}`)
	require.Equal(t, http.StatusBadGateway, resp.Code)
	require.Contains(t, resp.Body.String(), "ai generation failed")
}

func TestStreamInterruptedMidway(t *testing.T) {
	r, chatSvc := setupRouter(broken{})
	resp := post(r, `{"session_id":"session_a","message":"hello"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "event: token\ndata: Hi\n\n")
	require.Contains(t, resp.Body.String(), "event: error\n")
	require.NotContains(t, resp.Body.String(), "event: done")

	messages, err := chatSvc.LoadTranscript(context.Background(), "session_a")
	require.NoError(t, err)
	require.Len(t, messages, 1)
}
