package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
	aiService "github.com/zhouzirui/bellhop-widget/internal/service/ai"
	chatService "github.com/zhouzirui/bellhop-widget/internal/service/chat"
	"github.com/zhouzirui/bellhop-widget/pkg/utils"
)

// SSE event names written by the handler.
const (
	EventStart = "start"
	EventToken = chat.TokenEvent
	EventDone  = "done"
	EventError = "error"
)

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	responder aiService.Responder
	chatSvc   *chatService.Service
}

// New creates a new stream handler
func New(responder aiService.Responder, chatSvc *chatService.Service) *Handler {
	return &Handler{
		responder: responder,
		chatSvc:   chatSvc,
	}
}

// RegisterRoutes 注册流式聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

// Request is the body posted by the widget.
type Request struct {
	SessionID  string `json:"session_id"`
	Message    string `json:"message"`
	CustomerID string `json:"customer_id,omitempty"`
}

type startPayload struct {
	SessionID string `json:"session_id"`
}

type donePayload struct {
	SessionID string `json:"session_id"`
	Length    int    `json:"length"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" || req.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	history, err := h.prepare(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to prepare conversation")
		utils.RespondError(w, http.StatusInternalServerError, "failed to prepare conversation")
		return
	}

	stream, err := h.responder.Stream(ctx, history, req.Message)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("ai generation failed")
		utils.RespondError(w, http.StatusBadGateway, "ai generation failed")
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEEvent(w, flusher, EventStart, startPayload{SessionID: req.SessionID}); err != nil {
		return
	}

	reply, err := h.relay(w, flusher, stream)
	if err != nil {
		log.Warn().Err(err).Str("session_id", req.SessionID).Msg("stream interrupted")
		_ = utils.SendSSEEvent(w, flusher, EventError, errorPayload{Error: "generation interrupted"})
		return
	}

	assistantMsg := chat.Message{
		SessionID: req.SessionID,
		Role:      chat.RoleAssistant,
		Content:   reply,
	}
	if err := h.chatSvc.SaveMessage(ctx, assistantMsg); err != nil {
		log.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to save assistant message")
	}

	_ = utils.SendSSEEvent(w, flusher, EventDone, donePayload{SessionID: req.SessionID, Length: len(reply)})
	log.Info().Str("session_id", req.SessionID).Int("length", len(reply)).Msg("completed response")
}

// prepare registers the session, returns the prior transcript and records the
// user message.
func (h *Handler) prepare(ctx context.Context, req Request) ([]chat.Message, error) {
	if _, err := h.chatSvc.EnsureSession(ctx, req.SessionID, req.CustomerID); err != nil {
		return nil, err
	}
	history, err := h.chatSvc.LoadTranscript(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	userMsg := chat.Message{
		SessionID: req.SessionID,
		Role:      chat.RoleUser,
		Content:   req.Message,
	}
	if err := h.chatSvc.SaveMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	return history, nil
}

func (h *Handler) relay(w http.ResponseWriter, flusher http.Flusher, stream *schema.StreamReader[*schema.Message]) (string, error) {
	var reply strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return reply.String(), nil
		}
		if recvErr != nil {
			return reply.String(), recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		reply.WriteString(chunk.Content)
		if err := utils.SendSSEText(w, flusher, EventToken, chunk.Content); err != nil {
			return reply.String(), err
		}
	}
}
