package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
	chatService "github.com/zhouzirui/bellhop-widget/internal/service/chat"
	"github.com/zhouzirui/bellhop-widget/pkg/utils"
)

// Handler 聊天历史的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/history/{sessionID}", h.handleHistory)
}

// HistoryResponse 历史记录响应体
type HistoryResponse struct {
	SessionID string                   `json:"session_id"`
	Messages  []chat.TranscriptMessage `json:"messages"`
}

// handleHistory 返回会话的完整对话记录；未知会话返回 404。
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]chat.TranscriptMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Transcript())
	}
	utils.RespondJSON(w, http.StatusOK, HistoryResponse{SessionID: sessionID, Messages: out})
}
