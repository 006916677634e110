package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/bellhop-widget/internal/handler/chat"
	"github.com/zhouzirui/bellhop-widget/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/bellhop-widget/internal/middleware"
	aiService "github.com/zhouzirui/bellhop-widget/internal/service/ai"
	chatService "github.com/zhouzirui/bellhop-widget/internal/service/chat"
	"github.com/zhouzirui/bellhop-widget/pkg/utils"
)

// NewRouter wires HTTP routes to core services. An empty apiKeys list
// disables bearer authentication.
func NewRouter(chatSvc *chatService.Service, responder aiService.Responder, apiKeys []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(responder, chatSvc)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middlewarePkg.BearerAuth(apiKeys))

		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	return r
}
