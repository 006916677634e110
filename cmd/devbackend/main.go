package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/bellhop-widget/internal/config"
	"github.com/zhouzirui/bellhop-widget/internal/handler"
	"github.com/zhouzirui/bellhop-widget/internal/logging"
	"github.com/zhouzirui/bellhop-widget/internal/service/ai"
	"github.com/zhouzirui/bellhop-widget/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log.Level, os.Stderr)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	chatService := chat.NewService()
	go pruneSessions(ctx, chatService, time.Minute)

	var responder ai.Responder = ai.Echo{Delay: cfg.Backend.ReplyDelay}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, falling back to echo replies")
		} else {
			responder = aiService
			log.Info().Str("model", cfg.AI.Model).Msg("AI service initialized successfully")
		}
	} else {
		log.Info().Msg("Ark 凭证未配置，使用回声回复")
	}

	if len(cfg.Backend.APIKeys) == 0 {
		log.Warn().Msg("BACKEND_API_KEYS not set, accepting unauthenticated requests")
	}

	router := handler.NewRouter(chatService, responder, cfg.Backend.APIKeys)

	startServer(ctx, cfg.Server, router)
}

func pruneSessions(ctx context.Context, svc *chat.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Prune(ctx); n > 0 {
				log.Debug().Int("sessions", n).Msg("pruned expired sessions")
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("widget dev backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
