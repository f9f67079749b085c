package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/config"
	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/handler"
	"github.com/zhouzirui/study-mentor/backend/internal/logger"
	"github.com/zhouzirui/study-mentor/backend/internal/model/persona"
	"github.com/zhouzirui/study-mentor/backend/internal/service/document"
	"github.com/zhouzirui/study-mentor/backend/internal/service/gateway"
	"github.com/zhouzirui/study-mentor/backend/internal/service/prompt"
	"github.com/zhouzirui/study-mentor/backend/internal/service/session"
	"github.com/zhouzirui/study-mentor/backend/internal/service/tutor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Development(),
		FilePath:    cfg.Log.FilePath,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	if cfg.Session.Ephemeral {
		zl.Warn("SECRET_KEY not set, sessions will not survive a restart")
	}

	backend, err := openBackend(cfg, zl)
	if err != nil {
		return err
	}
	documents := document.NewStore(backend, extract.NewRegistry(cfg.Document.Formats...), zl)
	defer func() {
		if err := documents.Close(); err != nil {
			zl.Warn("failed to close document store", zap.Error(err))
		}
	}()

	mentor := persona.Mentor()
	assembler, err := prompt.NewAssembler(cfg.Prompt)
	if err != nil {
		return err
	}

	// Initialize the model gateway
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return err
	}
	gw, err := gateway.NewService(ctx, chatModel, prompt.SystemInstruction(mentor, cfg.Prompt), zl)
	if err != nil {
		return err
	}
	zl.Info("model gateway initialized", zap.String("provider", cfg.AI.Provider))

	engine, err := tutor.NewEngine(tutor.Options{
		Sessions:  session.NewRegistry(cfg.Session.TTL, zl),
		Documents: documents,
		Assembler: assembler,
		Gateway:   gw,
		Timeout:   cfg.AI.Timeout,
		Logger:    zl,
	})
	if err != nil {
		return err
	}

	router, err := handler.NewRouter(handler.Options{
		Engine:         engine,
		Persona:        mentor,
		SessionSecret:  cfg.Session.Secret,
		SecureCookies:  cfg.Session.SecureCookie,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Document.MaxUploadBytes,
		Logger:         zl,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zl.Info("study mentor backend listening", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.Env))
	return runServer(ctx, srv)
}

// openBackend keeps documents on disk in development so they can be inspected.
func openBackend(cfg *config.Config, zl *zap.Logger) (document.Backend, error) {
	if !cfg.Development() {
		return document.NewMemoryBackend(), nil
	}
	backend, err := document.OpenBoltBackend(cfg.Document.DBPath)
	if err != nil {
		return nil, err
	}
	zl.Info("document store opened", zap.String("path", cfg.Document.DBPath))
	return backend, nil
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
