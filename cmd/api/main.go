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

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	"github.com/zhouzirui/insight-dice/backend/internal/handler"
	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/repository"
	"github.com/zhouzirui/insight-dice/backend/internal/service/ai"
	"github.com/zhouzirui/insight-dice/backend/internal/service/dice"
	"github.com/zhouzirui/insight-dice/backend/internal/service/session"
	"github.com/zhouzirui/insight-dice/backend/internal/service/throw"
	"github.com/zhouzirui/insight-dice/backend/pkg/logger"
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

	lg := logger.New(cfg.Log.FilePath, cfg.Log.Production())
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	repo, err := repository.Open(ctx, cfg.Store, lg)
	if err != nil {
		lg.Fatal("failed to open repository", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer repo.Close()
	lg.Info("repository ready", zap.String("driver", cfg.Store.Driver))

	var generator throw.Generator = ai.Unavailable{}
	if cfg.AI.Enabled() {
		chatModel, err := ai.NewChatModel(ctx, cfg.AI)
		if err != nil {
			lg.Warn("failed to create chat model, continuing without AI", zap.Error(err))
		} else if aiService, err := ai.NewService(ctx, chatModel, lg); err != nil {
			lg.Warn("failed to initialize AI service, continuing without AI", zap.Error(err))
		} else {
			generator = aiService
			lg.Info("AI service initialized", zap.String("provider", cfg.AI.Provider))
		}
	} else {
		lg.Warn("AI 凭证未配置，跳过 AI 功能初始化，所有掷骰将返回 generation_unavailable", zap.String("provider", cfg.AI.Provider))
	}

	catalogStore := catalog.NewSeededStore()
	throwService, err := throw.NewService(throw.Deps{
		Catalog:    catalogStore,
		Drawer:     dice.NewDrawer(nil),
		Generator:  generator,
		Repository: repo,
		Sessions:   session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval),
		Logger:     lg,
	}, throw.Config{
		GenerationTimeout:    cfg.AI.Timeout,
		UpdateAttempts:       cfg.Session.RetryAttempts,
		UpdateDelay:          cfg.Session.RetryDelay,
		MaxSituationLength:   cfg.Session.MaxSituationLength,
		MaxReflectionPrompts: cfg.Session.MaxReflectionPrompts,
	})
	if err != nil {
		lg.Fatal("failed to initialize throw service", zap.Error(err))
	}

	router := handler.NewRouter(handler.Deps{
		Catalog:    catalogStore,
		Throws:     throwService,
		Repository: repo,
		Config:     cfg,
		Logger:     lg,
	})

	startServer(ctx, lg, cfg.Server, router)
}

func startServer(ctx context.Context, lg *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lg.Info("Insight Dice backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		lg.Error("server error", zap.Error(err))
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
