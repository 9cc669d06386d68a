package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/sirius-report/backend/internal/bootstrap"
	"github.com/zhouzirui/sirius-report/backend/internal/config"
	"github.com/zhouzirui/sirius-report/backend/internal/handler"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/internal/service/speech"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	l := bootstrap.NewLogger(cfg.Log)
	defer l.Sync()

	if envErr != nil {
		l.Infof(ctx, "[main] .env not loaded (%v), continuing with system environment variables only", envErr)
	}

	if err := run(ctx, cfg, l); err != nil {
		l.Errorf(ctx, "[main] %v", err)
		l.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, l log.Logger) error {
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg.Store, l)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, store, l)
	if err != nil {
		l.Warnf(ctx, "[main] %v; continuing without report generation - 请检查 Ark 模型相关环境变量", err)
	}

	deps := handler.Deps{Store: store, Logger: l}
	if pipeline != nil {
		registry := authoring.NewRegistry(pipeline, cfg.Report.SessionTTL)
		deps.Registry = registry
		go sweepSessions(ctx, registry, cfg.Report.SessionTTL, l)
	}

	// Initialize Speech service
	if cfg.Speech.Enabled {
		deps.Speech = speech.NewService(cfg.Speech, l)
		l.Infof(ctx, "[main] speech service initialized (language=%s)", cfg.Speech.ASRLanguage)
	} else {
		l.Infof(ctx, "[main] 语音服务凭证未配置，跳过语音功能初始化")
	}

	return startServer(ctx, cfg.Server, handler.NewRouter(deps), l)
}

// sweepSessions 定期清理长时间未活动的会话。
func sweepSessions(ctx context.Context, registry *authoring.Registry, ttl time.Duration, l log.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := registry.Sweep(now); n > 0 {
				l.Infof(ctx, "[main] swept %d idle sessions", n)
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, l log.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	l.Infof(ctx, "[main] Sirius report backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
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
