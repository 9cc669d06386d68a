package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/sirius-report/backend/internal/bootstrap"
	"github.com/zhouzirui/sirius-report/backend/internal/config"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/internal/service/speech"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	rootCmd := newRootCommand(a)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sirius: %v\n", err)
		a.close()
		os.Exit(1)
	}
}

// app 命令共享的依赖；测试中预先填充以跳过 setup。
type app struct {
	l        log.Logger
	cfg      *config.Config
	store    report.Store
	pipeline *authoring.Pipeline
	speech   *speech.Service
	closers  []func()
}

func (a *app) setup(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg
	if a.l == nil {
		a.l = bootstrap.NewLogger(cfg.Log)
		a.closers = append(a.closers, func() { _ = a.l.Sync() })
	}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg.Store, a.l)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, store, a.l)
	if err != nil {
		return err
	}
	a.pipeline = pipeline

	if cfg.Speech.Enabled {
		a.speech = speech.NewService(cfg.Speech, a.l)
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) requirePipeline() error {
	if a.pipeline == nil {
		return fmt.Errorf("text generation unavailable: configure ARK_API_KEY and ARK_MODEL")
	}
	return nil
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sirius",
		Short: "Sirius police report CLI",
		Long: `Sirius CLI authors police field reports from a free-text description and manages
the stored reports using the same configuration as the API server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	cmd.AddCommand(
		newReportsCmd(a),
		newAuthorCmd(a),
		newTranscribeCmd(a),
	)
	return cmd
}
