// Package bootstrap builds the report store and authoring pipeline from
// configuration; shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/zhouzirui/sirius-report/backend/internal/config"
	"github.com/zhouzirui/sirius-report/backend/internal/database"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/repository/postgres"
	"github.com/zhouzirui/sirius-report/backend/internal/service/ai"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

// OpenStore 返回 Postgres 存储（配置了 DATABASE_URL 时）或内存存储。
// 返回的 close 函数总是非空。
func OpenStore(ctx context.Context, cfg config.StoreConfig, l log.Logger) (report.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		l.Infof(ctx, "[bootstrap] DATABASE_URL 未配置，使用内存存储")
		return report.NewMemoryStore(), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	l.Infof(ctx, "[bootstrap] connected to postgres (max_conns=%d)", cfg.MaxConns)
	return postgres.NewReportRepository(pool), pool.Close, nil
}

// NewPipeline 在模型凭证可用时创建报告流水线，否则返回 nil。
func NewPipeline(ctx context.Context, cfg *config.Config, store report.Store, l log.Logger) (*authoring.Pipeline, error) {
	if !cfg.AI.Enabled() {
		l.Warnf(ctx, "[bootstrap] Ark 凭证未配置，跳过报告生成功能初始化")
		return nil, nil
	}

	svc, err := ai.NewService(ctx, cfg.AI, l)
	if err != nil {
		return nil, fmt.Errorf("init ai service: %w", err)
	}
	l.Infof(ctx, "[bootstrap] AI service initialized (model=%s, stream=%t)", cfg.AI.Model, svc.StreamingEnabled())

	return authoring.New(svc, store, authoring.Config{
		CallTimeout: cfg.Report.CallTimeout,
		Officer:     cfg.Report.Officer,
	}, l), nil
}

// NewLogger 按配置初始化 zap logger。
func NewLogger(cfg config.LogConfig) log.Logger {
	return log.Init(log.ZapConfig{
		Level:        cfg.Level,
		Mode:         cfg.Mode,
		Encoding:     cfg.Encoding,
		ColorEnabled: cfg.ColorEnabled,
	})
}
