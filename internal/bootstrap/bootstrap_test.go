package bootstrap

import (
	"context"
	"testing"

	"github.com/zhouzirui/sirius-report/backend/internal/config"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

func TestOpenStoreFallsBackToMemory(t *testing.T) {
	store, closeFn, err := OpenStore(context.Background(), config.StoreConfig{}, log.NewNop())
	if err != nil {
		t.Fatalf("OpenStore err: %v", err)
	}
	defer closeFn()

	if _, ok := store.(*report.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenStoreRejectsBadDSN(t *testing.T) {
	if _, _, err := OpenStore(context.Background(), config.StoreConfig{DatabaseURL: "://bad"}, log.NewNop()); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}

func TestNewPipelineWithoutCredentials(t *testing.T) {
	cfg := &config.Config{}
	p, err := NewPipeline(context.Background(), cfg, report.NewMemoryStore(), log.NewNop())
	if err != nil {
		t.Fatalf("NewPipeline err: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil pipeline without credentials")
	}
}
