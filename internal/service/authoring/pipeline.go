// Package authoring turns a spoken or typed incident account into a stored
// police report: clarification round, report generation, metadata
// extraction and persistence.
package authoring

import (
	"context"
	"fmt"
	"time"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/ai"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

const (
	defaultCallTimeout = 2 * time.Minute
	persistTimeout     = 10 * time.Second
)

// Config 控制单次模型调用与报告默认值。
type Config struct {
	CallTimeout time.Duration
	Officer     string
}

// Pipeline holds the collaborators shared by every session.
type Pipeline struct {
	gen   ai.Generator
	store report.Store
	cfg   Config
	l     log.Logger
	now   func() time.Time
}

// New creates a pipeline. A zero CallTimeout falls back to two minutes.
func New(gen ai.Generator, store report.Store, cfg Config, l log.Logger) *Pipeline {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Officer == "" {
		cfg.Officer = report.DefaultOfficer
	}
	if l == nil {
		l = log.NewNop()
	}
	return &Pipeline{
		gen:   gen,
		store: store,
		cfg:   cfg,
		l:     l,
		now:   time.Now,
	}
}

// Store exposes the report store used for finalization.
func (p *Pipeline) Store() report.Store {
	return p.store
}

// AskAboutReport answers a free-form question using only the stored report body.
func (p *Pipeline) AskAboutReport(ctx context.Context, reportID, question string, opts ...Option) (string, error) {
	question = trimInput(question)
	if question == "" {
		return "", ErrEmptyInput
	}

	rec, err := p.store.Get(ctx, reportID)
	if err != nil {
		return "", err
	}

	answer, err := p.complete(ctx, KindQuestion, questionPrompt(rec.Content, question), newEmitter(opts))
	if err != nil {
		p.l.Warnf(ctx, "[authoring] ask about report %s failed: %v", reportID, err)
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return Clean(answer), nil
}

// complete runs one independent prompt under the per-call timeout and
// forwards fragments to the emitter.
func (p *Pipeline) complete(ctx context.Context, kind PromptKind, prompt string, em *emitter) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	task, err := p.gen.Generate(callCtx, prompt)
	if err != nil {
		return "", err
	}
	defer task.Cancel()

	// 上游可能不理会 ctx，超时或取消时直接返回，不等 Done。
	fragments := task.Fragments()
	for {
		select {
		case <-callCtx.Done():
			return "", callCtx.Err()
		case fragment, ok := <-fragments:
			if ok {
				em.emit(Event{Type: EventDelta, Kind: kind, Text: fragment})
				continue
			}
			<-task.Done()
			if err := task.Err(); err != nil {
				return "", err
			}
			if err := callCtx.Err(); err != nil {
				return "", err
			}
			return task.Text(), nil
		}
	}
}
