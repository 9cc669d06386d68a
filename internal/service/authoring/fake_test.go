package authoring

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/ai"
)

// fakeGenerator answers each prompt kind with a scripted response.
type fakeGenerator struct {
	mu        sync.Mutex
	responses map[PromptKind]string
	errs      map[PromptKind]error
	block     map[PromptKind]bool
	stall     map[PromptKind]bool
	release   chan struct{}
	prompts   map[PromptKind][]string
	started   chan PromptKind
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		responses: map[PromptKind]string{
			KindDate:     "2025-07-27T15:04:00Z",
			KindLocation: "Hauptstraße 5, Berlin",
			KindKeywords: "Einbruch, Sachschaden, Zeuge",
		},
		errs:    map[PromptKind]error{},
		block:   map[PromptKind]bool{},
		stall:   map[PromptKind]bool{},
		release: make(chan struct{}),
		prompts: map[PromptKind][]string{},
		started: make(chan PromptKind, 16),
	}
}

func kindOf(prompt string) PromptKind {
	switch {
	case strings.Contains(prompt, "Analysiere den folgenden Bericht"):
		return KindClarification
	case strings.Contains(prompt, "Erstelle aus diesen Informationen"):
		return KindReport
	case strings.Contains(prompt, "Finde Datum und Uhrzeit"):
		return KindDate
	case strings.Contains(prompt, "Wo fand der Vorfall statt"):
		return KindLocation
	case strings.Contains(prompt, "Nenne drei prägnante Keywords"):
		return KindKeywords
	default:
		return KindQuestion
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*ai.Task, error) {
	kind := kindOf(prompt)

	f.mu.Lock()
	f.prompts[kind] = append(f.prompts[kind], prompt)
	response, err, block, stall := f.responses[kind], f.errs[kind], f.block[kind], f.stall[kind]
	f.mu.Unlock()

	select {
	case f.started <- kind:
	default:
	}

	sr, sw := schema.Pipe[*schema.Message](4)
	go func() {
		defer sw.Close()
		if stall {
			// 上游不理会 ctx，既不发送也不关闭。
			<-f.release
			return
		}
		if block {
			<-ctx.Done()
			sw.Send(nil, ctx.Err())
			return
		}
		if err != nil {
			sw.Send(nil, err)
			return
		}
		half := len(response) / 2
		for half > 0 && half < len(response) && !utf8Start(response[half]) {
			half++
		}
		for _, chunk := range []string{response[:half], response[half:]} {
			if sw.Send(schema.AssistantMessage(chunk, nil), nil) {
				return
			}
		}
	}()
	return ai.NewStreamTask(ctx, sr), nil
}

func (f *fakeGenerator) set(kind PromptKind, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[kind] = response
}

func (f *fakeGenerator) fail(kind PromptKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind] = err
}

func (f *fakeGenerator) hang(kind PromptKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[kind] = true
}

// stallOn makes kind's stream ignore ctx until the test ends.
func (f *fakeGenerator) stallOn(t *testing.T, kind PromptKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stall) == 0 {
		t.Cleanup(func() { close(f.release) })
	}
	f.stall[kind] = true
}

func (f *fakeGenerator) promptsFor(kind PromptKind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts[kind]...)
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

type failingStore struct {
	report.Store
}

func (failingStore) Save(context.Context, report.Report) (report.Report, error) {
	return report.Report{}, errors.New("disk full")
}
