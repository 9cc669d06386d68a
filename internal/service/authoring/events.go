package authoring

import (
	"sync"

	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

// EventType 进度事件类型，与 SSE 的 event 名称一致。
type EventType string

const (
	EventState     EventType = "state"
	EventDelta     EventType = "delta"
	EventQuestions EventType = "questions"
	EventReport    EventType = "report"
)

// Event is a progress notification emitted while an operation runs.
type Event struct {
	Type      EventType      `json:"type"`
	State     chat.State     `json:"state,omitempty"`
	Kind      PromptKind     `json:"kind,omitempty"`
	Text      string         `json:"text,omitempty"`
	Questions []string       `json:"questions,omitempty"`
	Report    *report.Report `json:"report,omitempty"`
}

// Option configures a single mutating call.
type Option func(*callOptions)

type callOptions struct {
	observer func(Event)
}

// WithObserver registers fn for the duration of one call. Calls to fn are
// serialized even while metadata extraction runs concurrently.
func WithObserver(fn func(Event)) Option {
	return func(o *callOptions) {
		o.observer = fn
	}
}

type emitter struct {
	mu sync.Mutex
	fn func(Event)
}

func newEmitter(opts []Option) *emitter {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &emitter{fn: o.observer}
}

func (e *emitter) emit(ev Event) {
	if e == nil || e.fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fn(ev)
}
