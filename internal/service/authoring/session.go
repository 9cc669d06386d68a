package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

// Session is one report-authoring conversation. Mutating calls are
// serialized: a second call while one is running fails with ErrSessionBusy.
type Session struct {
	id string
	p  *Pipeline

	opMu     sync.Mutex
	cancelMu sync.Mutex
	cancelOp context.CancelFunc

	mu           sync.RWMutex
	state        chat.State
	collected    string
	questions    []string
	lastReportID string
	lastErr      string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewSession starts a fresh session in the idle state.
func (p *Pipeline) NewSession() *Session {
	now := p.now()
	return &Session{
		id:        uuid.NewString(),
		p:         p,
		state:     chat.StateIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() chat.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() chat.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.Snapshot{
		ID:               s.id,
		State:            s.state,
		CollectedText:    s.collected,
		PendingQuestions: append([]string{}, s.questions...),
		LastReportID:     s.lastReportID,
		LastError:        s.lastErr,
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
}

func (s *Session) lastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// BeginRecording marks that dictation started. From waitingForAnswer the
// state is kept because the dictated text becomes the answer.
func (s *Session) BeginRecording() (chat.Snapshot, error) {
	if !s.opMu.TryLock() {
		return s.Snapshot(), ErrSessionBusy
	}
	defer s.opMu.Unlock()

	switch s.State() {
	case chat.StateIdle, chat.StateCompleted:
		s.update(func() {
			s.state = chat.StateRecording
			s.lastErr = ""
		})
	case chat.StateRecording, chat.StateWaitingForAnswer:
	default:
		return s.Snapshot(), ErrInvalidState
	}
	return s.Snapshot(), nil
}

// CancelRecording returns a recording session to idle when dictation ended
// without any text.
func (s *Session) CancelRecording() chat.Snapshot {
	if !s.opMu.TryLock() {
		return s.Snapshot()
	}
	defer s.opMu.Unlock()

	if s.State() == chat.StateRecording {
		s.update(func() { s.state = chat.StateIdle })
	}
	return s.Snapshot()
}

// SubmitDescription starts a new report from the officer's account and runs
// the clarification analysis. A completed session is reset implicitly.
func (s *Session) SubmitDescription(ctx context.Context, text string, opts ...Option) (chat.Snapshot, error) {
	text = trimInput(text)
	if text == "" {
		return s.Snapshot(), ErrEmptyInput
	}
	if !s.opMu.TryLock() {
		return s.Snapshot(), ErrSessionBusy
	}
	defer s.opMu.Unlock()

	switch s.State() {
	case chat.StateIdle, chat.StateRecording, chat.StateCompleted:
	default:
		return s.Snapshot(), ErrInvalidState
	}

	ctx, done := s.begin(ctx)
	defer done()
	em := newEmitter(opts)

	s.update(func() {
		s.collected = text
		s.questions = nil
		s.lastReportID = ""
		s.lastErr = ""
	})
	s.transition(chat.StateProcessing, em)

	response, err := s.p.complete(ctx, KindClarification, clarificationPrompt(text), em)
	if err != nil {
		return s.fail(ctx, "analysis", err, em)
	}

	cleaned := Clean(response)
	if IsComplete(cleaned) {
		s.p.l.Infof(ctx, "[authoring] session %s: description complete, generating report", s.id)
		return s.generate(ctx, em)
	}

	questions := ParseQuestions(cleaned)
	s.update(func() {
		s.questions = questions
		s.state = chat.StateWaitingForAnswer
	})
	em.emit(Event{Type: EventState, State: chat.StateWaitingForAnswer})
	em.emit(Event{Type: EventQuestions, Questions: append([]string{}, questions...)})
	s.p.l.Infof(ctx, "[authoring] session %s: %d clarification questions", s.id, len(questions))
	return s.Snapshot(), nil
}

// SubmitAnswer appends the answer to the collected text and always proceeds
// to report generation; there is only one clarification round.
func (s *Session) SubmitAnswer(ctx context.Context, text string, opts ...Option) (chat.Snapshot, error) {
	text = trimInput(text)
	if text == "" {
		return s.Snapshot(), ErrEmptyInput
	}
	if !s.opMu.TryLock() {
		return s.Snapshot(), ErrSessionBusy
	}
	defer s.opMu.Unlock()

	if s.State() != chat.StateWaitingForAnswer {
		return s.Snapshot(), ErrInvalidState
	}

	ctx, done := s.begin(ctx)
	defer done()
	em := newEmitter(opts)

	s.update(func() {
		s.collected = s.collected + " " + text
		s.questions = nil
	})
	return s.generate(ctx, em)
}

// Reset cancels any running operation and returns the session to idle.
func (s *Session) Reset() chat.Snapshot {
	s.cancelMu.Lock()
	if s.cancelOp != nil {
		s.cancelOp()
	}
	s.cancelMu.Unlock()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.update(func() {
		s.state = chat.StateIdle
		s.collected = ""
		s.questions = nil
		s.lastErr = ""
	})
	return s.Snapshot()
}

func (s *Session) generate(ctx context.Context, em *emitter) (chat.Snapshot, error) {
	s.transition(chat.StateGenerating, em)
	collected := s.Snapshot().CollectedText

	raw, err := s.p.complete(ctx, KindReport, reportPrompt(collected), em)
	if err != nil {
		return s.fail(ctx, "report generation", err, em)
	}
	parsed := ParseReport(raw, s.p.cfg.Officer)

	meta := s.p.extractMetadata(ctx, collected, em)
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, "metadata extraction", err, em)
	}

	rec := report.Report{
		Title:    parsed.Title,
		Content:  parsed.Body,
		RawText:  collected,
		Location: meta.Location,
		Date:     meta.Date,
		Officer:  parsed.Officer,
		Tags:     meta.Keywords,
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	saved, err := s.p.store.Save(persistCtx, rec)
	if err != nil {
		s.p.l.Errorf(ctx, "[authoring] session %s: save report failed: %v", s.id, err)
		s.update(func() {
			s.state = chat.StateCompleted
			s.lastErr = err.Error()
		})
		em.emit(Event{Type: EventState, State: chat.StateCompleted})
		return s.Snapshot(), fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.update(func() {
		s.state = chat.StateCompleted
		s.lastReportID = saved.ID
	})
	em.emit(Event{Type: EventState, State: chat.StateCompleted})
	em.emit(Event{Type: EventReport, Report: &saved})
	s.p.l.Infof(ctx, "[authoring] session %s: report %s saved", s.id, saved.ID)
	return s.Snapshot(), nil
}

// fail returns the session to idle after a failed model call. The collected
// text survives (including an appended answer); pending questions do not.
func (s *Session) fail(ctx context.Context, stage string, err error, em *emitter) (chat.Snapshot, error) {
	if errors.Is(err, context.Canceled) {
		s.p.l.Infof(ctx, "[authoring] session %s: %s canceled", s.id, stage)
	} else {
		s.p.l.Warnf(ctx, "[authoring] session %s: %s failed: %v", s.id, stage, err)
	}

	s.update(func() {
		s.state = chat.StateIdle
		s.questions = nil
		s.lastErr = err.Error()
	})
	em.emit(Event{Type: EventState, State: chat.StateIdle})
	return s.Snapshot(), fmt.Errorf("%w: %s: %w", ErrGenerationFailed, stage, err)
}

// begin registers a cancel func so Reset can abort the running operation.
func (s *Session) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	s.cancelMu.Lock()
	s.cancelOp = cancel
	s.cancelMu.Unlock()

	return ctx, func() {
		s.cancelMu.Lock()
		s.cancelOp = nil
		s.cancelMu.Unlock()
		cancel()
	}
}

func (s *Session) transition(state chat.State, em *emitter) {
	s.update(func() { s.state = state })
	em.emit(Event{Type: EventState, State: state})
}

func (s *Session) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.updatedAt = s.p.now()
}

func trimInput(text string) string {
	return strings.TrimSpace(text)
}
