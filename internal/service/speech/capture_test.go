package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	speechmodel "github.com/zhouzirui/sirius-report/backend/internal/model/speech"
)

// fakeRecognizer 返回 "bytes=<n>"，失败次数可配置。
type fakeRecognizer struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeRecognizer) TranscribeBuffer(_ context.Context, sessionID string, audio []byte, _, language string) (*speechmodel.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, len(audio))
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.Result{SessionID: sessionID, Text: fmt.Sprintf("bytes=%d", len(audio))}, nil
}

func (f *fakeRecognizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestCapture(rec Recognizer, onError func(error)) *Capture {
	return NewCapture(rec, CaptureOptions{SessionID: "s1", Format: "pcm", Language: "de-DE", PartialBytes: 10, OnError: onError}, nil)
}

func TestCapturePartialAndFinalTranscript(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestCapture(rec, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	updates := c.Updates()

	if err := c.Feed(make([]byte, 12)); err != nil {
		t.Fatalf("Feed err: %v", err)
	}

	select {
	case text := <-updates:
		if text != "bytes=12" {
			t.Fatalf("unexpected partial transcript: %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no partial transcript")
	}
	if c.Transcript() != "bytes=12" {
		t.Fatalf("unexpected transcript: %q", c.Transcript())
	}

	if err := c.Feed(make([]byte, 3)); err != nil {
		t.Fatalf("Feed err: %v", err)
	}
	if got := c.Stop(); got != "bytes=15" {
		t.Fatalf("final transcript must cover the whole buffer, got %q", got)
	}
	if c.Running() {
		t.Fatal("capture should be stopped")
	}

	if _, ok := <-updates; ok {
		t.Fatal("updates must be closed after Stop")
	}
	if err := c.Feed([]byte{1}); !errors.Is(err, ErrCaptureStopped) {
		t.Fatalf("expected ErrCaptureStopped, got %v", err)
	}
}

func TestCaptureStopWithoutNewAudioSkipsRecognition(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestCapture(rec, nil)
	_ = c.Start(context.Background())
	updates := c.Updates()

	_ = c.Feed(make([]byte, 10))
	<-updates

	if got := c.Stop(); got != "bytes=10" {
		t.Fatalf("unexpected transcript: %q", got)
	}
	if rec.callCount() != 1 {
		t.Fatalf("expected a single recognition, got %d", rec.callCount())
	}
}

func TestCaptureStartIsNoOpWhileRunning(t *testing.T) {
	c := newTestCapture(&fakeRecognizer{}, nil)
	_ = c.Start(context.Background())
	_ = c.Feed([]byte{1, 2, 3})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start err: %v", err)
	}
	if got := c.Stop(); got != "bytes=3" {
		t.Fatalf("buffer must survive a second Start, got %q", got)
	}
}

func TestCaptureResetsOnRecognitionError(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("asr unavailable")}
	errCh := make(chan error, 1)
	c := newTestCapture(rec, func(err error) { errCh <- err })

	_ = c.Start(context.Background())
	updates := c.Updates()
	_ = c.Feed(make([]byte, 20))

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error callback")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reset was not reported")
	}

	if _, ok := <-updates; ok {
		t.Fatal("listeners must be released on reset")
	}
	if c.Running() || c.Transcript() != "" {
		t.Fatal("capture should be reset")
	}
	if got := c.Stop(); got != "" {
		t.Fatalf("stop after reset should yield empty transcript, got %q", got)
	}

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart err: %v", err)
	}
	_ = c.Feed([]byte{1})
	if got := c.Stop(); got != "bytes=1" {
		t.Fatalf("capture should work again after reset, got %q", got)
	}
}

func TestCaptureFinalRecognitionError(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("timeout")}
	var reported error
	c := newTestCapture(rec, func(err error) { reported = err })

	_ = c.Start(context.Background())
	_ = c.Feed([]byte{1, 2})

	if got := c.Stop(); got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
	if reported == nil {
		t.Fatal("expected error callback from final recognition")
	}
}

func TestServiceNewCaptureUsesConfigDefaults(t *testing.T) {
	rec := &fakeRecognizer{}
	svc := NewServiceWithRecognizer(testSpeechConfig(), rec, nil)

	c := svc.NewCapture("s9", speechmodel.StartOptions{Format: "pcm"}, nil)
	if c.opts.Language != "de-DE" || c.opts.PartialBytes != 32000 {
		t.Fatalf("unexpected capture options: %#v", c.opts)
	}
}

// gatedRecognizer 在 release 关闭前阻塞每次识别。
type gatedRecognizer struct {
	fakeRecognizer
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRecognizer) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Result, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.fakeRecognizer.TranscribeBuffer(ctx, sessionID, audio, format, language)
}

func TestCaptureRestartDuringFinalRecognition(t *testing.T) {
	rec := &gatedRecognizer{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := newTestCapture(rec, func(err error) { t.Errorf("unexpected error callback: %v", err) })

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	oldUpdates := c.Updates()
	if err := c.Feed(make([]byte, 3)); err != nil {
		t.Fatalf("Feed err: %v", err)
	}

	stopped := make(chan string, 1)
	go func() { stopped <- c.Stop() }()

	select {
	case <-rec.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("final recognition did not start")
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart err: %v", err)
	}
	newUpdates := c.Updates()
	if err := c.Feed(make([]byte, 2)); err != nil {
		t.Fatalf("Feed after restart err: %v", err)
	}
	close(rec.release)

	select {
	case got := <-stopped:
		if got != "bytes=3" {
			t.Fatalf("first Stop should return its own transcript, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if _, ok := <-oldUpdates; ok {
		t.Fatal("updates of the stopped capture must be closed")
	}
	select {
	case _, ok := <-newUpdates:
		if !ok {
			t.Fatal("updates of the restarted capture must stay open")
		}
	default:
	}
	if !c.Running() {
		t.Fatal("restarted capture should still be running")
	}
	if got := c.Stop(); got != "bytes=2" {
		t.Fatalf("restarted capture lost its audio, got %q", got)
	}
}
