package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Task is a running generation. Fragments arrive on Fragments() until the
// channel is closed; Err and Text are final once Done is closed.
type Task struct {
	fragments chan string
	done      chan struct{}
	cancel    context.CancelFunc

	mu   sync.Mutex
	text strings.Builder
	err  error
}

func newTask(parent context.Context) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		fragments: make(chan string, 16),
		done:      make(chan struct{}),
		cancel:    cancel,
	}, ctx
}

// NewStreamTask wraps a message stream that was opened outside the chain,
// e.g. by another model client.
func NewStreamTask(ctx context.Context, stream *schema.StreamReader[*schema.Message]) *Task {
	task, taskCtx := newTask(ctx)
	go task.pump(taskCtx, stream)
	return task
}

// Fragments 返回文本片段通道，生成结束（成功或失败）后关闭。
func (t *Task) Fragments() <-chan string {
	return t.fragments
}

// Done is closed after the final fragment has been delivered.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel 取消生成的 ctx，可重复调用。上游不理会 ctx 时 pump 仍要等 Recv 返回。
func (t *Task) Cancel() {
	t.cancel()
}

// Err returns the terminal error, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Text returns everything generated so far.
func (t *Task) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text.String()
}

// Wait drains any unread fragments and blocks until the task finishes.
func (t *Task) Wait() (string, error) {
	for range t.fragments {
	}
	<-t.done
	return t.Text(), t.Err()
}

func (t *Task) emit(ctx context.Context, fragment string) bool {
	if fragment == "" {
		return true
	}

	t.mu.Lock()
	t.text.WriteString(fragment)
	t.mu.Unlock()

	select {
	case t.fragments <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()

	close(t.fragments)
	close(t.done)
	t.cancel()
}

// pump copies message chunks from an eino stream into the task.
func (t *Task) pump(ctx context.Context, stream *schema.StreamReader[*schema.Message]) {
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			t.finish(nil)
			return
		}
		if err != nil {
			t.finish(err)
			return
		}
		if chunk == nil {
			continue
		}
		if !t.emit(ctx, chunk.Content) {
			t.finish(ctx.Err())
			return
		}
	}
}
