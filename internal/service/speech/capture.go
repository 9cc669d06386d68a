package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

// ErrCaptureStopped is returned by Feed when no capture is running.
var ErrCaptureStopped = errors.New("speech capture is not running")

const defaultPartialBytes = 32000

// CaptureOptions 描述一次录音的参数。
type CaptureOptions struct {
	SessionID    string
	Format       string
	Language     string
	PartialBytes int
	// OnError 识别失败并内部重置后回调，可为空。
	OnError func(error)
}

// Capture accumulates dictated audio and re-recognizes the whole buffer
// every PartialBytes, giving an evolving best-effort transcript. A failed
// recognition resets the capture; the error never reaches the caller of Stop.
type Capture struct {
	rec  Recognizer
	opts CaptureOptions
	l    log.Logger

	mu          sync.Mutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	buf         []byte
	pending     int
	recognizing bool
	transcript  string
	updates     chan string
	gen         uint64
}

// NewCapture creates a stopped capture.
func NewCapture(rec Recognizer, opts CaptureOptions, l log.Logger) *Capture {
	if opts.PartialBytes <= 0 {
		opts.PartialBytes = defaultPartialBytes
	}
	if l == nil {
		l = log.NewNop()
	}
	closed := make(chan string)
	close(closed)
	return &Capture{rec: rec, opts: opts, l: l, updates: closed}
}

// Start begins a new capture. Calling Start while running is a no-op.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.buf = nil
	c.pending = 0
	c.recognizing = false
	c.transcript = ""
	c.updates = make(chan string, 8)
	c.gen++
	c.l.Debugf(ctx, "[capture] started session=%s", c.opts.SessionID)
	return nil
}

// Running reports whether audio is being accepted.
func (c *Capture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Feed appends a chunk of audio. Recognition runs in the background once
// enough new audio has accumulated.
func (c *Capture) Feed(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrCaptureStopped
	}
	if len(chunk) == 0 {
		return nil
	}
	c.buf = append(c.buf, chunk...)
	c.pending += len(chunk)

	if c.pending >= c.opts.PartialBytes && !c.recognizing {
		c.recognizing = true
		c.pending = 0
		audio := append([]byte(nil), c.buf...)
		go c.recognizePartial(c.ctx, c.gen, audio)
	}
	return nil
}

func (c *Capture) recognizePartial(ctx context.Context, gen uint64, audio []byte) {
	res, err := c.rec.TranscribeBuffer(ctx, c.opts.SessionID, audio, c.opts.Format, c.opts.Language)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.recognizing = false
	if err != nil {
		c.resetLocked(err)
		c.mu.Unlock()
		c.notify(err)
		return
	}
	c.transcript = res.Text
	select {
	case c.updates <- res.Text:
	default:
	}
	c.mu.Unlock()
}

// Stop ends the capture and returns the final transcript. Audio that arrived
// after the last partial recognition is recognized once more.
func (c *Capture) Stop() string {
	c.mu.Lock()
	if !c.running {
		transcript := c.transcript
		c.mu.Unlock()
		return transcript
	}

	c.running = false
	c.gen++
	gen, updates := c.gen, c.updates
	needFinal := len(c.buf) > 0 && (c.pending > 0 || c.recognizing)
	audio := c.buf
	transcript := c.transcript
	ctx, cancel := c.ctx, c.cancel
	c.mu.Unlock()
	defer cancel()

	var finalErr error
	if needFinal {
		res, err := c.rec.TranscribeBuffer(ctx, c.opts.SessionID, audio, c.opts.Format, c.opts.Language)
		if err != nil {
			finalErr = err
		} else {
			transcript = res.Text
		}
	}

	c.mu.Lock()
	if c.gen != gen {
		// 识别期间已重新 Start，只收尾本次录音，不动新的状态。
		c.mu.Unlock()
		close(updates)
		if finalErr != nil {
			c.l.Warnf(ctx, "[capture] final recognition failed after restart session=%s: %v", c.opts.SessionID, finalErr)
			return ""
		}
		return transcript
	}
	if finalErr != nil {
		c.resetLocked(finalErr)
		c.mu.Unlock()
		c.notify(finalErr)
		return ""
	}
	c.buf = nil
	c.pending = 0
	c.recognizing = false
	c.transcript = transcript
	close(c.updates)
	c.mu.Unlock()

	c.l.Debugf(ctx, "[capture] stopped session=%s transcript_len=%d", c.opts.SessionID, len(transcript))
	return transcript
}

// Transcript returns the best-effort transcript so far.
func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Updates delivers partial transcripts; it is closed on Stop or reset.
func (c *Capture) Updates() <-chan string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// resetLocked clears buffer and transcript and releases listeners.
// Must hold c.mu.
func (c *Capture) resetLocked(err error) {
	c.l.Warnf(c.ctx, "[capture] recognition failed, resetting session=%s: %v", c.opts.SessionID, err)
	c.gen++
	c.running = false
	c.buf = nil
	c.pending = 0
	c.recognizing = false
	c.transcript = ""
	if c.cancel != nil {
		c.cancel()
	}
	close(c.updates)
}

func (c *Capture) notify(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}
