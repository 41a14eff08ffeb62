// Package interrupt turns SIGINT/SIGTERM into context cancellation.
//
// The first signal cancels the context, which abandons an in-flight provider
// request and lets the command return normally. A second signal within the
// grace window exits the process at once.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitCode is the process exit status after a forced exit (128 + SIGINT).
const ExitCode = 130

// DefaultWindow is how long a second signal forces an exit.
const DefaultWindow = 2 * time.Second

const (
	stoppingMessage = "\nInterrupted, stopping (press Ctrl+C again to quit now)"
	forcedMessage   = "\nAborted."
)

// Handler watches a signal channel and cancels its context on the first signal.
type Handler struct {
	mu          sync.Mutex
	interrupted time.Time
	forced      bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}

	window time.Duration
	exit   func(int)
	now    func() time.Time
	stderr io.Writer
	notify bool
}

// Options holds injectable dependencies.
type Options struct {
	// SigCh delivers signals. No listener runs when nil.
	SigCh <-chan os.Signal
	// Window overrides DefaultWindow when positive.
	Window   time.Duration
	ExitFunc func(int)
	NowFunc  func() time.Time
	// Stderr receives user-facing messages. Must tolerate concurrent writes.
	Stderr io.Writer
}

// NewHandler listens for SIGINT and SIGTERM. The returned context is canceled
// on the first signal.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	h, ctx := NewHandlerWithOptions(parent, Options{SigCh: sigCh})
	h.notify = true
	return h, ctx
}

// NewHandlerWithOptions creates a handler with injected dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		cancel: cancel,
		done:   make(chan struct{}),
		window: DefaultWindow,
		exit:   os.Exit,
		now:    time.Now,
		stderr: os.Stderr,
	}
	if opts.Window > 0 {
		h.window = opts.Window
	}
	if opts.ExitFunc != nil {
		h.exit = opts.ExitFunc
	}
	if opts.NowFunc != nil {
		h.now = opts.NowFunc
	}
	if opts.Stderr != nil {
		h.stderr = opts.Stderr
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}
	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if h.handle() {
				return
			}
		}
	}
}

// handle processes one signal and reports whether listening should end.
func (h *Handler) handle() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return true
	}
	now := h.now()

	if h.interrupted.IsZero() {
		h.interrupted = now
		h.cancel()
		h.mu.Unlock()
		fmt.Fprintln(h.stderr, stoppingMessage)
		return false
	}

	if now.Sub(h.interrupted) > h.window {
		// Too late to count as a double press; restart the window.
		h.interrupted = now
		h.mu.Unlock()
		return false
	}

	h.forced = true
	h.mu.Unlock()
	fmt.Fprintln(h.stderr, forcedMessage)
	h.exit(ExitCode)
	return true
}

// Interrupted reports whether at least one signal arrived.
func (h *Handler) Interrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.interrupted.IsZero()
}

// Forced reports whether a second signal forced an exit.
func (h *Handler) Forced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forced
}

// Stop ends listening and releases the context. It is safe to call twice.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	if h.notify {
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	}
	close(h.done)
	h.cancel()
}
