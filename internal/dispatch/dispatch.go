// Package dispatch runs provider calls off the caller's goroutine, one at a
// time, and reports their progress on a channel.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/alnah/go-somas/internal/provider"
)

// Sentinel errors.
var (
	// ErrBusy is returned under PolicyReject while a call is in flight.
	ErrBusy = errors.New("a dispatch is already in flight")

	// ErrNoClient indicates Dispatch was called without a provider client.
	ErrNoClient = errors.New("no provider client")
)

// Policy decides what a new dispatch does while another one is in flight.
type Policy int

const (
	// PolicyQueue waits behind the running call, in arrival order.
	PolicyQueue Policy = iota
	// PolicyReject fails fast with ErrBusy.
	PolicyReject
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "queue"
}

// abandonedMessage is the error message of a call cancelled before it ran.
const abandonedMessage = "Anfrage abgebrochen"

// Dispatcher owns a single slot. At most one SendPrompt runs at any time.
type Dispatcher struct {
	slot   *semaphore.Weighted
	policy Policy
	logger *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPolicy sets the busy policy. Default is PolicyQueue.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns an idle Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		slot:   semaphore.NewWeighted(1),
		policy: PolicyQueue,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the configured busy policy.
func (d *Dispatcher) Policy() Policy {
	return d.policy
}

// Dispatch starts sending prompt to model and returns immediately.
// The returned Job has already emitted StatusSending. Cancelling ctx has the
// same effect as Job.Abandon except that the terminal error is reported.
func (d *Dispatcher) Dispatch(ctx context.Context, client provider.Client, prompt, model string) (*Job, error) {
	if client == nil {
		return nil, ErrNoClient
	}

	acquired := false
	if d.policy == PolicyReject {
		if !d.slot.TryAcquire(1) {
			return nil, ErrBusy
		}
		acquired = true
	}

	ctx, cancel := context.WithCancel(ctx)
	job := newJob(cancel)
	job.emit(provider.StatusSending)

	go d.run(ctx, job, client, prompt, model, acquired)
	return job, nil
}

// Send dispatches and waits for the terminal response.
func (d *Dispatcher) Send(ctx context.Context, client provider.Client, prompt, model string) (provider.Response, error) {
	job, err := d.Dispatch(ctx, client, prompt, model)
	if err != nil {
		return provider.Response{}, err
	}
	resp, _ := job.Wait()
	return resp, nil
}

func (d *Dispatcher) run(ctx context.Context, job *Job, client provider.Client, prompt, model string, acquired bool) {
	defer job.cancel()

	log := d.logger.With(zap.String("provider", client.ID()), zap.String("model", model))

	if !acquired {
		if err := d.slot.Acquire(ctx, 1); err != nil {
			log.Debug("dispatch cancelled while queued")
			job.finish(provider.Response{
				Status:       provider.StatusError,
				ErrorMessage: abandonedMessage,
				ModelUsed:    model,
				ProviderUsed: client.ID(),
				Err:          err,
			})
			return
		}
	}

	job.emit(provider.StatusProcessing)
	start := time.Now()
	resp := client.SendPrompt(ctx, prompt, model)
	// Free the slot before Done fires so a follow-up dispatch is accepted.
	d.slot.Release(1)
	log.Debug("dispatch finished",
		zap.Stringer("status", resp.Status),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("tokens", resp.TokensUsed))

	if !resp.Status.Terminal() {
		if resp.ErrorMessage == "" {
			resp.ErrorMessage = "Ungültiger Status: " + resp.Status.String()
		}
		resp.Status = provider.StatusError
		resp.Content = ""
	}
	if job.finish(resp) {
		log.Info("result of abandoned dispatch discarded")
	}
}

// Job is one dispatched call.
type Job struct {
	events    chan provider.Status
	done      chan struct{}
	abandonCh chan struct{}
	cancel    context.CancelFunc
	once      sync.Once

	mu        sync.Mutex
	status    provider.Status
	resp      provider.Response
	abandoned bool
}

func newJob(cancel context.CancelFunc) *Job {
	return &Job{
		// sending, processing and the terminal state
		events:    make(chan provider.Status, 3),
		done:      make(chan struct{}),
		abandonCh: make(chan struct{}),
		cancel:    cancel,
	}
}

// Events delivers the status progression. The channel is buffered and is
// closed after the terminal status, or without one when the job was abandoned.
func (j *Job) Events() <-chan provider.Status {
	return j.events
}

// Done is closed when the call has returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Status returns the latest status.
func (j *Job) Status() provider.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Wait blocks until the call finishes or the job is abandoned. ok is false
// for an abandoned job, whose result is discarded.
func (j *Job) Wait() (resp provider.Response, ok bool) {
	select {
	case <-j.done:
	case <-j.abandonCh:
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.abandoned {
		return provider.Response{}, false
	}
	return j.resp, true
}

// Abandon stops waiting for the call. The context passed to the provider is
// cancelled, but the remote service may still complete the request.
// Abandoning a finished job is a no-op.
func (j *Job) Abandon() {
	j.mu.Lock()
	if j.status.Terminal() {
		j.mu.Unlock()
		return
	}
	j.abandoned = true
	j.mu.Unlock()

	j.once.Do(func() { close(j.abandonCh) })
	j.cancel()
}

func (j *Job) emit(s provider.Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.abandoned {
		return
	}
	j.status = s
	j.events <- s
}

// finish records the terminal response and closes the channels. It reports
// whether the result was discarded.
func (j *Job) finish(resp provider.Response) (discarded bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.abandoned {
		j.status = resp.Status
		j.resp = resp
		j.events <- resp.Status
	}
	close(j.events)
	close(j.done)
	return j.abandoned
}
