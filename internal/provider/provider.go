// Package provider adapts remote completion services behind one interface.
//
// Every adapter lists models, from a static table or a live endpoint with
// static fallback, and sends a prompt as an OpenAI-compatible chat request.
// Expected failures (HTTP errors, timeouts, malformed JSON) never surface as
// Go errors: they come back as a Response with StatusError.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default limits.
const (
	// DefaultTimeout bounds a single chat call. Completions are long-form.
	DefaultTimeout = 2 * time.Minute

	// DefaultModelsTimeout bounds a live model listing.
	DefaultModelsTimeout = 15 * time.Second

	// maxResponseSize prevents OOM from malformed responses (10MB).
	maxResponseSize = 10 * 1024 * 1024
)

// Client is the capability set of one remote service.
type Client interface {
	// ID returns the provider ID, e.g. "perplexity".
	ID() string
	// Name returns the display name.
	Name() string
	// ListModels never fails: live listing errors fall back to the static table.
	ListModels(ctx context.Context) []Model
	// SendPrompt blocks until the call resolves or times out. An empty model
	// selects the provider default.
	SendPrompt(ctx context.Context, prompt, model string) Response
}

// Model describes one selectable model.
type Model struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"name"`
	Description   string `yaml:"description"`
	ContextLength int    `yaml:"context_length"`
	Pricing       string `yaml:"pricing"`
}

// Response is the outcome of one SendPrompt call. For a terminal status
// exactly one of Content and ErrorMessage is set.
type Response struct {
	Status       Status
	Content      string
	ErrorMessage string
	ModelUsed    string
	ProviderUsed string
	TokensUsed   int
	// Citations lists source URLs when the service returns them.
	Citations []string
	// Err is the classified apierr sentinel for StatusError responses.
	Err error
}

// OK reports whether the call produced content.
func (r Response) OK() bool {
	return r.Status == StatusReceived
}

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	baseURL       string
	httpClient    httpDoer
	timeout       time.Duration
	modelsTimeout time.Duration
	logger        *zap.Logger
}

// WithBaseURL sets a custom base URL (for testing or proxies).
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(c httpDoer) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout sets the chat timeout. Default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithModelsTimeout sets the live model listing timeout.
func WithModelsTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.modelsTimeout = d
		}
	}
}

// WithLogger sets the diagnostic logger. The API key is never logged.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns the adapter for def. Known IDs get their dedicated adapter,
// other definitions a generic OpenAI-compatible one.
func New(def Definition, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", def.ID, ErrEmptyAPIKey)
	}
	switch def.ID {
	case Perplexity:
		return NewPerplexity(def, apiKey, opts...), nil
	case OpenRouter:
		return NewOpenRouter(def, apiKey, opts...), nil
	case DeepSeek:
		return NewDeepSeek(def, apiKey, opts...), nil
	case OpenAI:
		return NewOpenAI(def, apiKey, opts...), nil
	default:
		return NewCompatible(def, apiKey, opts...), nil
	}
}
