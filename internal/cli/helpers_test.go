package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader *mockConfigLoader
	catalogs     *mockCatalogLoader
	templates    *mockTemplateLoader
	definitions  *mockDefinitionsLoader
	providers    *mockProviderFactory
	ledgers      *mockLedgerOpener
	fetchers     *mockFetcherFactory
	secrets      *mockSecretStore
	stdout       *syncBuffer
	stderr       *syncBuffer
}

func newTestMocks() *testMocks {
	return &testMocks{
		configLoader: &mockConfigLoader{},
		catalogs:     &mockCatalogLoader{},
		templates:    &mockTemplateLoader{},
		definitions:  &mockDefinitionsLoader{},
		providers:    &mockProviderFactory{},
		ledgers:      &mockLedgerOpener{},
		fetchers:     &mockFetcherFactory{},
		secrets:      newMockSecretStore(nil),
		stdout:       &syncBuffer{},
		stderr:       &syncBuffer{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdin  io.Reader
	getenv func(string) string
	now    func() time.Time
	logger *zap.Logger
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestStdin(s string) testEnvOption {
	return func(o *testEnvOptions) { o.stdin = strings.NewReader(s) }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestLogger(l *zap.Logger) testEnvOption {
	return func(o *testEnvOptions) { o.logger = l }
}

func withTestNow(fn func() time.Time) testEnvOption {
	return func(o *testEnvOptions) { o.now = fn }
}

// steppingNow returns a clock starting at base that advances by step on
// every call.
func steppingNow(base time.Time, step time.Duration) func() time.Time {
	var (
		mu    sync.Mutex
		calls int
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := base.Add(time.Duration(calls) * step)
		calls++
		return t
	}
}

func withTestConfig(cfg config.Config) testEnvOption {
	return func(o *testEnvOptions) {
		o.mocks.configLoader.LoadFunc = func() (config.Config, error) { return cfg, nil }
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		stdin:  strings.NewReader(""),
		getenv: defaultTestEnv,
		now: func() time.Time {
			return time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)
		},
		logger: zap.NewNop(),
		mocks:  newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	m := options.mocks
	env := &Env{
		Stdin:           options.stdin,
		Stdout:          m.stdout,
		Stderr:          m.stderr,
		Getenv:          options.getenv,
		Now:             options.now,
		Logger:          options.logger,
		ConfigLoader:    m.configLoader,
		Catalogs:        m.catalogs,
		Templates:       m.templates,
		Definitions:     m.definitions,
		ProviderFactory: m.providers,
		LedgerOpener:    m.ledgers,
		FetcherFactory:  m.fetchers,
		Secrets:         m.secrets,
	}

	return env, m
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns a Perplexity API key only.
func defaultTestEnv(key string) string {
	if key == "PERPLEXITY_API_KEY" {
		return "pplx-test-key"
	}
	return ""
}

// execute runs cmd with args and a background context.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	return executeContext(context.Background(), cmd, args...)
}

// executeContext runs cmd with args under ctx, discarding cobra's own output.
func executeContext(ctx context.Context, cmd *cobra.Command, args ...string) error {
	// A nil slice makes cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(ctx)
}
