package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/analysis"
	"github.com/alnah/go-somas/internal/config"
	"github.com/alnah/go-somas/internal/ledger"
	"github.com/alnah/go-somas/internal/preset"
	"github.com/alnah/go-somas/internal/provider"
	"github.com/alnah/go-somas/internal/secret"
	"github.com/alnah/go-somas/internal/source"
	"github.com/alnah/go-somas/internal/template"
)

// ledgerFile is the ledger database name inside the data directory.
const ledgerFile = "ledger.db"

// templatesDir is the template overlay directory inside the config directory.
const templatesDir = "templates"

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time
	// Logger is replaced by the root command once --verbose is parsed.
	Logger *zap.Logger

	// Loaders and factories for domain objects
	ConfigLoader    ConfigLoader
	Catalogs        CatalogLoader
	Templates       TemplateLoader
	Definitions     DefinitionsLoader
	ProviderFactory ProviderFactory
	LedgerOpener    LedgerOpener
	FetcherFactory  FetcherFactory
	Secrets         secret.Store
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
	Save(key, value string) error
}

// CatalogLoader loads the preset catalog.
type CatalogLoader interface {
	LoadCatalog() (*preset.Catalog, error)
}

// TemplateLoader loads the prompt template renderer.
type TemplateLoader interface {
	LoadRenderer() (*template.Renderer, error)
}

// DefinitionsLoader loads the provider definitions.
type DefinitionsLoader interface {
	LoadDefinitions() (provider.Definitions, error)
}

// ProviderFactory creates provider clients.
type ProviderFactory interface {
	NewClient(def provider.Definition, apiKey string, opts ...provider.Option) (provider.Client, error)
}

// Ledger is the part of *ledger.Store used by commands.
type Ledger interface {
	Record(ctx context.Context, rec ledger.Record) (string, error)
	SetChosenModule(ctx context.Context, id string, m analysis.Module) error
	RecentModules(ctx context.Context, n int) ([]analysis.Module, error)
	Recent(ctx context.Context, n int) ([]ledger.Record, error)
	ResolveID(ctx context.Context, ref string) (string, error)
	RateModel(ctx context.Context, id string, z int) error
	SaveChannelRating(ctx context.Context, c ledger.ChannelRating) error
	ChannelRating(ctx context.Context, channel string) (ledger.ChannelRating, error)
	Channels(ctx context.Context) ([]ledger.ChannelRating, error)
	Close() error
}

// LedgerOpener opens the module ledger.
type LedgerOpener interface {
	OpenLedger(ctx context.Context, vocab analysis.Vocabulary, logger *zap.Logger) (Ledger, error)
}

// FetcherFactory creates video source fetchers.
type FetcherFactory interface {
	NewFetcher(language string, logger *zap.Logger) source.Fetcher
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdin sets the stdin reader.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) {
		e.Stdin = r
	}
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithProviderFactory sets the provider factory.
func WithProviderFactory(f ProviderFactory) EnvOption {
	return func(e *Env) {
		e.ProviderFactory = f
	}
}

// WithLedgerOpener sets the ledger opener.
func WithLedgerOpener(o LedgerOpener) EnvOption {
	return func(e *Env) {
		e.LedgerOpener = o
	}
}

// WithFetcherFactory sets the fetcher factory.
func WithFetcherFactory(f FetcherFactory) EnvOption {
	return func(e *Env) {
		e.FetcherFactory = f
	}
}

// WithSecrets sets the secret store.
func WithSecrets(s secret.Store) EnvOption {
	return func(e *Env) {
		e.Secrets = s
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		Getenv:          os.Getenv,
		Now:             time.Now,
		Logger:          zap.NewNop(),
		ConfigLoader:    &defaultConfigLoader{},
		Catalogs:        &defaultCatalogLoader{},
		Templates:       &defaultTemplateLoader{},
		Definitions:     &defaultDefinitionsLoader{},
		ProviderFactory: &defaultProviderFactory{},
		LedgerOpener:    &defaultLedgerOpener{},
		FetcherFactory:  &defaultFetcherFactory{},
		Secrets:         secret.NewKeyring(secret.Service),
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

func (defaultConfigLoader) Save(key, value string) error {
	return config.Save(key, value)
}

// defaultCatalogLoader reads presets.yaml from the config directory, falling
// back to the built-in catalog.
type defaultCatalogLoader struct{}

func (defaultCatalogLoader) LoadCatalog() (*preset.Catalog, error) {
	dir, err := config.Dir()
	if err != nil {
		return preset.Builtin()
	}
	return preset.Load(filepath.Join(dir, preset.FileName))
}

// defaultTemplateLoader overlays templates from the config directory when
// that directory exists.
type defaultTemplateLoader struct{}

func (defaultTemplateLoader) LoadRenderer() (*template.Renderer, error) {
	dir, err := config.Dir()
	if err != nil {
		return template.New()
	}
	overlay := filepath.Join(dir, templatesDir)
	if _, err := os.Stat(overlay); errors.Is(err, fs.ErrNotExist) {
		return template.New()
	}
	return template.New(template.WithDir(overlay))
}

// defaultDefinitionsLoader reads providers.yaml from the config directory,
// falling back to the built-in definitions.
type defaultDefinitionsLoader struct{}

func (defaultDefinitionsLoader) LoadDefinitions() (provider.Definitions, error) {
	dir, err := config.Dir()
	if err != nil {
		return provider.BuiltinDefinitions()
	}
	return provider.LoadDefinitions(filepath.Join(dir, provider.DefinitionsFile))
}

// defaultProviderFactory implements ProviderFactory using the provider package.
type defaultProviderFactory struct{}

func (defaultProviderFactory) NewClient(def provider.Definition, apiKey string, opts ...provider.Option) (provider.Client, error) {
	return provider.New(def, apiKey, opts...)
}

// defaultLedgerOpener opens the SQLite ledger in the data directory.
type defaultLedgerOpener struct{}

func (defaultLedgerOpener) OpenLedger(ctx context.Context, vocab analysis.Vocabulary, logger *zap.Logger) (Ledger, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(ctx, filepath.Join(dir, ledgerFile),
		ledger.WithVocabulary(vocab), ledger.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return store, nil
}

// defaultFetcherFactory implements FetcherFactory with yt-dlp.
type defaultFetcherFactory struct{}

func (defaultFetcherFactory) NewFetcher(language string, logger *zap.Logger) source.Fetcher {
	return source.NewYtDlp(source.WithLanguage(language), source.WithLogger(logger))
}

// Compile-time interface verification.
var (
	_ ConfigLoader      = (*defaultConfigLoader)(nil)
	_ CatalogLoader     = (*defaultCatalogLoader)(nil)
	_ TemplateLoader    = (*defaultTemplateLoader)(nil)
	_ DefinitionsLoader = (*defaultDefinitionsLoader)(nil)
	_ ProviderFactory   = (*defaultProviderFactory)(nil)
	_ LedgerOpener      = (*defaultLedgerOpener)(nil)
	_ FetcherFactory    = (*defaultFetcherFactory)(nil)
	_ Ledger            = (*ledger.Store)(nil)
)
