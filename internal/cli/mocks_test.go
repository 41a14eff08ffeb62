package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

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

// Compile-time interface compliance checks.
var (
	_ ConfigLoader      = (*mockConfigLoader)(nil)
	_ CatalogLoader     = (*mockCatalogLoader)(nil)
	_ TemplateLoader    = (*mockTemplateLoader)(nil)
	_ DefinitionsLoader = (*mockDefinitionsLoader)(nil)
	_ ProviderFactory   = (*mockProviderFactory)(nil)
	_ provider.Client   = (*mockClient)(nil)
	_ LedgerOpener      = (*mockLedgerOpener)(nil)
	_ Ledger            = (*mockLedger)(nil)
	_ FetcherFactory    = (*mockFetcherFactory)(nil)
	_ source.Fetcher    = (*mockFetcher)(nil)
	_ secret.Store      = (*mockSecretStore)(nil)
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)
	SaveErr  error

	mu        sync.Mutex
	loadCalls int
	saved     map[string]string
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[key] = value
	return nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

func (m *mockConfigLoader) Saved() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.saved))
	for k, v := range m.saved {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Mock CatalogLoader, TemplateLoader, DefinitionsLoader
// ---------------------------------------------------------------------------

type mockCatalogLoader struct {
	LoadCatalogFunc func() (*preset.Catalog, error)
}

func (m *mockCatalogLoader) LoadCatalog() (*preset.Catalog, error) {
	if m.LoadCatalogFunc != nil {
		return m.LoadCatalogFunc()
	}
	return preset.Builtin()
}

type mockTemplateLoader struct {
	LoadRendererFunc func() (*template.Renderer, error)
}

func (m *mockTemplateLoader) LoadRenderer() (*template.Renderer, error) {
	if m.LoadRendererFunc != nil {
		return m.LoadRendererFunc()
	}
	return template.New()
}

type mockDefinitionsLoader struct {
	LoadDefinitionsFunc func() (provider.Definitions, error)
}

func (m *mockDefinitionsLoader) LoadDefinitions() (provider.Definitions, error) {
	if m.LoadDefinitionsFunc != nil {
		return m.LoadDefinitionsFunc()
	}
	return provider.BuiltinDefinitions()
}

// ---------------------------------------------------------------------------
// Mock ProviderFactory + Client
// ---------------------------------------------------------------------------

type mockProviderFactory struct {
	NewClientErr error
	client       *mockClient

	mu    sync.Mutex
	calls []clientCall
}

type clientCall struct {
	ProviderID string
	APIKey     string
}

func (m *mockProviderFactory) NewClient(def provider.Definition, apiKey string, _ ...provider.Option) (provider.Client, error) {
	m.mu.Lock()
	m.calls = append(m.calls, clientCall{ProviderID: def.ID, APIKey: apiKey})
	if m.client == nil {
		m.client = &mockClient{}
	}
	client := m.client
	m.mu.Unlock()

	if m.NewClientErr != nil {
		return nil, m.NewClientErr
	}
	client.setDefinition(def)
	return client, nil
}

func (m *mockProviderFactory) Calls() []clientCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clientCall(nil), m.calls...)
}

// Client returns the shared client, creating it on first use.
func (m *mockProviderFactory) Client() *mockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		m.client = &mockClient{}
	}
	return m.client
}

type mockClient struct {
	SendPromptFunc func(ctx context.Context, prompt, model string) provider.Response
	ListModelsFunc func(ctx context.Context) []provider.Model

	mu      sync.Mutex
	def     provider.Definition
	prompts []promptCall
}

type promptCall struct {
	Prompt string
	Model  string
}

func (m *mockClient) setDefinition(def provider.Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.def = def
}

func (m *mockClient) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.ID
}

func (m *mockClient) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.Name
}

func (m *mockClient) ListModels(ctx context.Context) []provider.Model {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.Models
}

func (m *mockClient) SendPrompt(ctx context.Context, prompt, model string) provider.Response {
	m.mu.Lock()
	m.prompts = append(m.prompts, promptCall{Prompt: prompt, Model: model})
	id := m.def.ID
	m.mu.Unlock()

	if m.SendPromptFunc != nil {
		return m.SendPromptFunc(ctx, prompt, model)
	}
	return provider.Response{
		Status:       provider.StatusReceived,
		Content:      "## Kernaussage\nText.\n\n## KRITIK\nEinwände.",
		ModelUsed:    model,
		ProviderUsed: id,
		TokensUsed:   321,
	}
}

func (m *mockClient) Prompts() []promptCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]promptCall(nil), m.prompts...)
}

// ---------------------------------------------------------------------------
// Mock LedgerOpener + Ledger
// ---------------------------------------------------------------------------

type mockLedgerOpener struct {
	OpenErr error
	ledger  *mockLedger

	mu        sync.Mutex
	openCalls int
}

func (m *mockLedgerOpener) OpenLedger(_ context.Context, _ analysis.Vocabulary, _ *zap.Logger) (Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.ledger == nil {
		m.ledger = &mockLedger{}
	}
	return m.ledger, nil
}

// Ledger returns the shared ledger, creating it on first use.
func (m *mockLedgerOpener) Ledger() *mockLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledger == nil {
		m.ledger = &mockLedger{}
	}
	return m.ledger
}

// mockLedger keeps records in memory, oldest first.
type mockLedger struct {
	RecordErr  error
	RecentErr  error
	ChannelErr error

	mu       sync.Mutex
	records  []ledger.Record
	channels map[string]ledger.ChannelRating
	closed   int
}

func (m *mockLedger) Record(_ context.Context, rec ledger.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return "", m.RecordErr
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("id-%d", len(m.records)+1)
	}
	rec.ChosenModule = ""
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *mockLedger) SetChosenModule(_ context.Context, id string, mod analysis.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if m.records[i].ChosenModule != "" {
			return fmt.Errorf("analysis %s: %w", id, ledger.ErrIntegrity)
		}
		m.records[i].ChosenModule = mod
		return nil
	}
	return fmt.Errorf("analysis %s: %w", id, ledger.ErrNotFound)
}

func (m *mockLedger) RecentModules(_ context.Context, n int) ([]analysis.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	var out []analysis.Module
	for i := len(m.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.records[i].ChosenModule)
	}
	return out, nil
}

func (m *mockLedger) Recent(_ context.Context, n int) ([]ledger.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	var out []ledger.Record
	for i := len(m.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockLedger) ResolveID(_ context.Context, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref == "last" {
		if len(m.records) == 0 {
			return "", fmt.Errorf("no analyses recorded: %w", ledger.ErrNotFound)
		}
		return m.records[len(m.records)-1].ID, nil
	}
	var matches []string
	for _, rec := range m.records {
		if rec.ID == ref {
			return ref, nil
		}
		if strings.HasSuffix(rec.ID, ref) {
			matches = append(matches, rec.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("analysis %s: %w", ref, ledger.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s: %w", ref, ledger.ErrAmbiguousID)
	}
}

func (m *mockLedger) RateModel(_ context.Context, id string, z int) error {
	if err := ledger.ValidateRating(z); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].ModelRating = z
			m.records[i].Rated = true
			return nil
		}
	}
	return fmt.Errorf("analysis %s: %w", id, ledger.ErrNotFound)
}

func (m *mockLedger) SaveChannelRating(_ context.Context, c ledger.ChannelRating) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChannelErr != nil {
		return m.ChannelErr
	}
	if m.channels == nil {
		m.channels = make(map[string]ledger.ChannelRating)
	}
	m.channels[c.Channel] = c
	return nil
}

func (m *mockLedger) ChannelRating(_ context.Context, channel string) (ledger.ChannelRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChannelErr != nil {
		return ledger.ChannelRating{}, m.ChannelErr
	}
	c, ok := m.channels[channel]
	if !ok {
		return ledger.ChannelRating{}, fmt.Errorf("channel %q: %w", channel, ledger.ErrUnrated)
	}
	return c, nil
}

func (m *mockLedger) Channels(_ context.Context) ([]ledger.ChannelRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChannelErr != nil {
		return nil, m.ChannelErr
	}
	out := make([]ledger.ChannelRating, 0, len(m.channels))
	for _, c := range m.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out, nil
}

func (m *mockLedger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// seed appends records with the given modules, oldest first.
func (m *mockLedger) seed(modules ...analysis.Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mod := range modules {
		m.records = append(m.records, ledger.Record{
			ID:           fmt.Sprintf("seed-%d", len(m.records)+1),
			PresetID:     "standard",
			Perspective:  "neutral",
			ChosenModule: mod,
		})
	}
}

// add appends fully specified records, oldest first.
func (m *mockLedger) add(recs ...ledger.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recs...)
}

func (m *mockLedger) Records() []ledger.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.Record(nil), m.records...)
}

func (m *mockLedger) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ---------------------------------------------------------------------------
// Mock FetcherFactory + Fetcher
// ---------------------------------------------------------------------------

type mockFetcherFactory struct {
	fetcher *mockFetcher

	mu        sync.Mutex
	languages []string
}

func (m *mockFetcherFactory) NewFetcher(language string, _ *zap.Logger) source.Fetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.languages = append(m.languages, language)
	if m.fetcher == nil {
		m.fetcher = &mockFetcher{}
	}
	return m.fetcher
}

func (m *mockFetcherFactory) Languages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.languages...)
}

type mockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (analysis.Fetched, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (analysis.Fetched, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	return analysis.Fetched{
		Title:      "Die Zukunft der Arbeit",
		Channel:    "Zukunftskanal",
		URL:        url,
		Transcript: "Heute sprechen wir über Arbeit.",
	}, nil
}

func (m *mockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ---------------------------------------------------------------------------
// Mock secret store
// ---------------------------------------------------------------------------

type mockSecretStore struct {
	GetErr error

	mu      sync.Mutex
	secrets map[string]string
}

func newMockSecretStore(secrets map[string]string) *mockSecretStore {
	s := &mockSecretStore{secrets: make(map[string]string)}
	for k, v := range secrets {
		s.secrets[k] = v
	}
	return s
}

func (m *mockSecretStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.secrets[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, secret.ErrNotFound)
	}
	return v, nil
}

func (m *mockSecretStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		return secret.ErrEmptySecret
	}
	m.secrets[key] = value
	return nil
}

func (m *mockSecretStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[key]; !ok {
		return fmt.Errorf("%s: %w", key, secret.ErrNotFound)
	}
	delete(m.secrets, key)
	return nil
}

func (m *mockSecretStore) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.secrets[key]
	return v, ok
}
