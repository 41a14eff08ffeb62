package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/analysis"
	"github.com/alnah/go-somas/internal/config"
	"github.com/alnah/go-somas/internal/lang"
	"github.com/alnah/go-somas/internal/preset"
	"github.com/alnah/go-somas/internal/prompt"
	"github.com/alnah/go-somas/internal/source"
)

// maxTranscriptSize bounds transcripts read from files or stdin (10MB).
const maxTranscriptSize = 10 * 1024 * 1024

// promptFlags holds the raw inputs shared by the prompt and send commands.
type promptFlags struct {
	preset         string
	perspective    string
	language       string
	transcriptFile string
	title          string
	author         string
	start          string
	end            string
	withContext    bool
	questions      string
	noFetch        bool
	lookback       int
}

// register adds the shared flags to fs.
func (f *promptFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.preset, "preset", "p", "", "Analysis preset: quick, standard, academia, research (default from config)")
	fs.StringVar(&f.perspective, "perspective", "", "Override the preset perspective: neutral, critical, empathic")
	fs.StringVarP(&f.language, "language", "l", "", "Output language (ISO 639-1 code, default de)")
	fs.StringVarP(&f.transcriptFile, "transcript-file", "f", "", "Use a manual transcript from a file ('-' for stdin)")
	fs.StringVar(&f.title, "title", "", "Title (overrides fetched metadata)")
	fs.StringVar(&f.author, "author", "", "Channel or author (overrides fetched metadata)")
	fs.StringVar(&f.start, "start", "", "Focus window start (SS, MM:SS or HH:MM:SS)")
	fs.StringVar(&f.end, "end", "", "Focus window end (SS, MM:SS or HH:MM:SS)")
	fs.BoolVar(&f.withContext, "with-context", false, "Keep the whole video as context around the focus window")
	fs.StringVarP(&f.questions, "questions", "q", "", "Follow-up questions appended to the prompt")
	fs.BoolVar(&f.noFetch, "no-fetch", false, "Do not fetch metadata or transcript; use --title and --author")
	fs.IntVar(&f.lookback, "lookback", 0, "Anti-monotony window (default from config, else 3)")
}

// preparedPrompt is a built prompt plus what send needs afterwards.
type preparedPrompt struct {
	text        string
	preset      preset.Preset
	perspective analysis.Perspective
	source      analysis.Source
	timeRange   *analysis.TimeRange
	questions   string
	vocabulary  analysis.Vocabulary
	// ledger is nil when the ledger could not be opened.
	ledger Ledger
}

// close releases the ledger.
func (p *preparedPrompt) close() {
	if p.ledger != nil {
		_ = p.ledger.Close()
	}
}

// loadConfig loads the config, warning instead of failing.
func loadConfig(env *Env) config.Config {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}
	return cfg
}

// preparePrompt parses the inputs, resolves the source, consults the ledger
// and builds the prompt. The caller must call close on success.
func preparePrompt(ctx context.Context, env *Env, cfg config.Config, url string, f promptFlags) (*preparedPrompt, error) {
	catalog, err := env.Catalogs.LoadCatalog()
	if err != nil {
		return nil, err
	}
	presetID := f.preset
	if presetID == "" {
		presetID = cfg.Preset
	}
	p, err := catalog.Get(presetID)
	if err != nil {
		return nil, err
	}

	override, err := analysis.ParsePerspective(f.perspective)
	if err != nil {
		return nil, err
	}

	language := f.language
	if language == "" {
		language = cfg.Language
	}
	language = lang.OrDefault(language)
	if err := lang.Validate(language); err != nil {
		return nil, err
	}

	src, timeRange, err := resolveSource(ctx, env, url, f, language)
	if err != nil {
		return nil, err
	}

	renderer, err := env.Templates.LoadRenderer()
	if err != nil {
		return nil, err
	}

	lookback := prompt.DefaultLookback
	switch {
	case f.lookback > 0:
		lookback = f.lookback
	case cfg.Lookback > 0:
		lookback = cfg.Lookback
	}

	vocab := catalog.Vocabulary()
	led, recent := openHistory(ctx, env, vocab, lookback)

	builder := prompt.NewBuilder(renderer, prompt.WithVocabulary(vocab), prompt.WithLookback(lookback))
	perspective := prompt.ResolvePerspective(override, p)
	text, err := builder.Build(prompt.Request{
		Preset:        p,
		Perspective:   override,
		Source:        src,
		TimeRange:     timeRange,
		Questions:     f.questions,
		RecentModules: recent,
		Language:      language,
	})
	if err != nil {
		if led != nil {
			_ = led.Close()
		}
		return nil, err
	}

	if m, ok := prompt.Monotonous(recent, lookback); ok {
		env.Logger.Debug("anti-monotony nudge added", zap.String("module", m.String()), zap.Int("lookback", lookback))
	}

	return &preparedPrompt{
		text:        text,
		preset:      p,
		perspective: perspective,
		source:      src,
		timeRange:   timeRange,
		questions:   strings.TrimSpace(f.questions),
		vocabulary:  vocab,
		ledger:      led,
	}, nil
}

// openHistory opens the ledger and reads the recent modules. A broken ledger
// only disables the anti-monotony check.
func openHistory(ctx context.Context, env *Env, vocab analysis.Vocabulary, lookback int) (Ledger, []analysis.Module) {
	led, err := env.LedgerOpener.OpenLedger(ctx, vocab, env.Logger)
	if err != nil {
		env.Logger.Warn("ledger unavailable, anti-monotony check skipped", zap.Error(err))
		return nil, nil
	}
	recent, err := led.RecentModules(ctx, lookback)
	if err != nil {
		env.Logger.Warn("cannot read module history", zap.Error(err))
		return led, nil
	}
	return led, recent
}

// resolveSource builds the analysis source from a manual transcript, from
// flags alone (--no-fetch), or by fetching url.
func resolveSource(ctx context.Context, env *Env, url string, f promptFlags, language string) (analysis.Source, *analysis.TimeRange, error) {
	hasRange := f.start != "" || f.end != ""
	if hasRange && (f.start == "" || f.end == "") {
		return nil, nil, ErrIncompleteTimeRange
	}

	if f.transcriptFile != "" {
		text, err := readTranscript(env, f.transcriptFile)
		if err != nil {
			return nil, nil, err
		}
		title := f.title
		if title == "" && f.transcriptFile != "-" {
			base := filepath.Base(f.transcriptFile)
			title = strings.TrimSuffix(base, filepath.Ext(base))
		}
		manual, err := analysis.NewManual(title, f.author, url, text)
		if err != nil {
			return nil, nil, err
		}
		// A range on manual content is rejected by the builder.
		tr, err := parseRange(f, hasRange, 0)
		if err != nil {
			return nil, nil, err
		}
		return manual, tr, nil
	}

	if url == "" {
		return nil, nil, prompt.ErrNoSource
	}

	fetched := analysis.Fetched{Title: f.title, Channel: f.author, URL: url}
	if !f.noFetch {
		fmt.Fprintf(env.Stderr, "Fetching %s...\n", url)
		var err error
		fetched, err = env.FetcherFactory.NewFetcher(language, env.Logger).Fetch(ctx, url)
		switch {
		case errors.Is(err, source.ErrNoTranscript):
			fmt.Fprintln(env.Stderr, "Warning: no transcript available, the prompt relies on title, channel and URL only")
		case err != nil:
			return nil, nil, fmt.Errorf("%w (use --transcript-file or --no-fetch)", err)
		}
		if f.title != "" {
			fetched.Title = f.title
		}
		if f.author != "" {
			fetched.Channel = f.author
		}
	}

	tr, err := parseRange(f, hasRange, fetched.Duration)
	if err != nil {
		return nil, nil, err
	}
	return fetched, tr, nil
}

func parseRange(f promptFlags, hasRange bool, duration time.Duration) (*analysis.TimeRange, error) {
	if !hasRange {
		return nil, nil
	}
	tr, err := analysis.ParseTimeRange(f.start, f.end, f.withContext, duration)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// readTranscript reads a transcript file, or stdin for "-".
func readTranscript(env *Env, path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = env.Stdin
	} else {
		// #nosec G304 -- path is user-provided
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%s: %w", path, ErrFileNotFound)
			}
			return "", fmt.Errorf("cannot open transcript: %w", err)
		}
		defer func() { _ = file.Close() }()
		r = file
	}

	data, err := io.ReadAll(io.LimitReader(r, maxTranscriptSize))
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}
