// Package prompt assembles the analysis prompt from a preset, a perspective,
// source content and the recent module history.
package prompt

import (
	"fmt"
	"strings"

	"github.com/alnah/go-somas/internal/analysis"
	"github.com/alnah/go-somas/internal/format"
	"github.com/alnah/go-somas/internal/lang"
	"github.com/alnah/go-somas/internal/preset"
)

// DefaultLookback is how many recent analyses the anti-monotony check reads.
const DefaultLookback = 3

// URLPlaceholder stands in for the URL of manual transcripts without one.
const URLPlaceholder = "(keine URL angegeben)"

// guidanceLead opens the module guidance sentence.
const guidanceLead = "Wähle genau ein Modul als fünften Abschnitt und verwende seinen Namen als Überschrift:"

// Renderer executes a named template. *template.Renderer satisfies it.
type Renderer interface {
	Render(name string, vars map[string]any) (string, error)
}

// Request is the aggregate input of one prompt generation.
type Request struct {
	Preset preset.Preset
	// Perspective overrides the preset default when set.
	Perspective analysis.Perspective
	Source      analysis.Source
	// TimeRange is only valid with analysis.Fetched content.
	TimeRange *analysis.TimeRange
	Questions string
	// RecentModules lists chosen modules most recent first; "" marks an
	// analysis whose module could not be detected.
	RecentModules []analysis.Module
	// Language is the output language code, lang.Default when empty.
	Language string
}

// Builder turns requests into prompt text. It holds no mutable state, so
// Build is idempotent for identical requests.
type Builder struct {
	renderer   Renderer
	vocabulary analysis.Vocabulary
	lookback   int
}

// Option configures a Builder.
type Option func(*Builder)

// WithVocabulary sets the module vocabulary listed in the guidance.
func WithVocabulary(v analysis.Vocabulary) Option {
	return func(b *Builder) {
		b.vocabulary = v
	}
}

// WithLookback sets how many identical recent modules trigger the nudge.
// Values below 1 keep the default.
func WithLookback(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.lookback = n
		}
	}
}

// NewBuilder returns a Builder rendering through r.
func NewBuilder(r Renderer, opts ...Option) *Builder {
	b := &Builder{
		renderer:   r,
		vocabulary: analysis.DefaultVocabulary(),
		lookback:   DefaultLookback,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Lookback returns the number of recent modules the builder inspects.
func (b *Builder) Lookback() int {
	return b.lookback
}

// ResolvePerspective applies override > preset default > neutral.
func ResolvePerspective(override analysis.Perspective, p preset.Preset) analysis.Perspective {
	return override.Or(p.DefaultPerspective()).OrDefault()
}

// Build renders the prompt for req.
func (b *Builder) Build(req Request) (string, error) {
	if req.Source == nil {
		return "", ErrNoSource
	}
	if _, manual := req.Source.(analysis.Manual); manual && req.TimeRange != nil {
		return "", ErrTimeRangeOnManual
	}

	guidance := b.moduleGuidance(req.Preset)
	if repeated, ok := Monotonous(req.RecentModules, b.lookback); ok {
		guidance += " " + nudge(repeated, b.lookback)
	}

	vars := b.variables(req, guidance)
	return b.renderer.Render(req.Preset.Template, vars)
}

// Monotonous reports whether the first n recent modules exist, are known
// and are all the same module.
func Monotonous(recent []analysis.Module, n int) (analysis.Module, bool) {
	if n < 1 || len(recent) < n {
		return "", false
	}
	first := recent[0]
	if first == "" {
		return "", false
	}
	for _, m := range recent[1:n] {
		if m != first {
			return "", false
		}
	}
	return first, true
}

// moduleGuidance lists every module with its criterion in one sentence,
// followed by the preset's own lead-in when it has one.
func (b *Builder) moduleGuidance(p preset.Preset) string {
	specs := b.vocabulary.Specs()
	items := make([]string, len(specs))
	for i, s := range specs {
		items[i] = fmt.Sprintf("%s %s", s.Module, s.Criterion)
	}

	guidance := guidanceLead + " " + strings.Join(items, "; ") + "."
	if p.ModuleGuidance != "" {
		guidance += " " + p.ModuleGuidance
	}
	return guidance
}

func nudge(m analysis.Module, n int) string {
	return fmt.Sprintf("Die letzten %d Analysen haben jeweils %s gewählt. "+
		"Bevorzuge diesmal ein anderes Modul als %s, sofern der Inhalt es zulässt.", n, m, m)
}

func (b *Builder) variables(req Request, guidance string) map[string]any {
	src := req.Source
	url := src.Link()
	if url == "" {
		url = URLPlaceholder
	}

	var (
		duration string
		autoSubs bool
	)
	if f, ok := src.(analysis.Fetched); ok {
		if f.Duration > 0 {
			duration = format.Length(f.Duration)
		}
		autoSubs = f.AutoCaptions && f.HasTranscript()
	}

	var timeRange map[string]any
	if tr := req.TimeRange; tr != nil {
		total := tr.DurationLabel()
		if tr.Duration == 0 && duration != "" {
			total = duration
		}
		timeRange = map[string]any{
			"start":           tr.StartLabel(),
			"end":             tr.EndLabel(),
			"duration":        total,
			"include_context": tr.IncludeContext,
		}
	}

	// Caption files can hold only blank lines; that is no transcript.
	transcript := strings.TrimSpace(src.Text())

	p := req.Preset
	return map[string]any{
		"title":                 src.Headline(),
		"channel":               src.Creator(),
		"channel_name":          src.Creator(),
		"author":                src.Creator(),
		"url":                   url,
		"video_url":             url,
		"duration":              duration,
		"depth":                 p.Depth,
		"depth_description":     p.DepthDescription(),
		"sentences_per_section": p.SentencesPerSection,
		"max_chars":             p.MaxChars,
		"language":              lang.DisplayName(req.Language),
		"perspective":           ResolvePerspective(req.Perspective, p).Text(),
		"module_guidance":       guidance,
		"transcript":            transcript,
		"metadata_only":         transcript == "",
		"is_auto_transcript":    autoSubs,
		"time_range":            timeRange,
		"questions":             strings.TrimSpace(req.Questions),
	}
}
