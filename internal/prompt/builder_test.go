package prompt_test

// Notes:
// - Tests render through the embedded templates and the built-in preset
//   catalog, so they exercise the real variable mapping end to end.
// - Wording is asserted only where it carries behavior: the guidance lead,
//   the nudge, perspective paragraphs and the time-range clause.

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alnah/go-somas/internal/analysis"
	"github.com/alnah/go-somas/internal/preset"
	"github.com/alnah/go-somas/internal/prompt"
	"github.com/alnah/go-somas/internal/template"
)

const guidanceLead = "Wähle genau ein Modul als fünften Abschnitt"

func mustPreset(t *testing.T, id string) preset.Preset {
	t.Helper()
	c, err := preset.Builtin()
	if err != nil {
		t.Fatalf("preset.Builtin() error: %v", err)
	}
	p, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get(%q) error: %v", id, err)
	}
	return p
}

func newBuilder(opts ...prompt.Option) *prompt.Builder {
	return prompt.NewBuilder(template.MustNew(), opts...)
}

func fetched() analysis.Fetched {
	return analysis.Fetched{
		Title:      "Example",
		Channel:    "Chan",
		URL:        "https://www.youtube.com/watch?v=abcdefghijk",
		Transcript: "Erster Satz.\n  Zweiter Satz mit <Sonderzeichen> & {{Klammern}}.",
		Duration:   15*time.Minute + 32*time.Second,
	}
}

// ---------------------------------------------------------------------------
// End-to-end scenarios
// ---------------------------------------------------------------------------

func TestBuild_StandardFetchedNoHistory(t *testing.T) {
	t.Parallel()

	src := fetched()
	got, err := newBuilder().Build(prompt.Request{
		Preset: mustPreset(t, "standard"),
		Source: src,
	})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if n := strings.Count(got, guidanceLead); n != 1 {
		t.Errorf("guidance sentence count = %d, want 1", n)
	}
	for _, m := range analysis.DefaultVocabulary().Modules() {
		if !strings.Contains(got, string(m)) {
			t.Errorf("guidance missing module %s", m)
		}
	}
	if strings.Contains(got, "Bevorzuge diesmal") {
		t.Error("nudge present with empty history")
	}
	if !strings.Contains(got, analysis.NeutralPerspective.Text()) {
		t.Error("neutral perspective paragraph missing")
	}
	if !strings.Contains(got, src.Transcript) {
		t.Error("transcript not embedded verbatim")
	}
	if strings.Contains(got, "ZEITBEREICH") {
		t.Error("time-range clause present without time range")
	}
}

func TestBuild_AcademiaTimeRangeWithContext(t *testing.T) {
	t.Parallel()

	src := fetched()
	tr, err := analysis.ParseTimeRange("02:00", "05:30", true, src.Duration)
	if err != nil {
		t.Fatalf("ParseTimeRange() error: %v", err)
	}

	got, err := newBuilder().Build(prompt.Request{
		Preset:    mustPreset(t, "academia"),
		Source:    src,
		TimeRange: &tr,
	})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	clause := section(got, "ZEITBEREICH")
	for _, want := range []string{"02:00", "05:30", "15:32"} {
		if !strings.Contains(clause, want) {
			t.Errorf("time-range clause %q missing %q", clause, want)
		}
	}
	if !strings.Contains(got, analysis.CriticalPerspective.Text()) {
		t.Error("academia should resolve to the critical perspective")
	}
}

func TestBuild_ManualTranscriptAliases(t *testing.T) {
	t.Parallel()

	src, err := analysis.NewManual("Vortrag", "Jane Doe", "", "Manuelles Transkript.")
	if err != nil {
		t.Fatalf("NewManual() error: %v", err)
	}

	for _, id := range []string{"standard", "research"} {
		t.Run(id, func(t *testing.T) {
			t.Parallel()

			got, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, id), Source: src})
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if !strings.Contains(got, "Jane Doe") {
				t.Error("author not substituted")
			}
			if !strings.Contains(got, prompt.URLPlaceholder) {
				t.Error("URL placeholder not substituted")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBuild_TimeRangeFocusOnly
// ---------------------------------------------------------------------------

func TestBuild_TimeRangeFocusOnly(t *testing.T) {
	t.Parallel()

	src := fetched()
	tr, err := analysis.ParseTimeRange("02:00", "05:30", false, src.Duration)
	if err != nil {
		t.Fatalf("ParseTimeRange() error: %v", err)
	}

	got, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, "standard"), Source: src, TimeRange: &tr})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	clause := section(got, "ZEITBEREICH")
	if !strings.Contains(clause, "02:00") || !strings.Contains(clause, "05:30") {
		t.Errorf("clause %q should state the focus window", clause)
	}
	if strings.Contains(clause, "15:32") {
		t.Errorf("focus-only clause %q should not mention the total duration", clause)
	}
}

// ---------------------------------------------------------------------------
// TestBuild_DegradedMode - no transcript and no time range
// ---------------------------------------------------------------------------

func TestBuild_DegradedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transcript string
	}{
		{"empty transcript", ""},
		{"whitespace-only transcript", " \n\t\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := fetched()
			src.Transcript = tt.transcript

			for _, presetID := range []string{"standard", "research"} {
				got, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, presetID), Source: src})
				if err != nil {
					t.Fatalf("Build(%s) unexpected error: %v", presetID, err)
				}
				if !strings.Contains(got, "EINGESCHRÄNKTER MODUS") {
					t.Errorf("%s: degraded mode not signaled", presetID)
				}
				if strings.Contains(got, "<transkript>") {
					t.Errorf("%s: transcript block rendered without transcript", presetID)
				}
			}

			got, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, "standard"), Source: src})
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if !strings.Contains(got, "Transkript: nicht verfügbar") {
				t.Error("source block does not flag the missing transcript")
			}
		})
	}
}

func TestBuild_TranscriptTrimmed(t *testing.T) {
	t.Parallel()

	src := fetched()
	src.Transcript = "\n\n  Heute sprechen wir über Arbeit.  \n\n"

	got, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, "standard"), Source: src})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if !strings.Contains(got, "<transkript>\nHeute sprechen wir über Arbeit.\n</transkript>") {
		t.Errorf("transcript not trimmed inside its block:\n%s", got)
	}
	if strings.Contains(got, "nicht verfügbar") {
		t.Error("present transcript flagged as missing")
	}
}

// ---------------------------------------------------------------------------
// TestBuild_AntiMonotony
// ---------------------------------------------------------------------------

func TestBuild_AntiMonotony(t *testing.T) {
	t.Parallel()

	k, z := analysis.Kritik, analysis.Zitate

	tests := []struct {
		name      string
		recent    []analysis.Module
		lookback  int
		wantNudge bool
	}{
		{"three identical", []analysis.Module{k, k, k}, 3, true},
		{"interleaved", []analysis.Module{k, z, k}, 3, false},
		{"too few entries", []analysis.Module{k, k}, 3, false},
		{"older entries ignored", []analysis.Module{k, k, k, z, z}, 3, true},
		{"undetected modules", []analysis.Module{"", "", ""}, 3, false},
		{"custom lookback", []analysis.Module{z, z}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := newBuilder(prompt.WithLookback(tt.lookback)).Build(prompt.Request{
				Preset:        mustPreset(t, "standard"),
				Source:        fetched(),
				RecentModules: tt.recent,
			})
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}

			hasNudge := strings.Contains(got, "Bevorzuge diesmal ein anderes Modul als "+string(tt.recent[0]))
			if tt.recent[0] == "" {
				hasNudge = strings.Contains(got, "Bevorzuge diesmal")
			}
			if hasNudge != tt.wantNudge {
				t.Errorf("nudge present = %v, want %v", hasNudge, tt.wantNudge)
			}
		})
	}
}

func TestMonotonous(t *testing.T) {
	t.Parallel()

	m, ok := prompt.Monotonous([]analysis.Module{analysis.Kritik, analysis.Kritik, analysis.Kritik}, 3)
	if !ok || m != analysis.Kritik {
		t.Errorf("Monotonous() = %q, %v, want KRITIK, true", m, ok)
	}
	if _, ok := prompt.Monotonous(nil, 0); ok {
		t.Error("Monotonous(nil, 0) = true, want false")
	}
}

// ---------------------------------------------------------------------------
// TestBuild_PerspectivePrecedence
// ---------------------------------------------------------------------------

func TestBuild_PerspectivePrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		presetID string
		override analysis.Perspective
		want     analysis.Perspective
	}{
		{"override beats preset default", "academia", analysis.EmpathicPerspective, analysis.EmpathicPerspective},
		{"preset default beats baseline", "academia", analysis.Perspective{}, analysis.CriticalPerspective},
		{"baseline neutral", "standard", analysis.Perspective{}, analysis.NeutralPerspective},
		{"override without preset default", "standard", analysis.CriticalPerspective, analysis.CriticalPerspective},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := mustPreset(t, tt.presetID)
			if got := prompt.ResolvePerspective(tt.override, p); got != tt.want {
				t.Errorf("ResolvePerspective() = %v, want %v", got, tt.want)
			}

			out, err := newBuilder().Build(prompt.Request{Preset: p, Perspective: tt.override, Source: fetched()})
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.want.Text()) {
				t.Errorf("prompt missing %s paragraph", tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBuild_Idempotent
// ---------------------------------------------------------------------------

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	src := fetched()
	tr, _ := analysis.ParseTimeRange("02:00", "05:30", true, src.Duration)
	req := prompt.Request{
		Preset:        mustPreset(t, "academia"),
		Source:        src,
		TimeRange:     &tr,
		Questions:     "Was ist neu?",
		RecentModules: []analysis.Module{analysis.Zitate, analysis.Zitate, analysis.Zitate},
	}
	b := newBuilder()

	first, err := b.Build(req)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	second, err := b.Build(req)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Build() not idempotent (-first +second):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// TestBuild_ExtraModulesAndQuestions
// ---------------------------------------------------------------------------

func TestBuild_ExtraModulesAndQuestions(t *testing.T) {
	t.Parallel()

	vocab, err := analysis.NewVocabulary(analysis.ModuleSpec{Module: "DATEN", Criterion: "bei datenlastigen Inhalten"})
	if err != nil {
		t.Fatalf("NewVocabulary() error: %v", err)
	}

	got, err := newBuilder(prompt.WithVocabulary(vocab)).Build(prompt.Request{
		Preset:    mustPreset(t, "quick"),
		Source:    fetched(),
		Questions: "  Wer profitiert davon?  ",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	guidance := lineWith(got, guidanceLead)
	if !strings.Contains(guidance, "DATEN bei datenlastigen Inhalten") || !strings.Contains(guidance, "KRITIK") {
		t.Errorf("guidance %q should list built-ins and extras", guidance)
	}
	if !strings.Contains(got, "ANSCHLUSSFRAGE\n") || !strings.Contains(got, "Wer profitiert davon?") {
		t.Error("questions block missing")
	}
	if !strings.Contains(got, "Antworte auf Englisch.") {
		t.Error("language instruction missing")
	}
	if !strings.Contains(got, "höchstens 1500 Zeichen") {
		t.Error("character budget missing")
	}
}

// ---------------------------------------------------------------------------
// TestBuild_Errors
// ---------------------------------------------------------------------------

type failingRenderer struct{ err error }

func (f failingRenderer) Render(string, map[string]any) (string, error) { return "", f.err }

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	manual, _ := analysis.NewManual("T", "A", "", "text")
	tr, _ := analysis.NewTimeRange(0, time.Minute, false, 0)

	if _, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, "standard")}); !errors.Is(err, prompt.ErrNoSource) {
		t.Errorf("no source error = %v, want ErrNoSource", err)
	}

	_, err := newBuilder().Build(prompt.Request{Preset: mustPreset(t, "standard"), Source: manual, TimeRange: &tr})
	if !errors.Is(err, prompt.ErrTimeRangeOnManual) {
		t.Errorf("manual+range error = %v, want ErrTimeRangeOnManual", err)
	}

	p := mustPreset(t, "standard")
	p.Template = "missing"
	if _, err := newBuilder().Build(prompt.Request{Preset: p, Source: fetched()}); !errors.Is(err, template.ErrUnknown) {
		t.Errorf("unknown template error = %v, want template.ErrUnknown", err)
	}

	renderErr := errors.New("boom")
	b := prompt.NewBuilder(failingRenderer{err: renderErr})
	if _, err := b.Build(prompt.Request{Preset: p, Source: fetched()}); !errors.Is(err, renderErr) {
		t.Errorf("renderer error = %v, want %v", err, renderErr)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// section returns the text between heading and the next blank line.
func section(text, heading string) string {
	_, rest, ok := strings.Cut(text, heading+"\n")
	if !ok {
		return ""
	}
	block, _, _ := strings.Cut(rest, "\n\n")
	return block
}

func lineWith(text, substr string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}
