// Package preset loads the named bundles of depth, length, perspective and
// template defaults used to build prompts.
package preset

import (
	"fmt"

	"github.com/alnah/go-somas/internal/analysis"
)

// depthDescriptions are the labels rendered for each depth level.
var depthDescriptions = map[int]string{
	1: "Kurzquellen-Modus (< 5 Min)",
	2: "Standard-Analyse",
	3: "Tiefenanalyse mit Details",
}

// defaultSentences are used when a preset omits sentences_per_section.
var defaultSentences = map[int]int{1: 2, 2: 3, 3: 5}

// Preset is immutable once loaded and may be shared across analyses.
type Preset struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	Depth               int      `yaml:"depth"`
	SentencesPerSection int      `yaml:"sentences_per_section"`
	MaxChars            int      `yaml:"max_chars"`
	ReadingTimeSeconds  int      `yaml:"reading_time_seconds"`
	PerspectiveName     string   `yaml:"perspective"`
	ModuleGuidance      string   `yaml:"module_guidance"`
	Template            string   `yaml:"template"`
	RequiresWebSearch   bool     `yaml:"requires_web_search"`
	RecommendedModels   []string `yaml:"recommended_models"`
	ModelHint           string   `yaml:"model_hint"`

	perspective analysis.Perspective
}

// DefaultPerspective returns the preset's perspective, zero when unset.
func (p Preset) DefaultPerspective() analysis.Perspective {
	return p.perspective
}

// DepthDescription returns the label for the preset's depth.
func (p Preset) DepthDescription() string {
	return depthDescriptions[p.Depth]
}

// Unlimited reports whether the preset has no character budget.
func (p Preset) Unlimited() bool {
	return p.MaxChars == 0
}

// Recommends reports whether model is among the recommended models.
// Presets without recommendations accept every model.
func (p Preset) Recommends(model string) bool {
	if len(p.RecommendedModels) == 0 {
		return true
	}
	for _, m := range p.RecommendedModels {
		if m == model {
			return true
		}
	}
	return false
}

// normalize validates the entry and fills derived defaults.
func (p *Preset) normalize() error {
	if p.ID == "" {
		return fmt.Errorf("preset without id: %w", ErrInvalid)
	}
	if _, ok := depthDescriptions[p.Depth]; !ok {
		return fmt.Errorf("preset %q: depth %d not in 1..3: %w", p.ID, p.Depth, ErrInvalid)
	}
	if p.SentencesPerSection == 0 {
		p.SentencesPerSection = defaultSentences[p.Depth]
	}
	if p.SentencesPerSection < 0 || p.MaxChars < 0 || p.ReadingTimeSeconds < 0 {
		return fmt.Errorf("preset %q: negative limits: %w", p.ID, ErrInvalid)
	}
	if p.Template == "" {
		return fmt.Errorf("preset %q: template is required: %w", p.ID, ErrInvalid)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	persp, err := analysis.ParsePerspective(p.PerspectiveName)
	if err != nil {
		return fmt.Errorf("preset %q: %w: %w", p.ID, err, ErrInvalid)
	}
	p.perspective = persp
	return nil
}
