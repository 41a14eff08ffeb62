package analysis

import (
	"fmt"
	"strings"
)

// Perspective names.
const (
	Neutral  = "neutral"
	Critical = "critical"
	Empathic = "empathic"
)

// Perspective is the analytical stance requested from the model.
// Zero value means "unset" and resolves through Or.
// Use ParsePerspective for user input, or the pre-parsed constants.
type Perspective struct {
	name string
}

var _ fmt.Stringer = Perspective{}

// Pre-parsed perspectives.
var (
	NeutralPerspective  = Perspective{name: Neutral}
	CriticalPerspective = Perspective{name: Critical}
	EmpathicPerspective = Perspective{name: Empathic}
)

// perspectiveOrder is the canonical order used in help and error messages.
var perspectiveOrder = []Perspective{NeutralPerspective, CriticalPerspective, EmpathicPerspective}

// perspectiveText holds the one paragraph each stance renders into the prompt.
var perspectiveText = map[string]string{
	Neutral: "Analysiere sachlich und ausgewogen. Gib die Positionen der Quelle " +
		"korrekt wieder, trenne Aussagen von Bewertungen und vermeide eigene Wertungen, " +
		"solange sie nicht durch den Inhalt gedeckt sind.",
	Critical: "Analysiere kritisch. Prüfe Argumente auf Belege, logische Lücken und " +
		"unausgesprochene Annahmen, benenne Schwächen deutlich und stelle starke " +
		"Behauptungen den verfügbaren Gegenargumenten gegenüber.",
	Empathic: "Analysiere empathisch. Versuche die Anliegen und Motive der Sprechenden " +
		"nachzuvollziehen, würdige ihre Perspektive wohlwollend und mache sichtbar, " +
		"welche Erfahrungen und Werte hinter ihren Aussagen stehen.",
}

// ParsePerspective validates a perspective name. Matching is case-insensitive.
// Empty string returns the zero value without error (unset).
func ParsePerspective(s string) (Perspective, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Perspective{}, nil
	}
	if _, ok := perspectiveText[s]; !ok {
		return Perspective{}, fmt.Errorf("unknown perspective %q (use %s): %w",
			s, strings.Join(PerspectiveNames(), ", "), ErrInvalidPerspective)
	}
	return Perspective{name: s}, nil
}

// MustParsePerspective parses a perspective, panicking if invalid.
// Use only for constants and tests.
func MustParsePerspective(s string) Perspective {
	p, err := ParsePerspective(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PerspectiveNames returns the closed set in canonical order.
func PerspectiveNames() []string {
	out := make([]string, len(perspectiveOrder))
	for i, p := range perspectiveOrder {
		out[i] = p.name
	}
	return out
}

// String returns the perspective name, or "" for the zero value.
func (p Perspective) String() string {
	return p.name
}

// IsZero reports whether the perspective is unset.
func (p Perspective) IsZero() bool {
	return p.name == ""
}

// Or returns p, or fallback when p is unset.
// Resolution chains read override.Or(presetDefault).OrDefault().
func (p Perspective) Or(fallback Perspective) Perspective {
	if p.IsZero() {
		return fallback
	}
	return p
}

// OrDefault returns p, or NeutralPerspective when p is unset.
func (p Perspective) OrDefault() Perspective {
	return p.Or(NeutralPerspective)
}

// Text returns the paragraph rendered into the prompt.
// The zero value renders as neutral.
func (p Perspective) Text() string {
	return perspectiveText[p.OrDefault().name]
}
