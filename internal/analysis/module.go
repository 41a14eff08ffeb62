package analysis

import (
	"fmt"
	"regexp"
	"slices"
)

// Module is the name of the fifth, selectable section of an analysis.
// Names are UPPER_SNAKE so they can be matched as headings in completions.
type Module string

// Built-in modules. Every vocabulary contains them.
const (
	Kritik       Module = "KRITIK"
	Zitate       Module = "ZITATE"
	OffeneFragen Module = "OFFENE_FRAGEN"
	Verbindungen Module = "VERBINDUNGEN"
)

// String returns the module name.
func (m Module) String() string { return string(m) }

// ModuleSpec pairs a module with the content type that should select it.
type ModuleSpec struct {
	Module    Module `yaml:"name"`
	Criterion string `yaml:"criterion"`
}

var builtinModules = []ModuleSpec{
	{Kritik, "bei kontroversen oder meinungsstarken Inhalten"},
	{Zitate, "bei prägnanten, zitierfähigen Aussagen"},
	{OffeneFragen, "bei explorativen oder unabgeschlossenen Themen"},
	{Verbindungen, "bei Bezügen zu anderen Debatten, Werken oder Disziplinen"},
}

var moduleNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)*$`)

// Vocabulary is the ordered, closed set of modules a completion may choose.
// Built-ins come first, configured extras follow in configuration order.
type Vocabulary struct {
	specs []ModuleSpec
}

// NewVocabulary returns the built-in modules extended with extras.
// Extras must be UPPER_SNAKE, carry a criterion and not repeat a name.
func NewVocabulary(extras ...ModuleSpec) (Vocabulary, error) {
	specs := slices.Clone(builtinModules)
	for _, e := range extras {
		if !moduleNamePattern.MatchString(string(e.Module)) {
			return Vocabulary{}, fmt.Errorf("module %q must be UPPER_SNAKE: %w", e.Module, ErrInvalidModule)
		}
		if e.Criterion == "" {
			return Vocabulary{}, fmt.Errorf("module %q has no selection criterion: %w", e.Module, ErrInvalidModule)
		}
		if slices.ContainsFunc(specs, func(s ModuleSpec) bool { return s.Module == e.Module }) {
			return Vocabulary{}, fmt.Errorf("module %q defined twice: %w", e.Module, ErrInvalidModule)
		}
		specs = append(specs, e)
	}
	return Vocabulary{specs: specs}, nil
}

// DefaultVocabulary returns the built-in modules only.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{specs: slices.Clone(builtinModules)}
}

// Specs returns every module with its criterion, in order.
// A zero Vocabulary behaves like DefaultVocabulary.
func (v Vocabulary) Specs() []ModuleSpec {
	if len(v.specs) == 0 {
		return slices.Clone(builtinModules)
	}
	return slices.Clone(v.specs)
}

// Modules returns the module names in order.
func (v Vocabulary) Modules() []Module {
	specs := v.Specs()
	out := make([]Module, len(specs))
	for i, s := range specs {
		out[i] = s.Module
	}
	return out
}

// Contains reports whether m belongs to the vocabulary.
func (v Vocabulary) Contains(m Module) bool {
	return slices.Contains(v.Modules(), m)
}
