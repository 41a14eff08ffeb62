package analysis_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/alnah/go-somas/internal/analysis"
)

// ---------------------------------------------------------------------------
// TestNewVocabulary
// ---------------------------------------------------------------------------

func TestNewVocabulary(t *testing.T) {
	t.Parallel()

	t.Run("built-ins always present in order", func(t *testing.T) {
		t.Parallel()

		v, err := analysis.NewVocabulary()
		if err != nil {
			t.Fatalf("NewVocabulary() unexpected error: %v", err)
		}
		want := []analysis.Module{analysis.Kritik, analysis.Zitate, analysis.OffeneFragen, analysis.Verbindungen}
		if got := v.Modules(); !slices.Equal(got, want) {
			t.Errorf("Modules() = %v, want %v", got, want)
		}
	})

	t.Run("extras appended after built-ins", func(t *testing.T) {
		t.Parallel()

		v, err := analysis.NewVocabulary(analysis.ModuleSpec{Module: "DATEN", Criterion: "bei datenlastigen Inhalten"})
		if err != nil {
			t.Fatalf("NewVocabulary() unexpected error: %v", err)
		}
		mods := v.Modules()
		if len(mods) != 5 || mods[4] != "DATEN" {
			t.Errorf("Modules() = %v, want DATEN last of 5", mods)
		}
		if !v.Contains("DATEN") || !v.Contains(analysis.Kritik) {
			t.Error("Contains() missing configured or built-in module")
		}
		if v.Contains("HUMOR") {
			t.Error("Contains(HUMOR) = true, want false")
		}
	})

	invalid := []struct {
		name string
		spec analysis.ModuleSpec
	}{
		{"lowercase", analysis.ModuleSpec{Module: "daten", Criterion: "x"}},
		{"spaces", analysis.ModuleSpec{Module: "MEINE DATEN", Criterion: "x"}},
		{"duplicate built-in", analysis.ModuleSpec{Module: analysis.Kritik, Criterion: "x"}},
		{"no criterion", analysis.ModuleSpec{Module: "DATEN"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := analysis.NewVocabulary(tt.spec)
			if !errors.Is(err, analysis.ErrInvalidModule) {
				t.Errorf("NewVocabulary(%v) error = %v, want ErrInvalidModule", tt.spec, err)
			}
		})
	}

	t.Run("zero vocabulary behaves like default", func(t *testing.T) {
		t.Parallel()

		var v analysis.Vocabulary
		if !slices.Equal(v.Modules(), analysis.DefaultVocabulary().Modules()) {
			t.Errorf("zero Modules() = %v", v.Modules())
		}
	})
}
