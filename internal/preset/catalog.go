package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alnah/go-somas/internal/analysis"
)

//go:embed presets.yaml
var builtinYAML []byte

// FileName is the catalog file looked up in the config directory.
const FileName = "presets.yaml"

// Catalog is the loaded set of presets plus the module vocabulary.
type Catalog struct {
	presets    []Preset
	defaultID  string
	vocabulary analysis.Vocabulary
}

type catalogFile struct {
	Default string                `yaml:"default"`
	Presets []Preset              `yaml:"presets"`
	Modules []analysis.ModuleSpec `yaml:"modules"`
}

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	return Parse(builtinYAML)
}

// Load reads the catalog at path, falling back to the embedded catalog
// when the file does not exist.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Builtin()
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog after expanding ${VAR} references.
func Parse(data []byte) (*Catalog, error) {
	expanded := os.ExpandEnv(string(data))

	var file catalogFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("decode presets: %w: %w", err, ErrInvalid)
	}
	if len(file.Presets) == 0 {
		return nil, fmt.Errorf("no presets defined: %w", ErrInvalid)
	}

	seen := make(map[string]bool, len(file.Presets))
	for i := range file.Presets {
		if err := file.Presets[i].normalize(); err != nil {
			return nil, err
		}
		id := file.Presets[i].ID
		if seen[id] {
			return nil, fmt.Errorf("preset %q defined twice: %w", id, ErrInvalid)
		}
		seen[id] = true
	}

	if file.Default == "" {
		file.Default = file.Presets[0].ID
	}
	if !seen[file.Default] {
		return nil, fmt.Errorf("default preset %q not defined: %w", file.Default, ErrInvalid)
	}

	vocab, err := analysis.NewVocabulary(file.Modules...)
	if err != nil {
		return nil, fmt.Errorf("modules: %w: %w", err, ErrInvalid)
	}

	return &Catalog{presets: file.Presets, defaultID: file.Default, vocabulary: vocab}, nil
}

// Get returns the preset with id. An empty id selects the default preset.
func (c *Catalog) Get(id string) (Preset, error) {
	if id == "" {
		id = c.defaultID
	}
	for _, p := range c.presets {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q (use %s): %w",
		id, strings.Join(c.IDs(), ", "), ErrUnknown)
}

// Default returns the default preset.
func (c *Catalog) Default() Preset {
	p, _ := c.Get(c.defaultID)
	return p
}

// All returns the presets in catalog order.
func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// IDs returns the preset IDs in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.presets))
	for i, p := range c.presets {
		ids[i] = p.ID
	}
	return ids
}

// Vocabulary returns the built-in modules plus configured extras.
func (c *Catalog) Vocabulary() analysis.Vocabulary {
	return c.vocabulary
}
