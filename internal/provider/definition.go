package provider

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in provider IDs.
const (
	Perplexity = "perplexity"
	OpenRouter = "openrouter"
	DeepSeek   = "deepseek"
	OpenAI     = "openai"
)

// DefinitionsFile is the definitions file looked up in the config directory.
const DefinitionsFile = "providers.yaml"

//go:embed providers.yaml
var builtinDefinitions []byte

// Definition is the static description of one remote service.
type Definition struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	ChatPath string `yaml:"chat_path"`
	// ModelsPath enables live model listing when set.
	ModelsPath   string            `yaml:"models_path"`
	DefaultModel string            `yaml:"default_model"`
	KeyEnv       string            `yaml:"key_env"`
	WebSearch    bool              `yaml:"web_search"`
	Headers      map[string]string `yaml:"headers"`
	Models       []Model           `yaml:"models"`
}

// DynamicModels reports whether the service exposes a model listing endpoint.
func (d Definition) DynamicModels() bool {
	return d.ModelsPath != ""
}

func (d *Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("provider without id: %w", ErrInvalidDefinition)
	}
	u, err := url.Parse(d.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider %q: base_url %q is not absolute: %w", d.ID, d.BaseURL, ErrInvalidDefinition)
	}
	d.BaseURL = strings.TrimSuffix(d.BaseURL, "/")
	if d.ChatPath == "" {
		d.ChatPath = "/chat/completions"
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.DefaultModel == "" && len(d.Models) > 0 {
		d.DefaultModel = d.Models[0].ID
	}
	if d.DefaultModel == "" {
		return fmt.Errorf("provider %q: no default model: %w", d.ID, ErrInvalidDefinition)
	}
	return nil
}

// Definitions is the ordered set of known providers.
type Definitions struct {
	list []Definition
}

// BuiltinDefinitions returns the embedded definitions.
func BuiltinDefinitions() (Definitions, error) {
	return ParseDefinitions(builtinDefinitions)
}

// LoadDefinitions reads definitions from path, falling back to the embedded
// ones when the file does not exist.
func LoadDefinitions(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return BuiltinDefinitions()
	}
	if err != nil {
		return Definitions{}, fmt.Errorf("read provider definitions: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return Definitions{}, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions decodes YAML definitions after expanding ${VAR} references.
func ParseDefinitions(data []byte) (Definitions, error) {
	var file struct {
		Providers []Definition `yaml:"providers"`
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return Definitions{}, fmt.Errorf("decode provider definitions: %w: %w", err, ErrInvalidDefinition)
	}
	if len(file.Providers) == 0 {
		return Definitions{}, fmt.Errorf("no providers defined: %w", ErrInvalidDefinition)
	}

	seen := make(map[string]bool)
	for i := range file.Providers {
		if err := file.Providers[i].validate(); err != nil {
			return Definitions{}, err
		}
		if seen[file.Providers[i].ID] {
			return Definitions{}, fmt.Errorf("provider %q defined twice: %w", file.Providers[i].ID, ErrInvalidDefinition)
		}
		seen[file.Providers[i].ID] = true
	}
	return Definitions{list: file.Providers}, nil
}

// Get returns the definition with id.
func (d Definitions) Get(id string) (Definition, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, def := range d.list {
		if def.ID == id {
			return def, nil
		}
	}
	return Definition{}, fmt.Errorf("unknown provider %q (use %s): %w", id, strings.Join(d.IDs(), ", "), ErrUnknown)
}

// IDs returns the provider IDs in definition order.
func (d Definitions) IDs() []string {
	ids := make([]string, len(d.list))
	for i, def := range d.list {
		ids[i] = def.ID
	}
	return ids
}

// All returns every definition in order.
func (d Definitions) All() []Definition {
	out := make([]Definition, len(d.list))
	copy(out, d.list)
	return out
}
