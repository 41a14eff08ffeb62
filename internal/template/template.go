// Package template renders analysis prompts from named text templates.
//
// Built-in templates are embedded at compile time. A user directory may add
// templates or replace built-ins by file name. Execution runs with
// missingkey=error, so a variable the template references but the caller
// did not supply fails the render instead of producing blank text.
package template

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"
	"text/template"
)

// Built-in template names.
const (
	Somas    = "somas"
	Research = "research"
)

const extension = ".tmpl"

//go:embed templates/*.tmpl
var builtin embed.FS

// missingKeyPattern extracts the key from text/template's missingkey=error message.
var missingKeyPattern = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

// Renderer holds parsed templates by name. It is safe for concurrent use.
type Renderer struct {
	templates map[string]*template.Template
}

// Option configures a Renderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	dir string
}

// WithDir overlays *.tmpl files from dir on top of the built-ins.
// An empty dir is ignored, a missing dir is an error.
func WithDir(dir string) Option {
	return func(c *rendererConfig) {
		c.dir = dir
	}
}

// New parses the built-in templates plus any overlay.
func New(opts ...Option) (*Renderer, error) {
	var cfg rendererConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Renderer{templates: make(map[string]*template.Template)}

	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := r.load(sub); err != nil {
		return nil, err
	}

	if cfg.dir != "" {
		info, err := os.Stat(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("template directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("template directory %s is not a directory", cfg.dir)
		}
		if err := r.load(os.DirFS(cfg.dir)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNew is New without options, panicking on error.
// The built-ins are compiled in, so a failure is a build defect.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) load(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*"+extension)
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read template %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), extension)
		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(data))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", file, err)
		}
		r.templates[name] = tmpl
	}
	return nil
}

// Has reports whether a template with this name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Names returns the available template names, sorted.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Render executes the named template with vars.
// Missing variables yield ErrMissingVariable, unknown names ErrUnknown.
func (r *Renderer) Render(name string, vars map[string]any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q (available: %s): %w",
			name, strings.Join(r.Names(), ", "), ErrUnknown)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", classify(name, err)
	}
	return buf.String(), nil
}

// classify maps execution failures to package sentinels. text/template
// reports missing keys only through the message text.
func classify(name string, err error) error {
	msg := err.Error()
	var execErr template.ExecError
	if errors.As(err, &execErr) && execErr.Err != nil {
		msg = execErr.Err.Error()
	}
	if m := missingKeyPattern.FindStringSubmatch(msg); m != nil {
		return fmt.Errorf("template %q: variable %q: %w", name, m[1], ErrMissingVariable)
	}
	return fmt.Errorf("template %q: %v: %w", name, err, ErrRender)
}
