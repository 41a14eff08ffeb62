// Package config reads and writes the user configuration file, a plain
// key=value file under the XDG config directory, with SOMAS_* environment
// variables as fallbacks.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// appName names the config and data directories.
const appName = "somas"

// Config keys.
const (
	KeyOutputDir = "output-dir"
	KeyProvider  = "provider"
	KeyModel     = "model"
	KeyPreset    = "preset"
	KeyLanguage  = "language"
	KeyLookback  = "lookback"
)

// Environment variable fallbacks.
const (
	EnvOutputDir = "SOMAS_OUTPUT_DIR"
	EnvProvider  = "SOMAS_PROVIDER"
	EnvModel     = "SOMAS_MODEL"
	EnvPreset    = "SOMAS_PRESET"
	EnvLanguage  = "SOMAS_LANGUAGE"
	EnvLookback  = "SOMAS_LOOKBACK"
)

// keyEnv maps each known key to its environment fallback.
var keyEnv = map[string]string{
	KeyOutputDir: EnvOutputDir,
	KeyProvider:  EnvProvider,
	KeyModel:     EnvModel,
	KeyPreset:    EnvPreset,
	KeyLanguage:  EnvLanguage,
	KeyLookback:  EnvLookback,
}

// Sentinel errors.
var (
	// ErrUnknownKey indicates a key that is not a configuration key.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue indicates a value that fails validation for its key.
	ErrInvalidValue = errors.New("invalid config value")
)

// Config holds user configuration loaded from ~/.config/somas/config.
// Empty fields mean "not configured"; callers apply their own defaults.
type Config struct {
	OutputDir string
	Provider  string
	Model     string
	Preset    string
	Language  string
	// Lookback is the anti-monotony window. 0 means not configured.
	Lookback int
}

// Keys returns the known configuration keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(keyEnv))
	for k := range keyEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvFor returns the environment fallback of key.
func EnvFor(key string) (string, bool) {
	env, ok := keyEnv[key]
	return env, ok
}

// Validate checks a value for key without touching the filesystem.
func Validate(key, value string) error {
	if _, ok := keyEnv[key]; !ok {
		return fmt.Errorf("%q (valid: %s): %w", key, strings.Join(Keys(), ", "), ErrUnknownKey)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%s: value contains a newline: %w", key, ErrInvalidValue)
	}
	if key == KeyLookback {
		if _, err := parseLookback(value); err != nil {
			return err
		}
	}
	return nil
}

func parseLookback(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q: %w", KeyLookback, value, ErrInvalidValue)
	}
	return n, nil
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/somas.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DataDir returns the directory holding the ledger database.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share/somas.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	value := func(key string) string {
		if v := data[key]; v != "" {
			return v
		}
		return os.Getenv(keyEnv[key])
	}

	cfg.OutputDir = value(KeyOutputDir)
	cfg.Provider = strings.ToLower(value(KeyProvider))
	cfg.Model = value(KeyModel)
	cfg.Preset = strings.ToLower(value(KeyPreset))
	cfg.Language = value(KeyLanguage)
	if v := value(KeyLookback); v != "" {
		n, err := parseLookback(v)
		if err != nil {
			return cfg, err
		}
		cfg.Lookback = n
	}

	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save validates and writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	return update(func(m map[string]string) { m[key] = strings.TrimSpace(value) })
}

// Unset removes key from the config file. Removing an absent key is a no-op.
func Unset(key string) error {
	if _, ok := keyEnv[key]; !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	return update(func(m map[string]string) { delete(m, key) })
}

func update(fn func(map[string]string)) error {
	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if existing == nil {
		existing = make(map[string]string)
	}

	fn(existing)
	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
func writeFile(p string, data map[string]string) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, data[k])
	}

	// #nosec G306 -- config file with standard permissions, holds no secrets
	if err := os.WriteFile(p, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir checks that d is a writable directory, creating it if needed.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%s cannot be empty: %w", KeyOutputDir, ErrInvalidValue)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s: %w", d, ErrInvalidValue)
	}

	f, err := os.CreateTemp(d, ".somas-write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
