package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/config"
	"github.com/alnah/go-somas/internal/provider"
	"github.com/alnah/go-somas/internal/secret"
)

// defaultProviderID is used when neither flag nor config selects a provider.
const defaultProviderID = provider.Perplexity

// resolveDefinition picks the provider: flag, then config, then the default.
func resolveDefinition(env *Env, cfg config.Config, flag string) (provider.Definition, error) {
	defs, err := env.Definitions.LoadDefinitions()
	if err != nil {
		return provider.Definition{}, err
	}
	id := flag
	if id == "" {
		id = cfg.Provider
	}
	if id == "" {
		id = defaultProviderID
	}
	return defs.Get(id)
}

// resolveModel picks the model: flag, then config (only when the config
// provider is the one in use), then the provider default.
func resolveModel(def provider.Definition, cfg config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	if cfg.Model != "" && (cfg.Provider == "" || cfg.Provider == def.ID) {
		return cfg.Model
	}
	return def.DefaultModel
}

// resolveAPIKey looks the key up in the secret store, then the environment.
func resolveAPIKey(env *Env, def provider.Definition) (string, error) {
	key, origin, err := secret.NewResolver(env.Secrets, env.Getenv).APIKey(def.ID, def.KeyEnv)
	if err != nil {
		if errors.Is(err, secret.ErrNotFound) {
			return "", fmt.Errorf("%s: %w (run 'somas key set %s' or set %s)",
				def.Name, ErrAPIKeyMissing, def.ID, def.KeyEnv)
		}
		return "", err
	}
	env.Logger.Debug("API key resolved", zap.String("provider", def.ID), zap.String("origin", string(origin)))
	return key, nil
}
