package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/apierr"
)

// Compile-time interface compliance check.
var _ Client = (*CompatibleClient)(nil)

// CompatibleClient serves user-defined providers speaking the OpenAI chat
// protocol. A models_path enables live listing of {"data":[{"id":...}]}.
type CompatibleClient struct {
	*restClient
}

// NewCompatible returns a generic OpenAI-compatible adapter.
func NewCompatible(def Definition, apiKey string, opts ...Option) *CompatibleClient {
	return &CompatibleClient{restClient: newRestClient(def, apiKey, opts)}
}

// ListModels lists models live when possible, else from the definition.
func (c *CompatibleClient) ListModels(ctx context.Context) []Model {
	if !c.def.DynamicModels() {
		return c.staticModels()
	}
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_, err := apierr.Retry(ctx, apierr.DiscoveryPolicy, func() (struct{}, error) {
		return struct{}{}, c.getJSON(ctx, c.def.ModelsPath, &list)
	})
	if err != nil || len(list.Data) == 0 {
		c.opts.logger.Warn("live model listing failed, using static table", zap.Error(err))
		return c.staticModels()
	}
	models := make([]Model, len(list.Data))
	for i, m := range list.Data {
		models[i] = Model{ID: m.ID, DisplayName: m.ID}
	}
	return models
}

// SendPrompt sends prompt to model.
func (c *CompatibleClient) SendPrompt(ctx context.Context, prompt, model string) Response {
	return c.send(ctx, prompt, model)
}
