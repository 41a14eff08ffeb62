package provider

import "context"

// Compile-time interface compliance check.
var _ Client = (*PerplexityClient)(nil)

// PerplexityClient talks to Perplexity's search-augmented chat API.
// Perplexity has no model listing endpoint, so models come from the
// definition table. Responses carry the cited source URLs.
type PerplexityClient struct {
	*restClient
}

// NewPerplexity returns a Perplexity adapter.
func NewPerplexity(def Definition, apiKey string, opts ...Option) *PerplexityClient {
	return &PerplexityClient{restClient: newRestClient(def, apiKey, opts)}
}

// ListModels returns the static model table.
func (c *PerplexityClient) ListModels(context.Context) []Model {
	return c.staticModels()
}

// SendPrompt sends prompt to model and keeps citations.
func (c *PerplexityClient) SendPrompt(ctx context.Context, prompt, model string) Response {
	return c.send(ctx, prompt, model)
}
