package provider

import "context"

// Compile-time interface compliance check.
var _ Client = (*DeepSeekClient)(nil)

// DeepSeekClient talks to DeepSeek's chat completion API.
// Available: "deepseek-chat" and "deepseek-reasoner" (thinking mode).
type DeepSeekClient struct {
	*restClient
}

// NewDeepSeek returns a DeepSeek adapter.
func NewDeepSeek(def Definition, apiKey string, opts ...Option) *DeepSeekClient {
	return &DeepSeekClient{restClient: newRestClient(def, apiKey, opts)}
}

// ListModels returns the static model table.
func (c *DeepSeekClient) ListModels(context.Context) []Model {
	return c.staticModels()
}

// SendPrompt sends prompt to model. DeepSeek returns no citations.
func (c *DeepSeekClient) SendPrompt(ctx context.Context, prompt, model string) Response {
	resp := c.send(ctx, prompt, model)
	resp.Citations = nil
	return resp
}
