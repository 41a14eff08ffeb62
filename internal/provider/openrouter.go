package provider

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/apierr"
)

// Compile-time interface compliance check.
var _ Client = (*OpenRouterClient)(nil)

// OpenRouterClient talks to OpenRouter, which routes to many upstream models
// and exposes a live model catalog.
type OpenRouterClient struct {
	*restClient
}

// NewOpenRouter returns an OpenRouter adapter.
func NewOpenRouter(def Definition, apiKey string, opts ...Option) *OpenRouterClient {
	return &OpenRouterClient{restClient: newRestClient(def, apiKey, opts)}
}

type openRouterModels struct {
	Data []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		ContextLength int    `json:"context_length"`
		Pricing       struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// ListModels fetches the live catalog, retrying once on transient errors,
// and falls back to the static table when that fails or returns nothing.
func (c *OpenRouterClient) ListModels(ctx context.Context) []Model {
	if !c.def.DynamicModels() {
		return c.staticModels()
	}

	models, err := apierr.Retry(ctx, apierr.DiscoveryPolicy, func() ([]Model, error) {
		var list openRouterModels
		if err := c.getJSON(ctx, c.def.ModelsPath, &list); err != nil {
			return nil, err
		}
		out := make([]Model, 0, len(list.Data))
		for _, m := range list.Data {
			out = append(out, Model{
				ID:            m.ID,
				DisplayName:   m.Name,
				Description:   describe(m.ContextLength, m.Pricing.Prompt),
				ContextLength: m.ContextLength,
				Pricing:       m.Pricing.Prompt,
			})
		}
		return out, nil
	})

	if err != nil || len(models) == 0 {
		c.opts.logger.Warn("live model listing failed, using static table", zap.Error(err))
		return c.staticModels()
	}
	return models
}

// SendPrompt sends prompt to model.
func (c *OpenRouterClient) SendPrompt(ctx context.Context, prompt, model string) Response {
	return c.send(ctx, prompt, model)
}

// describe renders "200K Kontext, $3.00/M Input" from the catalog fields.
// OpenRouter reports prompt prices in dollars per token.
func describe(contextLength int, promptPrice string) string {
	var ctxPart string
	if contextLength > 0 {
		ctxPart = fmt.Sprintf("%dK Kontext", contextLength/1000)
	}
	price, err := strconv.ParseFloat(promptPrice, 64)
	if err != nil || price < 0 {
		return ctxPart
	}
	pricePart := fmt.Sprintf("$%.2f/M Input", price*1_000_000)
	if price == 0 {
		pricePart = "kostenlos"
	}
	if ctxPart == "" {
		return pricePart
	}
	return ctxPart + ", " + pricePart
}
