package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/apierr"
)

// modelLister is the part of *openai.Client used for discovery.
// It allows injecting mocks in tests.
type modelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Compile-time interface compliance checks.
var (
	_ Client      = (*OpenAIClient)(nil)
	_ modelLister = (*openai.Client)(nil)
)

// OpenAIClient talks to the OpenAI API. Model discovery goes through the
// go-openai client, chat calls through the shared REST path so errors keep
// their raw status and body.
type OpenAIClient struct {
	*restClient
	lister modelLister
}

// NewOpenAI returns an OpenAI adapter.
func NewOpenAI(def Definition, apiKey string, opts ...Option) *OpenAIClient {
	rc := newRestClient(def, apiKey, opts)

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = rc.opts.baseURL
	cfg.HTTPClient = rc.opts.httpClient

	return &OpenAIClient{restClient: rc, lister: openai.NewClientWithConfig(cfg)}
}

// ListModels lists chat-capable models live and falls back to the static
// table on failure.
func (c *OpenAIClient) ListModels(ctx context.Context) []Model {
	if !c.def.DynamicModels() {
		return c.staticModels()
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.modelsTimeout)
	defer cancel()

	list, err := apierr.Retry(ctx, apierr.DiscoveryPolicy, func() (openai.ModelsList, error) {
		l, err := c.lister.ListModels(ctx)
		return l, classifyOpenAIError(err)
	})
	if err != nil {
		c.opts.logger.Warn("live model listing failed, using static table", zap.Error(err))
		return c.staticModels()
	}

	known := make(map[string]Model, len(c.def.Models))
	for _, m := range c.def.Models {
		known[m.ID] = m
	}

	var models []Model
	for _, m := range list.Models {
		if !isChatModel(m.ID) {
			continue
		}
		if k, ok := known[m.ID]; ok {
			models = append(models, k)
			continue
		}
		models = append(models, Model{ID: m.ID, DisplayName: m.ID, Description: "owned by " + m.OwnedBy})
	}
	if len(models) == 0 {
		return c.staticModels()
	}
	slices.SortFunc(models, func(a, b Model) int { return strings.Compare(a.ID, b.ID) })
	return models
}

// SendPrompt sends prompt to model.
func (c *OpenAIClient) SendPrompt(ctx context.Context, prompt, model string) Response {
	resp := c.send(ctx, prompt, model)
	resp.Citations = nil
	return resp
}

// isChatModel filters embeddings, audio and image models out of the catalog.
func isChatModel(id string) bool {
	if !strings.HasPrefix(id, "gpt-") && !strings.HasPrefix(id, "o") {
		return false
	}
	for _, skip := range []string{"embedding", "audio", "realtime", "tts", "transcribe", "image", "search", "moderation"} {
		if strings.Contains(id, skip) {
			return false
		}
	}
	return true
}

// classifyOpenAIError maps go-openai errors to apierr sentinels.
func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apierr.StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &apierr.StatusError{Code: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", err, apierr.ErrTimeout)
	}
	return fmt.Errorf("%w: %w", err, apierr.ErrTransport)
}
