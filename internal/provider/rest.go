package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/apierr"
	"github.com/alnah/go-somas/internal/format"
)

// restClient holds what every adapter shares: the definition, credentials
// and the HTTP plumbing for OpenAI-compatible chat endpoints.
type restClient struct {
	def    Definition
	apiKey string
	opts   options
}

func newRestClient(def Definition, apiKey string, opts []Option) *restClient {
	o := options{
		baseURL:       def.BaseURL,
		timeout:       DefaultTimeout,
		modelsTimeout: DefaultModelsTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	o.logger = o.logger.With(zap.String("provider", def.ID))
	return &restClient{def: def, apiKey: apiKey, opts: o}
}

func (c *restClient) ID() string   { return c.def.ID }
func (c *restClient) Name() string { return c.def.Name }

// staticModels returns a copy of the definition's model table.
func (c *restClient) staticModels() []Model {
	out := make([]Model, len(c.def.Models))
	copy(out, c.def.Models)
	return out
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Citations []string `json:"citations"`
}

// send performs one chat call and converts every expected failure into a
// StatusError response.
func (c *restClient) send(ctx context.Context, prompt, model string) Response {
	if model == "" {
		model = c.def.DefaultModel
	}
	resp := Response{ModelUsed: model, ProviderUsed: c.def.ID}

	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return failed(resp, fmt.Sprintf("Anfrage konnte nicht erstellt werden: %v", err), err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	c.opts.logger.Debug("sending prompt", zap.String("model", model), zap.Int("prompt_chars", len(prompt)))

	data, status, err := c.do(callCtx, http.MethodPost, c.def.ChatPath, body)
	if err != nil {
		return c.transportFailure(ctx, resp, err)
	}
	if status < 200 || status >= 300 {
		statusErr := &apierr.StatusError{Code: status, Body: string(data)}
		c.opts.logger.Debug("chat rejected", zap.Int("status", status))
		return failed(resp, statusErr.Error(), statusErr)
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return failed(resp, fmt.Sprintf("Ungültige Antwort: %v", err),
			fmt.Errorf("%v: %w", err, apierr.ErrMalformedResponse))
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return failed(resp, "Ungültige Antwort: keine Inhalte in der Antwort", apierr.ErrMalformedResponse)
	}

	resp.Status = StatusReceived
	resp.Content = out.Choices[0].Message.Content
	resp.TokensUsed = out.Usage.TotalTokens
	resp.Citations = out.Citations
	if out.Model != "" {
		resp.ModelUsed = out.Model
	}
	return resp
}

// transportFailure distinguishes a timeout, an abandoned call and a
// connection failure. parent is the caller's context, before the timeout.
func (c *restClient) transportFailure(parent context.Context, resp Response, err error) Response {
	switch {
	case parent.Err() != nil:
		return failed(resp, "Anfrage abgebrochen", parent.Err())
	case isTimeout(err):
		return failed(resp,
			fmt.Sprintf("Timeout: keine Antwort innerhalb von %s", format.DurationHuman(c.opts.timeout)),
			fmt.Errorf("%v: %w", err, apierr.ErrTimeout))
	default:
		c.opts.logger.Debug("transport failure", zap.Error(err))
		return failed(resp, fmt.Sprintf("Verbindungsfehler: %v", err),
			fmt.Errorf("%v: %w", err, apierr.ErrTransport))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failed(resp Response, msg string, err error) Response {
	resp.Status = StatusError
	resp.Content = ""
	resp.ErrorMessage = msg
	resp.Err = err
	return resp
}

// getJSON fetches path and decodes it into out, classifying failures into
// apierr sentinels so callers can retry transient ones.
func (c *restClient) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.modelsTimeout)
	defer cancel()

	data, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%v: %w", err, apierr.ErrTimeout)
		}
		return fmt.Errorf("%v: %w", err, apierr.ErrTransport)
	}
	if status < 200 || status >= 300 {
		return &apierr.StatusError{Code: status, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%v: %w", err, apierr.ErrMalformedResponse)
	}
	return nil
}

// do sends one request and returns the size-limited body and status code.
func (c *restClient) do(ctx context.Context, method, path string, body []byte) (_ []byte, _ int, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.def.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	// Limit response size to prevent OOM from malformed responses
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}
