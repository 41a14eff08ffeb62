package provider_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers - OpenAI-compatible mock server
// ---------------------------------------------------------------------------

type recordedCall struct {
	Method string
	Path   string
	Header http.Header
	Model  string
	Prompt string
}

type mockResponse struct {
	statusCode int
	body       any
	raw        string
}

// mockServer answers chat and model listing requests from a queue and
// records every call.
type mockServer struct {
	*httptest.Server
	mu          sync.Mutex
	calls       []recordedCall
	responses   []mockResponse
	responseIdx int
}

func newMockServer(t *testing.T, responses ...mockResponse) *mockServer {
	t.Helper()
	m := &mockServer{responses: responses}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		call := recordedCall{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if r.Method == http.MethodPost {
			var req struct {
				Model    string `json:"model"`
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			call.Model = req.Model
			if len(req.Messages) > 0 {
				call.Prompt = req.Messages[0].Content
			}
		}
		m.calls = append(m.calls, call)

		resp := mockResponse{statusCode: http.StatusOK, body: chatBody("ok")}
		if m.responseIdx < len(m.responses) {
			resp = m.responses[m.responseIdx]
			m.responseIdx++
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.statusCode)
		if resp.raw != "" {
			_, _ = w.Write([]byte(resp.raw))
			return
		}
		_ = json.NewEncoder(w).Encode(resp.body)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) recorded() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// chatBody creates a chat completion response.
func chatBody(content string, citations ...string) map[string]any {
	body := map[string]any{
		"id":    "chatcmpl-test",
		"model": "served-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	}
	if len(citations) > 0 {
		body["citations"] = citations
	}
	return body
}
