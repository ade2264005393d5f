package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opterra/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, srv.Client())
}

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-123",
				"model": "sonar-pro",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"retail\": 1299}"}}],
				"citations": ["https://a.example.com", "https://b.example.com"],
				"usage": {"prompt_tokens": 120, "completion_tokens": 14}
			}`,
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error": "rate limit exceeded"}`,
			wantErr: "perplexity: status 429",
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "internal server error"}`,
			wantErr: "perplexity: status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "perplexity: unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "price a 50 gallon gas tank"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "cmpl-123", resp.ID)
			assert.Equal(t, `{"retail": 1299}`, resp.Text())
			assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, resp.Citations)
			assert.Equal(t, 14, resp.Usage.CompletionTokens)
		})
	}
}

func TestChatCompletion_RequestBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, DefaultModel, body["model"])
		assert.Equal(t, "month", body["search_recency_filter"])
		assert.Equal(t, []any{"homedepot.com", "-reddit.com"}, body["search_domain_filter"])
		assert.InDelta(t, 0.0, body["temperature"], 1e-9)
		_, hasMax := body["max_tokens"]
		assert.False(t, hasMax)

		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	temp := 0.0
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages:      []Message{{Role: "user", Content: "test"}},
		Temperature:   &temp,
		SearchRecency: RecencyMonth,
		SearchDomains: []string{"homedepot.com", "-reddit.com"},
	})
	require.NoError(t, err)
}

func TestChatCompletion_ModelOverride(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got.Store(req.Model)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "sonar"}, nil)
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sonar", got.Load())

	_, err = client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "sonar-reasoning"})
	require.NoError(t, err)
	assert.Equal(t, "sonar-reasoning", got.Load())
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil).(*httpClient)
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultModel, c.cfg.Model)
	assert.Equal(t, 60*time.Second, c.http.Timeout)

	hc := &http.Client{Timeout: time.Second}
	c = NewClient(Config{APIKey: "k", Timeout: 5 * time.Second}, hc).(*httpClient)
	assert.Same(t, hc, c.http)
}

func TestChatCompletion_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ChatCompletion(ctx, ChatCompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perplexity: send request")
}

func TestChatCompletion_TransientStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var attempts atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			})

			_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "test"}},
			})
			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
			// The client never retries on its own.
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestChatCompletionResponse_Text(t *testing.T) {
	assert.Empty(t, (&ChatCompletionResponse{}).Text())
	r := &ChatCompletionResponse{Choices: []Choice{
		{Message: Message{Role: "assistant", Content: `{"retail": 1450}`}},
		{Message: Message{Role: "assistant", Content: "second"}},
	}}
	assert.Equal(t, `{"retail": 1450}`, r.Text())
}
