// Package perplexity is a small client for Perplexity's search-grounded chat
// completions, used to look up current retail prices.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opterra/internal/resilience"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar-pro"
)

// Client performs chat completions against the Perplexity API.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Recency windows accepted by search_recency_filter.
const (
	RecencyDay   = "day"
	RecencyWeek  = "week"
	RecencyMonth = "month"
	RecencyYear  = "year"
)

// ChatCompletionRequest is the body of POST /chat/completions.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`

	// SearchRecency limits web results to the window, e.g. RecencyMonth.
	SearchRecency string `json:"search_recency_filter,omitempty"`
	// SearchDomains restricts (or with a "-" prefix, excludes) result domains.
	SearchDomains []string `json:"search_domain_filter,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the reply to POST /chat/completions.
type ChatCompletionResponse struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Choices   []Choice `json:"choices"`
	Citations []string `json:"citations"`
	Usage     Usage    `json:"usage"`
}

type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Text returns the content of the first choice.
func (r *ChatCompletionResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Config selects the account, endpoint and default model. Empty fields take
// the package defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type httpClient struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Perplexity API client. A nil hc gets a pooled client
// with cfg.Timeout (60s by default).
func NewClient(cfg Config, hc *http.Client) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if hc == nil {
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &httpClient{cfg: cfg, http: hc}
}

func (c *httpClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	var out ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends body as JSON and decodes a 200 reply into out. Other statuses
// map through resilience.HTTPStatusError so callers can retry 429/5xx.
func (c *httpClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "perplexity: marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "perplexity: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "perplexity: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.HTTPStatusError("perplexity", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrap(err, "perplexity: unmarshal response")
	}
	return nil
}
