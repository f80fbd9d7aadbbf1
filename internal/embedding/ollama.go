package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/resilience"
)

const apiPathEmbeddings = "/api/embeddings"

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// OllamaClient calls the Ollama embeddings API. Requests are rate limited
// and transient failures are retried.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewOllamaClient creates a client from configuration.
func NewOllamaClient(cfg config.EmbeddingConfig) *OllamaClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	retry := resilience.WithMaxAttempts(cfg.MaxAttempts)
	retry.OnRetry = resilience.RetryLogger("ollama", "embed")

	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
	}
}

// Embed returns the embedding of text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, eris.Wrap(err, "ollama: marshal request")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]float32, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "ollama: rate limit wait")
		}
		return c.post(ctx, body)
	})
}

func (c *OllamaClient) post(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPathEmbeddings, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ollama: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &resilience.HTTPError{Service: "ollama", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, eris.Wrap(err, "ollama: decode response")
	}
	if len(result.Embedding) == 0 {
		return nil, eris.Wrap(ErrDimensions, "ollama: empty embedding")
	}
	return result.Embedding, nil
}
