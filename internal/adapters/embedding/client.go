// Package embedding implements ports.EmbeddingService against an
// OpenAI-compatible embeddings endpoint, grounded on the teacher's
// internal/adapters/embedding/client.go.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/retry"
)

// EmbeddingTimeout is the maximum time to wait for one embedding call.
const EmbeddingTimeout = 30 * time.Second

// Client is an OpenAI-compatible embedding client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	strategy   retry.Strategy
}

// NewClient builds an embedding client against baseURL using model, which
// must produce vectors of the given dimensionality.
func NewClient(baseURL, apiKey, model string, dimensions int) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		strategy:   retry.Quick,
	}
}

// embeddingRequest is the request body for the /v1/embeddings endpoint.
type embeddingRequest struct {
	Input interface{} `json:"input"`
	Model string      `json:"model"`
}

// embeddingResponse is the response body from the /v1/embeddings endpoint.
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Dimensions reports the vector width this client's configured model produces.
func (c *Client) Dimensions() int { return c.dimensions }

// Embed requests a single embedding vector for text. A down-but-configured
// provider surfaces as domain.KindUnavailable so the Memory Store can fall
// back to substring search for that item (spec §4.1).
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.baseURL == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "embedding client has no base URL configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, EmbeddingTimeout)
	defer cancel()

	results, err := c.embedBatchInternal(ctx, []string{text})
	if err != nil {
		log.Printf("[embedding.Client.Embed] failed: baseURL=%s, model=%s, textLen=%d, error=%v",
			c.baseURL, c.model, len(text), err)
		return nil, domain.NewError(domain.KindUnavailable, "embedding provider unavailable", err)
	}
	if len(results) == 0 {
		return nil, domain.NewError(domain.KindUnavailable, "embedding provider returned no vectors", nil)
	}
	return results[0], nil
}

// curlExample returns a curl command for debugging embedding requests.
func (c *Client) curlExample() string {
	authHeader := ""
	if c.apiKey != "" {
		authHeader = fmt.Sprintf(` -H "Authorization: Bearer %s"`, c.apiKey)
	}
	return fmt.Sprintf(
		`curl -X POST "%s/v1/embeddings" -H "Content-Type: application/json"%s -d '{"input": "test", "model": "%s"}'`,
		c.baseURL, authHeader, c.model,
	)
}

func (c *Client) embedBatchInternal(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: c.model}
	if len(texts) == 1 {
		req.Input = texts[0]
	} else {
		req.Input = texts
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var respBody []byte
	err = retry.Retry(ctx, c.strategy, func(ctx context.Context, attempt int) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build embedding request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Printf("[embedding.Client] request failed: url=%s/v1/embeddings, error=%v", c.baseURL, err)
			return fmt.Errorf("send embedding request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read embedding response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("[embedding.Client] API error: url=%s/v1/embeddings, status=%d, body=%s", c.baseURL, resp.StatusCode, string(respBody))
			return fmt.Errorf("embedding API error: %s - %s", resp.Status, string(respBody))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w (debug: %s)", err, c.curlExample())
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	results := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		dims := len(d.Embedding)
		if c.dimensions > 0 && dims != c.dimensions {
			log.Printf("[embedding.Client] dimension mismatch: expected=%d, got=%d, model=%s", c.dimensions, dims, parsed.Model)
			return nil, fmt.Errorf("expected %d dimensions but got %d", c.dimensions, dims)
		}
		if d.Index >= 0 && d.Index < len(results) {
			results[d.Index] = d.Embedding
		}
	}
	return results, nil
}
