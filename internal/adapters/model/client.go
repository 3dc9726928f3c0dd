// Package model implements ports.ModelService against an OpenAI-compatible
// /chat/completions HTTP endpoint, grounded on the same request/response
// shape the teacher's embedding client uses for its own OpenAI-compatible
// provider (internal/adapters/embedding/client.go).
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/retry"
)

// DefaultTimeout bounds a single generate call.
const DefaultTimeout = 60 * time.Second

// Client calls a remote chat-completion provider over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	strategy   retry.Strategy
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		strategy:   retry.Quick,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements ports.ModelService. Transient provider failures
// surface as domain.KindUnavailable/KindTimeout; a malformed or empty
// response as domain.KindInternal.
func (c *Client) Generate(ctx context.Context, messages []ports.ChatMessage, cfg ports.ModelConfig) (string, ports.Usage, error) {
	if c.baseURL == "" {
		return "", ports.Usage{}, domain.NewError(domain.KindInvalidArgument, "model client has no base URL configured", nil)
	}

	reqMessages := make([]chatMessage, len(messages))
	for i, m := range messages {
		reqMessages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	body, err := json.Marshal(chatRequest{
		Model:       cfg.ModelName,
		Messages:    reqMessages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		Stop:        cfg.Stop,
	})
	if err != nil {
		return "", ports.Usage{}, domain.NewError(domain.KindInternal, "marshal generate request", err)
	}

	var respBody []byte
	err = retry.Retry(ctx, c.strategy, func(ctx context.Context, attempt int) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build generate request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Printf("[model.Client] request failed: url=%s/v1/chat/completions, error=%v", c.baseURL, err)
			return fmt.Errorf("send generate request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read generate response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("[model.Client] API error: url=%s/v1/chat/completions, status=%d, body=%s", c.baseURL, resp.StatusCode, string(respBody))
			return fmt.Errorf("generate API error: %s - %s", resp.Status, string(respBody))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ports.Usage{}, domain.NewError(domain.KindTimeout, "model provider timed out", err)
		}
		return "", ports.Usage{}, domain.NewError(domain.KindUnavailable, "model provider unavailable", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", ports.Usage{}, domain.NewError(domain.KindInternal, "decode generate response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ports.Usage{}, domain.NewError(domain.KindInternal, "generate response contained no choices", nil)
	}

	usage := ports.Usage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}
	return parsed.Choices[0].Message.Content, usage, nil
}
