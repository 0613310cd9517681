package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/internal/helpers"
	"github.com/mohammad-safakhou/larkbot/internal/httpx"
	"github.com/mohammad-safakhou/larkbot/models"
)

// Client talks to the OpenAI chat completions API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *httpx.Client
}

type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []models.Message `json:"messages"`
	Temperature    float64          `json:"temperature"`
	MaxTokens      int              `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a new OpenAI client.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        httpx.NewClient(cfg.Timeout, cfg.MaxRetries, 0),
	}
}

func (c *Client) complete(ctx context.Context, messages []models.Message, format *responseFormat) (string, error) {
	req := chatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: format,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp chatResponse
	if err := c.http.DoJSON(ctx, "POST", c.baseURL+"/v1/chat/completions", headers, req, &resp); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete returns the model's free-text response for the conversation.
func (c *Client) Complete(ctx context.Context, messages []models.Message) (string, error) {
	return c.complete(ctx, messages, nil)
}

// CompleteJSON runs the conversation in JSON mode and decodes the response
// into out. Transport failures are returned as-is; a response that cannot be
// decoded is reported as models.ErrMalformedOutput so callers can apply
// their best-effort policy.
func (c *Client) CompleteJSON(ctx context.Context, messages []models.Message, out any) error {
	text, err := c.complete(ctx, messages, &responseFormat{Type: "json_object"})
	if err != nil {
		return err
	}
	raw, err := helpers.ExtractJSON(text)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedOutput, err)
	}
	return nil
}
