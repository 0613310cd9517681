package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/models"
	openai_provider "github.com/mohammad-safakhou/larkbot/provider/openai"
)

// Provider is the structured inference port. Complete returns free text;
// CompleteJSON constrains the model to JSON mode and decodes the response
// into out, reporting models.ErrMalformedOutput when the payload does not
// parse.
type Provider interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
	CompleteJSON(ctx context.Context, messages []models.Message, out any) error
}

// NewProvider creates an inference provider from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return openai_provider.NewClient(cfg), nil
	default:
		return nil, errors.New("unsupported LLM provider: " + cfg.Type)
	}
}
