package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// AnthropicAdapter wraps Eino's Claude chat model.
type AnthropicAdapter struct {
	id        string
	chatModel einomodel.ToolCallingChatModel
	models    []core.ModelInfo
}

// AnthropicConfig holds the knobs NewAnthropicAdapter needs. ID defaults to
// "anthropic" when empty, letting one deployment register multiple
// Claude-compatible endpoints (Bedrock, direct API) under distinct IDs.
type AnthropicConfig struct {
	ID         string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Thinking   *claude.Thinking
	UseBedrock bool
	Region     string
	Profile    string
}

// NewAnthropicAdapter builds an Adapter over the Claude chat model.
func NewAnthropicAdapter(ctx context.Context, cfg AnthropicConfig) (*AnthropicAdapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" && !cfg.UseBedrock {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}

	var chatModel einomodel.ToolCallingChatModel
	var err error
	if cfg.UseBedrock {
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			ByBedrock: true,
			Region:    cfg.Region,
			Profile:   cfg.Profile,
			Model:     "anthropic." + modelID + "-v1:0",
			MaxTokens: cfg.MaxTokens,
			Thinking:  cfg.Thinking,
		})
	} else {
		cc := &claude.Config{
			APIKey:    apiKey,
			Model:     modelID,
			MaxTokens: cfg.MaxTokens,
			Thinking:  cfg.Thinking,
		}
		if cfg.BaseURL != "" {
			cc.BaseURL = &cfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, cc)
	}
	if err != nil {
		return nil, fmt.Errorf("create claude chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "anthropic"
	}

	return &AnthropicAdapter{id: id, chatModel: chatModel, models: anthropicModels(id)}, nil
}

func (a *AnthropicAdapter) ID() string                               { return a.id }
func (a *AnthropicAdapter) Models() []core.ModelInfo                 { return a.models }
func (a *AnthropicAdapter) ChatModel() einomodel.ToolCallingChatModel { return a.chatModel }

// Classifier retries 429/5xx and connection errors, matching the provider's
// documented rate-limit and overload behavior.
func (a *AnthropicAdapter) Classifier() Classifier { return HTTPStatusClassifier() }

func anthropicModels(providerID string) []core.ModelInfo {
	return []core.ModelInfo{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ProviderID: providerID,
			ContextWindow: 200000, MaxOutputTokens: 64000, SupportsTools: true,
			SupportsVision: true, SupportsCaching: true, InputPrice: 3.0, OutputPrice: 15.0},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ProviderID: providerID,
			ContextWindow: 200000, MaxOutputTokens: 32000, SupportsTools: true,
			SupportsVision: true, SupportsReasoning: true, SupportsCaching: true,
			InputPrice: 15.0, OutputPrice: 75.0},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ProviderID: providerID,
			ContextWindow: 200000, MaxOutputTokens: 8192, SupportsTools: true,
			SupportsVision: true, SupportsCaching: true, InputPrice: 3.0, OutputPrice: 15.0},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ProviderID: providerID,
			ContextWindow: 200000, MaxOutputTokens: 8192, SupportsTools: true,
			SupportsVision: true, InputPrice: 0.8, OutputPrice: 4.0},
	}
}
