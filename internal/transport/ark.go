package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// ArkAdapter wraps Eino's Volcengine ARK chat model.
type ArkAdapter struct {
	id        string
	chatModel einomodel.ToolCallingChatModel
	models    []core.ModelInfo
}

type ArkConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string // ARK endpoint ID
	MaxTokens int
}

func NewArkAdapter(ctx context.Context, cfg ArkConfig) (*ArkAdapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = os.Getenv("ARK_MODEL_ID")
	}
	if modelID == "" {
		return nil, fmt.Errorf("ARK_MODEL_ID not set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("ARK_BASE_URL")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	ac := &ark.ChatModelConfig{APIKey: apiKey, Model: modelID, MaxTokens: &maxTokens}
	if baseURL != "" {
		ac.BaseURL = baseURL
	}

	chatModel, err := ark.NewChatModel(ctx, ac)
	if err != nil {
		return nil, fmt.Errorf("create ark chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "ark"
	}

	return &ArkAdapter{id: id, chatModel: chatModel, models: []core.ModelInfo{
		{ID: modelID, Name: modelID, ProviderID: id, ContextWindow: 128000,
			SupportsTools: true},
	}}, nil
}

func (a *ArkAdapter) ID() string                               { return a.id }
func (a *ArkAdapter) Models() []core.ModelInfo                 { return a.models }
func (a *ArkAdapter) ChatModel() einomodel.ToolCallingChatModel { return a.chatModel }
func (a *ArkAdapter) Classifier() Classifier                   { return HTTPStatusClassifier() }
