package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// OpenAIAdapter wraps Eino's OpenAI-compatible chat model, reused for
// OpenAI itself and any OpenAI-wire-compatible endpoint (Ollama, local
// vLLM) distinguished by ID/BaseURL. UseAzure only switches the API key
// fallback to AZURE_OPENAI_API_KEY; APIVersion is not passed to the model.
type OpenAIAdapter struct {
	id        string
	chatModel einomodel.ToolCallingChatModel
	models    []core.ModelInfo
}

type OpenAIConfig struct {
	ID         string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	UseAzure   bool
	APIVersion string
}

func NewOpenAIAdapter(ctx context.Context, cfg OpenAIConfig) (*OpenAIAdapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.UseAzure {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = os.Getenv("OPENAI_MODEL_ID")
	}
	if modelID == "" {
		modelID = "gpt-4o"
	}

	oc := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, oc)
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "openai"
	}

	return &OpenAIAdapter{id: id, chatModel: chatModel, models: openAIModels(id)}, nil
}

func (a *OpenAIAdapter) ID() string                               { return a.id }
func (a *OpenAIAdapter) Models() []core.ModelInfo                 { return a.models }
func (a *OpenAIAdapter) ChatModel() einomodel.ToolCallingChatModel { return a.chatModel }
func (a *OpenAIAdapter) Classifier() Classifier                   { return HTTPStatusClassifier() }

func openAIModels(providerID string) []core.ModelInfo {
	return []core.ModelInfo{
		{ID: "gpt-4o", Name: "GPT-4o", ProviderID: providerID, ContextWindow: 128000,
			MaxOutputTokens: 16384, SupportsTools: true, SupportsVision: true,
			InputPrice: 2.5, OutputPrice: 10.0},
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", ProviderID: providerID, ContextWindow: 128000,
			MaxOutputTokens: 16384, SupportsTools: true, SupportsVision: true,
			InputPrice: 0.15, OutputPrice: 0.6},
		{ID: "o3-mini", Name: "o3-mini", ProviderID: providerID, ContextWindow: 200000,
			MaxOutputTokens: 100000, SupportsTools: true, SupportsReasoning: true,
			InputPrice: 1.1, OutputPrice: 4.4},
	}
}
