package core

// ModelInfo describes one model a Provider exposes.
type ModelInfo struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ProviderID        string  `json:"providerId"`
	ContextWindow     int     `json:"contextWindow"`
	MaxOutputTokens   int     `json:"maxOutputTokens,omitempty"`
	SupportsTools     bool    `json:"supportsTools"`
	SupportsVision    bool    `json:"supportsVision"`
	SupportsReasoning bool    `json:"supportsReasoning,omitempty"`
	SupportsCaching   bool    `json:"supportsCaching,omitempty"`
	InputPrice        float64 `json:"inputPrice,omitempty"`
	OutputPrice       float64 `json:"outputPrice,omitempty"`
}

// RequestOptions carries the per-request knobs the Provider Transport
// accepts alongside messages and tools.
type RequestOptions struct {
	Temperature    float64
	TopP           float64
	MaxTokens      int
	Stop           []string
	ThinkingBudget int
	Headers        map[string]string
}

// Request is the protocol-neutral input to a Provider Transport call.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []ChatMessage
	Tools        []ToolInfo
	Options      RequestOptions
}

// ChatRole is the role of one ChatMessage in a Request.
type ChatRole string

const (
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
	ChatTool      ChatRole = "tool"
)

// ChatMessage is one entry of the envelope the Context Builder produces,
// already folded/coalesced per the rules in the Context Builder algorithm.
type ChatMessage struct {
	Role       ChatRole
	Content    []ContentBlock
	ToolCallID string // populated when Role == ChatTool
	Cacheable  bool   // last-block-of-last-user-message cache annotation
}
