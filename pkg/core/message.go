package core

// StopReason is the terminal classification of an assistant message.
type StopReason string

const (
	StopNone     StopReason = ""
	StopStop     StopReason = "stop"
	StopToolUse  StopReason = "toolUse"
	StopLength   StopReason = "length"
	StopAborted  StopReason = "aborted"
	StopError    StopReason = "error"
)

// ContentBlockType distinguishes assistant content block variants.
type ContentBlockType string

const (
	BlockText     ContentBlockType = "text"
	BlockThinking ContentBlockType = "thinking"
	BlockToolCall ContentBlockType = "toolCall"
	BlockImage    ContentBlockType = "image"
)

// ContentBlock is one block of a message's ordered content. Exactly one
// payload is populated, selected by Type.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	Text string `json:"text,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	ToolCall *ToolCall `json:"toolCall,omitempty"`

	ImageURL       string `json:"imageUrl,omitempty"`
	ImageMediaType string `json:"imageMediaType,omitempty"`
}

// ToolCall is a single invocation the model asked the Tool Executor to run.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object text
}

// Usage captures token accounting for one assistant message.
type Usage struct {
	Input      int     `json:"input"`
	Output     int     `json:"output"`
	CacheRead  int     `json:"cacheRead,omitempty"`
	CacheWrite int     `json:"cacheWrite,omitempty"`
	Total      int     `json:"totalTokens"`
	Cost       float64 `json:"cost,omitempty"`
}

// AssistantMessage is the payload variant of `message` produced by the
// Provider Transport / Agent Loop.
type AssistantMessage struct {
	ProviderID string         `json:"providerId"`
	ModelID    string         `json:"modelId"`
	APIID      string         `json:"apiId,omitempty"`
	Content    []ContentBlock `json:"content"`
	Usage      Usage          `json:"usage"`
	StopReason StopReason     `json:"stopReason"`
	Error      string         `json:"error,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

// ToolResultContentType distinguishes tool result content block variants.
type ToolResultContentType string

const (
	ToolResultText  ToolResultContentType = "text"
	ToolResultImage ToolResultContentType = "image"
)

// ToolResultContent is one block of a ToolResult's content.
type ToolResultContent struct {
	Type      ToolResultContentType `json:"type"`
	Text      string                `json:"text,omitempty"`
	MediaType string                `json:"mediaType,omitempty"`
	URL       string                `json:"url,omitempty"`
}

// ToolResult is the payload variant of `message` carrying a tool's output
// back into the conversation.
type ToolResult struct {
	ToolCallID string              `json:"toolCallId"`
	ToolName   string              `json:"toolName"`
	Content    []ToolResultContent `json:"content"`
	IsError    bool                `json:"isError,omitempty"`
	Details    any                 `json:"details,omitempty"`
}

// TextOf concatenates every text content block, a convenience for rendering.
func (t *ToolResult) TextOf() string {
	s := ""
	for _, c := range t.Content {
		if c.Type == ToolResultText {
			s += c.Text
		}
	}
	return s
}
