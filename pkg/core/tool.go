package core

import "encoding/json"

// ToolInfo is the static description of a tool the Provider Transport
// advertises to the model.
type ToolInfo struct {
	Name        string          `json:"name"`
	Label       string          `json:"label,omitempty"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ToolUpdate is a partial-progress notification emitted while a tool runs.
type ToolUpdate struct {
	Title   string         `json:"title,omitempty"`
	Partial string         `json:"partial,omitempty"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

// ToolExecResult is what a tool execution produces, destined to become a
// ToolResult entry.
type ToolExecResult struct {
	Content []ToolResultContent `json:"content"`
	Details any                 `json:"details,omitempty"`
	IsError bool                `json:"isError,omitempty"`
}
