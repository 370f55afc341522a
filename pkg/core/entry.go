// Package core holds the data model shared by every Agent Session Core
// component: session headers, log entries, message payloads and tool
// contracts.
package core

import "encoding/json"

// EntryType identifies the payload carried by a Session Log entry.
type EntryType string

const (
	EntryMessage              EntryType = "message"
	EntryCompaction           EntryType = "compaction"
	EntryModelChange          EntryType = "model_change"
	EntryThinkingLevelChange  EntryType = "thinking_level_change"
	EntryLabel                EntryType = "label"
	EntrySessionInfo           EntryType = "session_info"
	EntryContextTransform      EntryType = "context_transform"
	EntryCustom                EntryType = "custom"
)

// MessageRole distinguishes the kind of message payload an EntryMessage
// carries.
type MessageRole string

const (
	RoleUser              MessageRole = "user"
	RoleAssistant          MessageRole = "assistant"
	RoleToolResult          MessageRole = "toolResult"
	RoleBashExecution       MessageRole = "bashExecution"
	RoleBranchSummary       MessageRole = "branchSummary"
	RoleCompactionSummary   MessageRole = "compactionSummary"
	RoleCustom              MessageRole = "custom"
)

// Entry is the atomic unit appended to a Session Log. Exactly one of the
// payload fields is populated, selected by Type.
type Entry struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Type      EntryType `json:"type"`

	Message          *MessagePayload          `json:"message,omitempty"`
	Compaction       *CompactionPayload       `json:"compaction,omitempty"`
	ModelChange      *ModelChangePayload      `json:"modelChange,omitempty"`
	ThinkingLevel    *ThinkingLevelPayload    `json:"thinkingLevel,omitempty"`
	Label            *LabelPayload            `json:"label,omitempty"`
	SessionInfo      *SessionInfoPayload      `json:"sessionInfo,omitempty"`
	ContextTransform *ContextTransformPayload `json:"contextTransform,omitempty"`
	Custom           json.RawMessage          `json:"custom,omitempty"`
}

// MessagePayload wraps one of the conversational message shapes.
type MessagePayload struct {
	Role MessageRole `json:"role"`

	Assistant  *AssistantMessage `json:"assistant,omitempty"`
	User       *UserMessage      `json:"user,omitempty"`
	ToolResult *ToolResult       `json:"toolResult,omitempty"`
	Bash       *BashExecution    `json:"bash,omitempty"`
	Summary    *string           `json:"summary,omitempty"`
	Custom     json.RawMessage   `json:"custom,omitempty"`
}

// UserMessage is a plain user turn: text plus optional attachments.
type UserMessage struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file reference attached to a user message.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
}

// BashExecution records a raw shell invocation folded into the rendered
// context as text (distinct from a tool-call/toolResult pair — used for
// commands run outside the tool-call protocol, e.g. REPL "!" shortcuts).
type BashExecution struct {
	Command  string `json:"command"`
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
}

// CompactionPayload records a compaction event.
type CompactionPayload struct {
	Summary          string `json:"summary"`
	FirstKeptEntryID string `json:"firstKeptEntryId"`
	TokensBefore     int    `json:"tokensBefore"`
}

// ModelChangePayload records a model switch.
type ModelChangePayload struct {
	ProviderID string `json:"providerId"`
	ModelID    string `json:"modelId"`
}

// ThinkingLevelPayload records a reasoning-effort change.
type ThinkingLevelPayload struct {
	Level string `json:"level"`
}

// LabelPayload attaches a human label to another entry.
type LabelPayload struct {
	TargetEntryID string `json:"targetEntryId"`
	Label         string `json:"label"`
}

// SessionInfoPayload mutates the session's display name.
type SessionInfoPayload struct {
	Name string `json:"name"`
}

// ContextTransformPayload is a persisted patch produced by an extension
// before a model call.
type ContextTransformPayload struct {
	Operations        []ContextTransformOp `json:"operations"`
	InvalidationReason string              `json:"invalidationReason,omitempty"`
}

// ContextTransformOp is one operation within a context_transform entry.
// The only operation currently understood by the Context Builder is
// "messages_cached_replace"; other Op values are skipped with a warning.
type ContextTransformOp struct {
	Op                string          `json:"op"`
	CachedPrefixCount int             `json:"cachedPrefixCount,omitempty"`
	Replacement       json.RawMessage `json:"replacement,omitempty"`
}

// Header is the first record of a session file.
type Header struct {
	Type              string `json:"type"` // always "header"
	Version           int    `json:"version"`
	SessionID         string `json:"sessionId"`
	CWD               string `json:"cwd"`
	CreatedAt         int64  `json:"createdAt"`
	ParentSessionPath string `json:"parentSessionPath,omitempty"`
}

// HeaderVersion is the current session file format version.
const HeaderVersion = 1
