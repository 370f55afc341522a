// Package transport implements the Provider Transport: a protocol-neutral
// streaming adapter over the Eino LLM framework, with retry/backoff,
// sanitization and a tolerant partial-JSON argument parser.
package transport

import "github.com/agentcore-run/agentcore/pkg/core"

// StreamEventType enumerates the protocol-neutral event sequence a
// Transport produces for one request.
type StreamEventType string

const (
	EventStart StreamEventType = "start"

	EventTextStart StreamEventType = "text_start"
	EventTextDelta StreamEventType = "text_delta"
	EventTextEnd   StreamEventType = "text_end"

	EventThinkingStart    StreamEventType = "thinking_start"
	EventThinkingDelta    StreamEventType = "thinking_delta"
	EventSignatureDelta   StreamEventType = "signature_delta"
	EventThinkingEnd      StreamEventType = "thinking_end"

	EventToolCallStart StreamEventType = "toolcall_start"
	EventToolCallDelta StreamEventType = "toolcall_delta"
	EventToolCallEnd   StreamEventType = "toolcall_end"

	EventMessageDelta StreamEventType = "message_delta"

	EventDone  StreamEventType = "done"
	EventError StreamEventType = "error"
)

// StreamEvent is one element of the monotonic sequence produced by a
// Transport stream, ending in exactly one of EventDone / EventError.
type StreamEvent struct {
	Type  StreamEventType
	Index int

	// text_delta / thinking_delta / signature_delta; toolcall_delta: a raw
	// json fragment of the arguments
	Delta string

	// text_end / thinking_end
	Content string

	// toolcall_start
	ToolCallID   string
	ToolCallName string

	// toolcall_end: the finished call, its Arguments being the accumulated
	// fragments parsed with ParsePartial and re-marshalled.
	ToolCall *core.ToolCall

	// message_delta
	StopReason core.StopReason
	Usage      *core.Usage

	// start
	Partial *core.AssistantMessage

	// done / error
	Message *core.AssistantMessage
	Err     error
}

// Stream is what a Transport.Send call returns: a channel of events ending
// in exactly one done/error event, plus a Close to release resources early
// (e.g. on abort).
type Stream struct {
	Events <-chan StreamEvent
	Close  func()
}
