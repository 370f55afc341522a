package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// Transport is the Provider Transport facade: request sanitization, retry,
// and translation of one Eino chat-model stream into the protocol-neutral
// StreamEvent sequence.
type Transport struct {
	Registry *Registry
}

func New(registry *Registry) *Transport {
	return &Transport{Registry: registry}
}

// Send issues req against providerID's Adapter and returns a Stream of
// protocol-neutral events terminating in exactly one done/error event.
func (t *Transport) Send(ctx context.Context, providerID string, req core.Request) (*Stream, error) {
	adapter, err := t.Registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	model, err := t.Registry.GetModel(providerID, req.Model)
	if err != nil {
		return nil, err
	}

	req.Messages = SanitizeMessages(req.Messages, model.SupportsVision)
	req.Messages = AnnotateCache(req.Messages, model.SupportsCaching)

	chatModel := adapter.ChatModel()
	if len(req.Tools) > 0 {
		chatModel, err = chatModel.WithTools(toEinoTools(req.Tools))
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
	}

	einoMsgs := toEinoMessages(req)
	opts := callOptions(req.Options)

	policy := DefaultRetryPolicy(adapter.Classifier())

	var reader *schema.StreamReader[*schema.Message]
	err = policy.Do(ctx, func() error {
		r, e := chatModel.Stream(ctx, einoMsgs, opts...)
		if e != nil {
			return e
		}
		reader = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	events := make(chan StreamEvent, 16)
	ctx, cancel := context.WithCancel(ctx)
	go pump(ctx, reader, events)

	var closeOnce sync.Once
	return &Stream{
		Events: events,
		Close: func() {
			closeOnce.Do(func() {
				cancel()
				reader.Close()
			})
		},
	}, nil
}

// toolAccumulator tracks one in-flight tool call's arguments across deltas,
// indexed the way Eino keys streaming tool calls: by Index when present,
// falling back to ID.
type toolAccumulator struct {
	id, name string
	args     strings.Builder
}

// chunkReader is the subset of *schema.StreamReader[*schema.Message] pump
// needs, narrowed so tests can supply a fake chunk source without
// constructing a real Eino stream.
type chunkReader interface {
	Recv() (*schema.Message, error)
}

func pump(ctx context.Context, reader chunkReader, out chan<- StreamEvent) {
	defer close(out)

	emit := func(e StreamEvent) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(StreamEvent{Type: EventStart}) {
		return
	}

	var textOpen, thinkingOpen bool
	var accumulatedText, accumulatedThinking string
	tools := map[string]*toolAccumulator{}
	toolOrder := []string{}
	var usage core.Usage
	var stopReason core.StopReason

	finish := func(reason core.StopReason) {
		for _, key := range toolOrder {
			ta := tools[key]
			val, _ := ParsePartial(ta.args.String())
			argsJSON, _ := json.Marshal(val)
			emit(StreamEvent{
				Type:       EventToolCallEnd,
				ToolCallID: ta.id,
				ToolCall:   &core.ToolCall{ID: ta.id, Name: ta.name, Arguments: string(argsJSON)},
			})
		}
		if textOpen {
			emit(StreamEvent{Type: EventTextEnd, Content: accumulatedText})
		}
		if thinkingOpen {
			emit(StreamEvent{Type: EventThinkingEnd, Content: accumulatedThinking})
		}
		emit(StreamEvent{Type: EventMessageDelta, StopReason: reason, Usage: &usage})
		emit(StreamEvent{Type: EventDone, StopReason: reason, Usage: &usage})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := reader.Recv()
		if err == io.EOF {
			finish(stopReason)
			return
		}
		if err != nil {
			emit(StreamEvent{Type: EventError, Err: err})
			return
		}

		if msg.Content != "" {
			if !textOpen {
				textOpen = true
				accumulatedText = msg.Content
				emit(StreamEvent{Type: EventTextStart})
				emit(StreamEvent{Type: EventTextDelta, Delta: msg.Content})
			} else {
				delta := deltaOf(accumulatedText, msg.Content)
				accumulatedText += delta
				emit(StreamEvent{Type: EventTextDelta, Delta: delta})
			}
		}

		if msg.ReasoningContent != "" {
			if !thinkingOpen {
				thinkingOpen = true
				accumulatedThinking = msg.ReasoningContent
				emit(StreamEvent{Type: EventThinkingStart})
				emit(StreamEvent{Type: EventThinkingDelta, Delta: msg.ReasoningContent})
			} else {
				delta := deltaOf(accumulatedThinking, msg.ReasoningContent)
				accumulatedThinking += delta
				emit(StreamEvent{Type: EventThinkingDelta, Delta: delta})
			}
		}

		for _, tc := range msg.ToolCalls {
			key := toolKey(tc)
			ta, exists := tools[key]
			if !exists && tc.ID != "" && tc.Function.Name != "" {
				ta = &toolAccumulator{id: tc.ID, name: tc.Function.Name}
				tools[key] = ta
				toolOrder = append(toolOrder, key)
				emit(StreamEvent{Type: EventToolCallStart, ToolCallID: tc.ID, ToolCallName: tc.Function.Name})
			}
			if ta != nil && tc.Function.Arguments != "" {
				ta.args.WriteString(tc.Function.Arguments)
				emit(StreamEvent{Type: EventToolCallDelta, ToolCallID: ta.id, Delta: tc.Function.Arguments})
			}
		}

		if msg.ResponseMeta != nil {
			if msg.ResponseMeta.Usage != nil {
				usage.Input = msg.ResponseMeta.Usage.PromptTokens
				usage.Output = msg.ResponseMeta.Usage.CompletionTokens
				usage.Total = usage.Input + usage.Output
			}
			if r := normalizeStopReason(msg.ResponseMeta.FinishReason); r != core.StopNone {
				stopReason = r
			}
		}
	}
}

// deltaOf recovers the incremental text a provider sent, tolerating both
// accumulated-content chunks (new starts with previous) and true deltas.
func deltaOf(prev, next string) string {
	if strings.HasPrefix(next, prev) {
		return next[len(prev):]
	}
	return next
}

func toolKey(tc schema.ToolCall) string {
	if tc.Index != nil {
		return fmt.Sprintf("idx:%d", *tc.Index)
	}
	return tc.ID
}

func normalizeStopReason(reason string) core.StopReason {
	switch reason {
	case "stop", "end_turn":
		return core.StopStop
	case "tool_use", "tool_calls", "tool-calls":
		return core.StopToolUse
	case "length", "max_tokens":
		return core.StopLength
	case "":
		return core.StopNone
	default:
		return core.StopError
	}
}
