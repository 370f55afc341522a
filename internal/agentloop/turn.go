package agentloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentcore-run/agentcore/internal/contextbuilder"
	"github.com/agentcore-run/agentcore/internal/eventbus"
	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/internal/permission"
	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/internal/transport"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// Run drives the loop from its current log position until it reaches a
// terminal state: no tool calls left to execute, the follow-up queue is
// empty, and no compaction is pending. Grounded in the teacher's
// internal/session/loop.go runLoop, restructured around the Session
// Log / Context Builder / Event Bus / Tool Executor split.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.abortCancel = cancel
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.abortCancel = nil
		l.mu.Unlock()
		cancel()
	}()

	for round := 0; round < MaxRounds; round++ {
		l.drainSteeringIntoLog()

		continueTurn, err := l.runOneModelStep(ctx)
		if err != nil {
			l.setState(StateErrored)
			l.publishError(err)
			return err
		}
		if ctx.Err() != nil {
			l.setState(StateAborted)
			return ctx.Err()
		}
		if continueTurn {
			continue
		}

		// Terminal for this round of tool-call iteration. Drain one
		// follow-up boundary, if any, and keep going; otherwise stop.
		followUps := l.followUp.Drain(l.cfg.FollowUpMode)
		if len(followUps) == 0 {
			break
		}
		for _, m := range followUps {
			if _, err := l.log.Append(core.Entry{
				Type: core.EntryMessage,
				Message: &core.MessagePayload{
					Role: core.RoleUser,
					User: &core.UserMessage{Text: m.Text, Attachments: m.Attachments},
				},
			}); err != nil {
				l.setState(StateErrored)
				return err
			}
		}
	}

	l.setState(StateIdle)
	l.maybeCompact(ctx)
	return nil
}

// drainSteeringIntoLog folds any pending steering messages in ahead of the
// next request by appending them as ordinary user entries — the Context
// Builder has no notion of "steering", only of what is in the branch.
func (l *Loop) drainSteeringIntoLog() {
	pending := l.steering.Drain(l.cfg.SteeringMode)
	for _, m := range pending {
		l.log.Append(core.Entry{
			Type: core.EntryMessage,
			Message: &core.MessagePayload{
				Role: core.RoleUser,
				User: &core.UserMessage{Text: m.Text, Attachments: m.Attachments},
			},
		})
	}
	if len(pending) > 0 {
		l.publishQueueChanged(core.QueueSteering)
	}
}

// runOneModelStep issues exactly one Provider Transport request, appends
// the resulting assistant entry, and — if the model asked for tools —
// dispatches and appends their results. It returns continueTurn=true when
// another model step should immediately follow (i.e. tools ran).
func (l *Loop) runOneModelStep(ctx context.Context) (continueTurn bool, err error) {
	l.setState(StatePreparingRequest)

	model, modelErr := l.resolveModel()
	if modelErr != nil {
		return false, modelErr
	}

	envelope := contextbuilder.Build(l.log.Branch(), l.cfg.SystemPrompt, l.cfg.Tools)

	req := core.Request{
		Model:        model.ID,
		SystemPrompt: envelope.SystemPrompt,
		Messages:     envelope.Messages,
		Tools:        envelope.Tools,
	}

	l.setState(StateStreaming)
	stream, err := l.transport.Send(ctx, l.cfg.ProviderID, req)
	if err != nil {
		return false, fmt.Errorf("provider transport: %w", err)
	}
	defer stream.Close()

	assistant, err := l.consumeStream(ctx, stream)
	if err != nil {
		return false, err
	}

	entryID, err := l.log.Append(core.Entry{
		Type:    core.EntryMessage,
		Message: &core.MessagePayload{Role: core.RoleAssistant, Assistant: assistant},
	})
	if err != nil {
		return false, err
	}

	l.bus.Publish(eventbus.Event{
		Type:      eventbus.MessageEnd,
		SessionID: l.log.SessionID(),
		Data:      struct {
			EntryID string
			Message *core.AssistantMessage
		}{EntryID: entryID, Message: assistant},
	})

	if assistant.StopReason != core.StopToolUse {
		return false, nil
	}

	calls := toolCallsOf(assistant)
	if len(calls) == 0 {
		return false, nil
	}

	l.setState(StateExecutingTools)
	l.runToolCalls(ctx, calls)
	return true, nil
}

func (l *Loop) resolveModel() (*core.ModelInfo, error) {
	if l.cfg.ProviderID == "" || l.cfg.ModelID == "" {
		return l.transport.Registry.DefaultModel()
	}
	return l.transport.Registry.GetModel(l.cfg.ProviderID, l.cfg.ModelID)
}

func toolCallsOf(a *core.AssistantMessage) []core.ToolCall {
	var calls []core.ToolCall
	for _, b := range a.Content {
		if b.Type == core.BlockToolCall && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}

// consumeStream accumulates one Provider Transport stream into a finished
// AssistantMessage, republishing every chunk onto the Event Bus as it
// arrives so observers see incremental progress (spec.md §4.6).
func (l *Loop) consumeStream(ctx context.Context, stream *transport.Stream) (*core.AssistantMessage, error) {
	msg := &core.AssistantMessage{ProviderID: l.cfg.ProviderID, ModelID: l.cfg.ModelID}

	// toolIndex tracks each tool call's position within msg.Content by
	// index, not pointer: later text/thinking deltas can grow msg.Content
	// past its capacity and reallocate the backing array, which would
	// silently strand a pointer into the old array.
	toolIndex := map[string]int{}

	publish := func(data any) {
		l.bus.Publish(eventbus.Event{Type: eventbus.MessageUpdate, SessionID: l.log.SessionID(), Data: data})
	}

	for ev := range stream.Events {
		switch ev.Type {
		case transport.EventTextDelta:
			appendTextDelta(msg, ev.Delta)
			publish(ev)
		case transport.EventThinkingDelta:
			appendThinkingDelta(msg, ev.Delta)
			publish(ev)
		case transport.EventSignatureDelta:
			appendSignatureDelta(msg, ev.Delta)
		case transport.EventToolCallStart:
			block := core.ContentBlock{Type: core.BlockToolCall, ToolCall: &core.ToolCall{ID: ev.ToolCallID, Name: ev.ToolCallName}}
			msg.Content = append(msg.Content, block)
			toolIndex[ev.ToolCallID] = len(msg.Content) - 1
			publish(ev)
		case transport.EventToolCallDelta:
			publish(ev)
		case transport.EventToolCallEnd:
			if ev.ToolCall != nil {
				if i, ok := toolIndex[ev.ToolCallID]; ok {
					msg.Content[i].ToolCall.Arguments = ev.ToolCall.Arguments
				}
			}
		case transport.EventMessageDelta:
			if ev.Usage != nil {
				msg.Usage = *ev.Usage
			}
			if ev.StopReason != core.StopNone {
				msg.StopReason = ev.StopReason
			}
		case transport.EventDone:
			if ev.Usage != nil {
				msg.Usage = *ev.Usage
			}
			if ev.StopReason != core.StopNone {
				msg.StopReason = ev.StopReason
			}
			return msg, nil
		case transport.EventError:
			msg.StopReason = core.StopError
			msg.Error = ev.Err.Error()
			return msg, ev.Err
		}
	}
	return msg, ctx.Err()
}

func appendTextDelta(msg *core.AssistantMessage, delta string) {
	if n := len(msg.Content); n > 0 && msg.Content[n-1].Type == core.BlockText {
		msg.Content[n-1].Text += delta
		return
	}
	msg.Content = append(msg.Content, core.ContentBlock{Type: core.BlockText, Text: delta})
}

func appendThinkingDelta(msg *core.AssistantMessage, delta string) {
	if n := len(msg.Content); n > 0 && msg.Content[n-1].Type == core.BlockThinking {
		msg.Content[n-1].Thinking += delta
		return
	}
	msg.Content = append(msg.Content, core.ContentBlock{Type: core.BlockThinking, Thinking: delta})
}

func appendSignatureDelta(msg *core.AssistantMessage, delta string) {
	if n := len(msg.Content); n > 0 && msg.Content[n-1].Type == core.BlockThinking {
		msg.Content[n-1].Signature += delta
	}
}

// runToolCalls executes every call concurrently but appends each call's
// toolResult entry to the Session Log strictly in the order the model
// declared them, regardless of completion order (spec.md §4.4 ordering
// guarantee). Each call also passes through the doom-loop detector.
func (l *Loop) runToolCalls(ctx context.Context, calls []core.ToolCall) {
	results := make([]core.ToolExecResult, len(calls))

	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, call := range calls {
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			results[i] = l.runOneToolCall(ctx, call)
		}(i, call)
	}
	wg.Wait()

	for i, call := range calls {
		res := results[i]
		entryID, err := l.log.Append(core.Entry{
			Type: core.EntryMessage,
			Message: &core.MessagePayload{
				Role: core.RoleToolResult,
				ToolResult: &core.ToolResult{
					ToolCallID: call.ID,
					ToolName:   call.Name,
					Content:    res.Content,
					IsError:    res.IsError,
					Details:    res.Details,
				},
			},
		})
		if err != nil {
			logging.Error().Err(err).Str("toolCallId", call.ID).Msg("append tool result")
			continue
		}
		l.bus.Publish(eventbus.Event{
			Type:      eventbus.ToolExecutionEnd,
			SessionID: l.log.SessionID(),
			Data:      struct {
				EntryID string
				Result  core.ToolExecResult
			}{EntryID: entryID, Result: res},
		})
	}
}

func (l *Loop) runOneToolCall(ctx context.Context, call core.ToolCall) core.ToolExecResult {
	l.bus.Publish(eventbus.Event{
		Type:      eventbus.ToolExecutionStart,
		SessionID: l.log.SessionID(),
		Data:      struct{ Call core.ToolCall }{Call: call},
	})

	if err := l.checkPermission(ctx, call.ID, call.Name, call.Arguments); err != nil {
		return core.ToolExecResult{
			IsError: true,
			Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: err.Error()}},
		}
	}

	doomLoopAllowed := l.cfg.Profile != nil && l.cfg.Profile.Permission.DoomLoop == permission.ActionAllow
	if !doomLoopAllowed && l.doomLoop != nil && l.doomLoop.Check(l.log.SessionID(), call.Name, call.Arguments) {
		return core.ToolExecResult{
			IsError: true,
			Content: []core.ToolResultContent{{
				Type: core.ToolResultText,
				Text: fmt.Sprintf("refusing to run %q again: identical invocation repeated too many times in a row", call.Name),
			}},
		}
	}

	onUpdate := func(u core.ToolUpdate) {
		l.bus.Publish(eventbus.Event{
			Type:      eventbus.ToolExecutionUpdate,
			SessionID: l.log.SessionID(),
			Data:      struct {
				CallID string
				Update core.ToolUpdate
			}{CallID: call.ID, Update: u},
		})
	}

	return l.tools.Run(ctx, call.ID, call.Name, []byte(call.Arguments), toolexec.RunOptions{OnUpdate: onUpdate})
}

func (l *Loop) publishError(err error) {
	l.bus.Publish(eventbus.Event{
		Type:      eventbus.Error,
		SessionID: l.log.SessionID(),
		Data:      struct{ Err string }{Err: err.Error()},
	})
}
