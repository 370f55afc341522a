// Package contextbuilder reconstructs the message envelope a provider call
// should see from a Session Log branch: it finds the most recent compaction
// boundary, folds bash executions and tool results into provider-shaped
// messages, applies any persisted context_transform patches, and produces
// the final {systemPrompt, messages, tools} envelope.
//
// Grounded in the teacher's internal/session/compact.go (compaction
// threshold/config) and internal/session/system.go (system prompt
// assembly), generalized from a flat types.Message slice to Session Log
// Entry replay.
package contextbuilder

import (
	"encoding/json"
	"fmt"

	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// CompactionPolicy controls when the Agent Loop should request a
// compaction. Grounded in the teacher's CompactionConfig
// (internal/session/compact.go), renamed to the spec's token-budget terms.
type CompactionPolicy struct {
	// ContextWindow is the model's total context size in tokens.
	ContextWindow int
	// ReserveTokens is held back for the response and safety margin.
	ReserveTokens int
	// MinEntriesToKeep is the implementation-defined lower bound on how much
	// of the branch survives a compaction: at least this many trailing
	// branch entries (of any type, not only messages) are never folded into
	// the summary. The default of 4 aims to keep the most recent complete
	// user<->assistant exchange.
	MinEntriesToKeep int
}

// DefaultCompactionPolicy mirrors the teacher's DefaultCompactionConfig
// (0.75 threshold over a 200k window becomes an explicit reserve here).
func DefaultCompactionPolicy(contextWindow int) CompactionPolicy {
	return CompactionPolicy{
		ContextWindow:    contextWindow,
		ReserveTokens:    contextWindow / 4,
		MinEntriesToKeep: 4,
	}
}

// ShouldCompact implements the trigger in spec.md §4.2: request a
// compaction once the last assistant usage plus an estimate of what the
// next turn will add would breach the reserved headroom.
func (p CompactionPolicy) ShouldCompact(lastAssistantTotalTokens, estimatedAddedTokens int) bool {
	if p.ContextWindow <= 0 {
		return false
	}
	return lastAssistantTotalTokens+estimatedAddedTokens >= p.ContextWindow-p.ReserveTokens
}

// Envelope is the `{systemPrompt, messages, tools}` triple the Provider
// Transport receives for one turn.
type Envelope struct {
	SystemPrompt string
	Messages     []core.ChatMessage
	Tools        []core.ToolInfo
}

// Branch is the minimal view of a Session Log branch the builder needs.
// internal/sessionlog.Log.Branch() satisfies this directly.
type Branch = []core.Entry

// Build reconstructs the envelope for the given branch (typically
// log.Branch(), the chain from root to the current leaf).
//
// Algorithm (spec.md §4.2):
//  1. Scan backward for the most recent compaction entry (boundary B).
//  2. If found, the prefix is a synthesized user message carrying the
//     summary, a synthesized assistant acknowledgment, then every message
//     entry from B.FirstKeptEntryID forward. Otherwise start at the
//     branch's first user message.
//  3. Fold bashExecution entries into adjacent text; coalesce consecutive
//     toolResult messages into a single user message.
//  4. Apply context_transform patches newer than B, in timestamp order.
//  5. Produce {systemPrompt, messages, tools}.
func Build(branch Branch, systemPrompt string, tools []core.ToolInfo) Envelope {
	boundary, keepFromIdx := findCompactionBoundary(branch)

	var msgs []core.ChatMessage

	if boundary != nil {
		msgs = append(msgs,
			core.ChatMessage{
				Role:    core.ChatUser,
				Content: []core.ContentBlock{{Type: core.BlockText, Text: "[Conversation summary]\n" + boundary.Summary}},
			},
			core.ChatMessage{
				Role:    core.ChatAssistant,
				Content: []core.ContentBlock{{Type: core.BlockText, Text: "Understood, continuing from the summary above."}},
			},
		)
	}

	rendered := renderEntries(branch[keepFromIdx:])
	msgs = append(msgs, rendered...)

	var transforms []core.ContextTransformPayload
	boundaryTS := int64(0)
	if boundary != nil {
		boundaryTS = boundaryTimestamp(branch, boundary)
	}
	for _, e := range branch {
		if e.Type != core.EntryContextTransform || e.ContextTransform == nil {
			continue
		}
		if e.Timestamp <= boundaryTS {
			continue
		}
		transforms = append(transforms, *e.ContextTransform)
	}
	for _, t := range transforms {
		msgs = applyTransform(msgs, t)
	}

	msgs = annotateCache(msgs)

	return Envelope{SystemPrompt: systemPrompt, Messages: msgs, Tools: tools}
}

// findCompactionBoundary scans backward for the most recent compaction
// entry and returns it plus the branch index to start rendering from
// (the index of FirstKeptEntryID, or 0 if no compaction exists).
func findCompactionBoundary(branch Branch) (*core.CompactionPayload, int) {
	for i := len(branch) - 1; i >= 0; i-- {
		if branch[i].Type == core.EntryCompaction && branch[i].Compaction != nil {
			c := branch[i].Compaction
			for j, e := range branch {
				if e.ID == c.FirstKeptEntryID {
					return c, j
				}
			}
			// FirstKeptEntryID not found on this branch (shouldn't happen);
			// fall back to rendering everything after the compaction entry.
			return c, i + 1
		}
	}
	return nil, 0
}

func boundaryTimestamp(branch Branch, boundary *core.CompactionPayload) int64 {
	for _, e := range branch {
		if e.Type == core.EntryCompaction && e.Compaction == boundary {
			return e.Timestamp
		}
	}
	return 0
}

// renderEntries folds a slice of log entries into provider-shaped chat
// messages: bashExecution entries become text appended to the nearest open
// message of the same role, consecutive toolResult entries coalesce into
// one user message carrying every tool result content block in order.
func renderEntries(entries []core.Entry) []core.ChatMessage {
	var out []core.ChatMessage
	var pendingToolResults *core.ChatMessage

	flushToolResults := func() {
		if pendingToolResults != nil {
			out = append(out, *pendingToolResults)
			pendingToolResults = nil
		}
	}

	for _, e := range entries {
		if e.Type != core.EntryMessage || e.Message == nil {
			continue
		}
		m := e.Message

		switch m.Role {
		case core.RoleUser:
			flushToolResults()
			if m.User == nil {
				continue
			}
			out = append(out, core.ChatMessage{
				Role:    core.ChatUser,
				Content: []core.ContentBlock{{Type: core.BlockText, Text: m.User.Text}},
			})

		case core.RoleAssistant:
			flushToolResults()
			if m.Assistant == nil {
				continue
			}
			out = append(out, core.ChatMessage{
				Role:    core.ChatAssistant,
				Content: assistantBlocks(m.Assistant),
			})

		case core.RoleToolResult:
			if m.ToolResult == nil {
				continue
			}
			block := core.ContentBlock{Type: core.BlockText, Text: m.ToolResult.TextOf()}
			if pendingToolResults == nil {
				pendingToolResults = &core.ChatMessage{
					Role:       core.ChatTool,
					ToolCallID: m.ToolResult.ToolCallID,
					Content:    []core.ContentBlock{block},
				}
			} else {
				pendingToolResults.Content = append(pendingToolResults.Content, block)
			}

		case core.RoleBashExecution:
			if m.Bash == nil {
				continue
			}
			text := fmt.Sprintf("$ %s\n%s", m.Bash.Command, m.Bash.Output)
			if m.Bash.ExitCode != 0 {
				text += fmt.Sprintf("\n(exit %d)", m.Bash.ExitCode)
			}
			if len(out) > 0 && out[len(out)-1].Role == core.ChatUser {
				last := &out[len(out)-1]
				last.Content = append(last.Content, core.ContentBlock{Type: core.BlockText, Text: text})
			} else {
				out = append(out, core.ChatMessage{
					Role:    core.ChatUser,
					Content: []core.ContentBlock{{Type: core.BlockText, Text: text}},
				})
			}

		case core.RoleBranchSummary, core.RoleCompactionSummary:
			flushToolResults()
			if m.Summary == nil {
				continue
			}
			out = append(out, core.ChatMessage{
				Role:    core.ChatUser,
				Content: []core.ContentBlock{{Type: core.BlockText, Text: *m.Summary}},
			})
		}
	}
	flushToolResults()
	return out
}

// assistantBlocks converts an AssistantMessage's content into provider chat
// blocks. A thinking block without a signature is demoted to text, per the
// Provider Transport's forward-without-signature rule (spec.md §4.3) —
// applied here so every consumer of the envelope sees already-safe content.
func assistantBlocks(a *core.AssistantMessage) []core.ContentBlock {
	out := make([]core.ContentBlock, 0, len(a.Content))
	for _, b := range a.Content {
		if b.Type == core.BlockThinking && b.Signature == "" {
			out = append(out, core.ContentBlock{Type: core.BlockText, Text: b.Thinking})
			continue
		}
		out = append(out, b)
	}
	return out
}

// applyTransform applies one context_transform's operations. The only
// operation understood is messages_cached_replace; any other Op is skipped
// with a warning log.
func applyTransform(msgs []core.ChatMessage, t core.ContextTransformPayload) []core.ChatMessage {
	for _, op := range t.Operations {
		if op.Op != "messages_cached_replace" {
			logging.Warn().Str("op", op.Op).Msg("contextbuilder: skipping unknown context_transform operation")
			continue
		}
		var replacement []core.ChatMessage
		if len(op.Replacement) > 0 {
			_ = json.Unmarshal(op.Replacement, &replacement)
		}
		n := op.CachedPrefixCount
		if n < 0 || n > len(msgs) {
			continue
		}
		msgs = append(append([]core.ChatMessage{}, replacement...), msgs[n:]...)
	}
	return msgs
}

// annotateCache marks the last content block of the last user message as
// ephemerally cacheable, per spec.md §4.3. Purely a request-shape decision;
// the Provider Transport decides per-model whether the provider supports it
// (transport.AnnotateCache re-derives this from the live request, this
// marks intent at envelope-build time for callers that inspect Cacheable
// before invoking the transport).
func annotateCache(msgs []core.ChatMessage) []core.ChatMessage {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != core.ChatUser || len(msgs[i].Content) == 0 {
			continue
		}
		msgs[i].Cacheable = true
		return msgs
	}
	return msgs
}
