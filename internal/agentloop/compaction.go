package agentloop

import (
	"context"
	"fmt"

	"github.com/agentcore-run/agentcore/internal/contextbuilder"
	"github.com/agentcore-run/agentcore/internal/eventbus"
	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// compactionSummaryPrompt asks the model to compress everything kept so far
// into a prose summary, grounded in the teacher's internal/session/compact.go
// summary-prompt shape.
const compactionSummaryPrompt = "Summarize this conversation so far in enough detail that work can continue " +
	"without the original messages: note what was asked, what was done, the current state of any files " +
	"touched, and anything still outstanding. Be concise but do not omit details needed to continue."

// maybeCompact triggers compaction when the last assistant turn's usage
// crossed the configured policy's threshold. Compaction never rewrites the
// Session Log's history — it appends one `compaction` entry whose
// FirstKeptEntryID marks the boundary the Context Builder honors on every
// subsequent Build call (spec.md §4.1 "compaction boundary").
func (l *Loop) maybeCompact(ctx context.Context) {
	branch := l.log.Branch()
	lastUsage, ok := lastAssistantUsage(branch)
	if !ok {
		return
	}
	if !l.cfg.Compaction.ShouldCompact(lastUsage.Total, 0) {
		return
	}

	firstKept, ok := compactionTarget(branch, l.cfg.Compaction.MinEntriesToKeep)
	if !ok {
		return
	}

	l.setState(StateCompacting)
	l.bus.Publish(eventbus.Event{Type: eventbus.CompactionStarted, SessionID: l.log.SessionID()})

	summary, err := l.summarize(ctx, branch, firstKept)
	if err != nil {
		logging.Error().Err(err).Msg("compaction summary failed")
		l.setState(StateIdle)
		return
	}

	_, err = l.log.Append(core.Entry{
		Type: core.EntryCompaction,
		Compaction: &core.CompactionPayload{
			Summary:          summary,
			FirstKeptEntryID: firstKept,
			TokensBefore:     lastUsage.Total,
		},
	})
	if err != nil {
		logging.Error().Err(err).Msg("append compaction entry")
	}

	l.bus.Publish(eventbus.Event{Type: eventbus.CompactionFinished, SessionID: l.log.SessionID()})
	l.setState(StateIdle)
}

func lastAssistantUsage(branch []core.Entry) (core.Usage, bool) {
	for i := len(branch) - 1; i >= 0; i-- {
		e := branch[i]
		if e.Type == core.EntryMessage && e.Message != nil && e.Message.Role == core.RoleAssistant && e.Message.Assistant != nil {
			return e.Message.Assistant.Usage, true
		}
	}
	return core.Usage{}, false
}

// compactionTarget picks the entry id to keep the log from, leaving at
// least minKeep entries un-summarized at the tail.
func compactionTarget(branch []core.Entry, minKeep int) (string, bool) {
	if minKeep <= 0 {
		minKeep = 1
	}
	if len(branch) <= minKeep {
		return "", false
	}
	idx := len(branch) - minKeep
	return branch[idx].ID, true
}

// summarize issues one non-streamed-to-log model call to produce the
// compaction summary text; the call itself is not appended to the log.
func (l *Loop) summarize(ctx context.Context, branch []core.Entry, firstKept string) (string, error) {
	var keepIdx int
	for i, e := range branch {
		if e.ID == firstKept {
			keepIdx = i
			break
		}
	}

	toSummarize := branch[:keepIdx]
	envelope := contextbuilder.Build(toSummarize, "", nil)
	envelope.Messages = append(envelope.Messages, core.ChatMessage{
		Role:    core.ChatUser,
		Content: []core.ContentBlock{{Type: core.BlockText, Text: compactionSummaryPrompt}},
	})

	model, err := l.resolveModel()
	if err != nil {
		return "", err
	}

	stream, err := l.transport.Send(ctx, l.cfg.ProviderID, core.Request{
		Model:    model.ID,
		Messages: envelope.Messages,
	})
	if err != nil {
		return "", fmt.Errorf("compaction request: %w", err)
	}
	defer stream.Close()

	msg, err := l.consumeStream(ctx, stream)
	if err != nil {
		return "", err
	}

	var text string
	for _, b := range msg.Content {
		if b.Type == core.BlockText {
			text += b.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("compaction: model returned no summary text")
	}
	return text, nil
}
