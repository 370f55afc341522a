package agentloop

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore-run/agentcore/internal/agent"
	"github.com/agentcore-run/agentcore/internal/contextbuilder"
	"github.com/agentcore-run/agentcore/internal/eventbus"
	"github.com/agentcore-run/agentcore/internal/permission"
	"github.com/agentcore-run/agentcore/internal/sessionlog"
	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/internal/transport"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// State is one of the Agent Loop's state-machine states, spec.md §4.5.
type State string

const (
	StateIdle             State = "idle"
	StatePreparingRequest State = "preparing_request"
	StateStreaming        State = "streaming"
	StateExecutingTools   State = "executing_tools"
	StateCompacting       State = "compacting"
	StateAborted          State = "aborted"
	StateErrored          State = "errored"
)

// MaxRounds bounds the number of tool-call rounds within a single turn, the
// same safety backstop as the teacher's MaxSteps (internal/session/loop.go).
const MaxRounds = 50

// Config is everything a Loop needs beyond the Session Log / transport /
// tool registry it is constructed with.
type Config struct {
	ProviderID   string
	ModelID      string
	SystemPrompt string
	Tools        []core.ToolInfo

	Compaction contextbuilder.CompactionPolicy

	SteeringMode core.DrainMode
	FollowUpMode core.DrainMode

	// Profile carries the active agent's tool/permission preset (spec.md §8
	// "Agent profiles"). Nil means every tool call is allowed unconditionally
	// except for doom-loop detection.
	Profile *agent.Agent
}

// DefaultConfig fills in the spec's documented defaults: one-at-a-time
// drain for both queues (spec.md §4.5 lists both modes as available; the
// teacher's UX defaults to draining one steering message per boundary).
func DefaultConfig(providerID, modelID string, contextWindow int) Config {
	return Config{
		ProviderID:   providerID,
		ModelID:      modelID,
		Compaction:   contextbuilder.DefaultCompactionPolicy(contextWindow),
		SteeringMode: core.DrainOneAtATime,
		FollowUpMode: core.DrainOneAtATime,
	}
}

// Loop is the Agent Session Core's central state machine: one instance per
// running session, exclusively owning that session's Session Log writer and
// in-progress assistant message (spec.md §9 "Ownership / lifetime").
type Loop struct {
	mu sync.Mutex

	log       *sessionlog.Log
	bus       *eventbus.Bus
	transport *transport.Transport
	tools     *toolexec.Executor
	doomLoop  *permission.DoomLoopDetector
	perm      *permission.Checker

	cfg   Config
	state State

	steering *queue
	followUp *queue

	abortCancel context.CancelFunc
}

// New constructs a Loop bound to an already-open Session Log.
func New(log *sessionlog.Log, bus *eventbus.Bus, tp *transport.Transport, tools *toolexec.Executor, cfg Config) *Loop {
	return &Loop{
		log:       log,
		bus:       bus,
		transport: tp,
		tools:     tools,
		doomLoop:  permission.NewDoomLoopDetector(),
		perm:      permission.NewChecker(bus),
		cfg:       cfg,
		state:     StateIdle,
		steering:  newQueue(core.QueueSteering),
		followUp:  newQueue(core.QueueFollowUp),
	}
}

// SetTools replaces the tool list advertised to the model, letting callers
// register tools (like the Task tool) that need the already-constructed Loop
// as their parent and so can't be known at New time.
func (l *Loop) SetTools(tools []core.ToolInfo) {
	l.mu.Lock()
	l.cfg.Tools = tools
	l.mu.Unlock()
}

// State returns the loop's current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Steer enqueues a steering message, consumed ahead of the in-flight turn's
// next request.
func (l *Loop) Steer(text string) core.QueuedUserMessage {
	m := l.steering.Enqueue(text, nil)
	l.publishQueueChanged(core.QueueSteering)
	return m
}

// FollowUp enqueues a follow-up message, appended after the current turn
// completes.
func (l *Loop) FollowUp(text string) core.QueuedUserMessage {
	m := l.followUp.Enqueue(text, nil)
	l.publishQueueChanged(core.QueueFollowUp)
	return m
}

// EditQueued edits a pending message by its timestamp identity. Returns
// false if the message was already drained by the loop (race-loss); the
// caller emits queue_changed regardless so the UI can reconcile (spec.md
// §9 Open Questions).
func (l *Loop) EditQueued(kind core.QueueKind, ts int64, text string) bool {
	q := l.queueFor(kind)
	ok := q.Edit(ts, text)
	l.publishQueueChanged(kind)
	return ok
}

// RemoveQueued removes one pending message by its snapshot index.
func (l *Loop) RemoveQueued(kind core.QueueKind, index int) bool {
	q := l.queueFor(kind)
	ok := q.RemoveAt(index)
	l.publishQueueChanged(kind)
	return ok
}

func (l *Loop) queueFor(kind core.QueueKind) *queue {
	if kind == core.QueueFollowUp {
		return l.followUp
	}
	return l.steering
}

func (l *Loop) publishQueueChanged(kind core.QueueKind) {
	q := l.queueFor(kind)
	l.bus.Publish(eventbus.Event{
		Type:      eventbus.QueueChanged,
		SessionID: l.log.SessionID(),
		Data:      struct {
			Kind     core.QueueKind
			Messages []core.QueuedUserMessage
		}{Kind: kind, Messages: q.Snapshot()},
	})
}

// Prompt appends a user message to the log and runs the turn to
// completion. This is the primary external entry point (spec.md §6
// `prompt(text, attachments?, behavior?)`).
func (l *Loop) Prompt(ctx context.Context, text string, attachments []core.Attachment) error {
	if _, err := l.log.Append(core.Entry{
		Type: core.EntryMessage,
		Message: &core.MessagePayload{
			Role: core.RoleUser,
			User: &core.UserMessage{Text: text, Attachments: attachments},
		},
	}); err != nil {
		return err
	}
	return l.Run(ctx)
}

// RespondPermission resolves a pending "ask" permission request raised
// through this loop's Event Bus (eventbus.PermissionRequired), letting
// whatever UI or CLI prompt is attached answer it by request ID.
func (l *Loop) RespondPermission(requestID, action string) {
	l.perm.Respond(requestID, action)
}

// Abort cancels the in-flight provider stream and every in-flight tool
// executor. It is safe to call when the loop is idle (a no-op).
func (l *Loop) Abort() {
	l.mu.Lock()
	cancel := l.abortCancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }
