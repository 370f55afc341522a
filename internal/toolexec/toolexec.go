// Package toolexec implements the Tool Executor: a typed tool contract run
// with cancellation, timeouts, progress streaming and output truncation.
//
// Grounded in the teacher's internal/tool package (Tool/Context/Result
// shapes, per-tool Execute signatures) generalized to the spec's
// execute(toolCallId, args, abortSignal, onUpdate) -> Result contract, with
// context.Context standing in for abortSignal per Go idiom.
package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// Tool is one typed, side-effectful operation the Agent Loop can dispatch.
type Tool interface {
	Name() string
	Label() string
	Schema() json.RawMessage
	// Execute runs the tool. ctx carries both the timeout and the abort
	// signal: cancellation of ctx must be honored within a bounded grace
	// period. onUpdate streams partial progress (may be called zero or more
	// times before the final result).
	Execute(ctx context.Context, callID string, args json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error)
}

// Registry is the set of tools available to one Agent Loop / agent profile.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool's static ToolInfo, sorted by name,
// suitable for advertising to the
// Provider Transport.
func (r *Registry) List() []core.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, core.ToolInfo{Name: t.Name(), Label: t.Label(), Description: t.Label(), Parameters: t.Schema()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Executor runs a registered tool by call id, reporting unknown-tool or panic failures as isError results rather than
// as Go errors — spec.md §7 classifies a tool failure as data, not a core
// loop error, once dispatch has started.
type Executor struct {
	Registry *Registry
}

func New(reg *Registry) *Executor { return &Executor{Registry: reg} }

// RunOptions configures one dispatch.
type RunOptions struct {
	OnUpdate func(core.ToolUpdate)
}

// Run executes the named tool. It never returns a Go error: any failure
// (unknown tool, panic, tool-reported error) is folded into
// core.ToolExecResult.IsError so the caller can always append exactly one
// toolResult entry.
func (e *Executor) Run(ctx context.Context, callID, name string, args json.RawMessage, opts RunOptions) core.ToolExecResult {
	tool, ok := e.Registry.Get(name)
	if !ok {
		return errResult(fmt.Sprintf("unknown tool %q", name))
	}

	onUpdate := opts.OnUpdate
	if onUpdate == nil {
		onUpdate = func(core.ToolUpdate) {}
	}

	result, err := e.runProtected(ctx, tool, callID, args, onUpdate)
	if err != nil {
		return errResult(err.Error())
	}
	return result
}

func (e *Executor) runProtected(ctx context.Context, tool Tool, callID string, args json.RawMessage, onUpdate func(core.ToolUpdate)) (res core.ToolExecResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("tool", tool.Name()).Str("call_id", callID).
				Msg("toolexec: tool panicked")
			res = errResult(fmt.Sprintf("tool %q panicked: %v", tool.Name(), r))
			err = nil
		}
	}()
	return tool.Execute(ctx, callID, args, onUpdate)
}

func errResult(msg string) core.ToolExecResult {
	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: msg}},
		IsError: true,
	}
}
