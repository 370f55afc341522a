package agentloop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore-run/agentcore/internal/agent"
	"github.com/agentcore-run/agentcore/internal/sessionlog"
	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// TaskTool spawns a nested, bounded Agent Loop run against a fresh
// in-memory Session Log — the subagent/task tool supplemented from the
// teacher's internal/tool/task.go + internal/executor/subagent.go. The
// subagent shares this loop's transport and event bus, runs its tools
// through its own executor over TaskTools, and never sees the "task" tool
// itself, so nesting cannot recurse unboundedly.
type TaskTool struct {
	Agents    *agent.Registry
	Parent    *Loop
	CWD       string
	TaskTools *toolexec.Registry // tool registry available to subagents (must not include "task")
}

// NewTaskTool constructs a TaskTool. If agents is nil, the built-in agent
// profiles are used; of those, only the subagent-mode ones (general,
// explore) can be dispatched.
func NewTaskTool(parent *Loop, agents *agent.Registry, subagentTools *toolexec.Registry, cwd string) *TaskTool {
	if agents == nil {
		agents = agent.NewRegistry()
	}
	return &TaskTool{Agents: agents, Parent: parent, CWD: cwd, TaskTools: subagentTools}
}

func (t *TaskTool) Name() string            { return "task" }
func (t *TaskTool) Label() string           { return "Running subagent" }
func (t *TaskTool) Schema() json.RawMessage { return toolexec.GenerateSchema[taskArgs]() }

type taskArgs struct {
	Description  string `json:"description" jsonschema:"required,description=A short (3-5 word) description of the task"`
	Prompt       string `json:"prompt" jsonschema:"required,description=The detailed task for the agent to perform"`
	SubagentType string `json:"subagentType" jsonschema:"required,description=The type of specialized agent to use (general/explore or a custom registered subagent)"`
	Model        string `json:"model,omitempty" jsonschema:"description=Optional model to use as providerId/modelId"`
}

func (t *TaskTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args taskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if args.Description == "" || args.Prompt == "" || args.SubagentType == "" {
		return errResult("description, prompt and subagentType are all required"), nil
	}

	profile, err := t.Agents.Get(args.SubagentType)
	if err != nil {
		return errResult(fmt.Sprintf("unknown subagent type %q: %v", args.SubagentType, err)), nil
	}
	if !profile.IsSubagent() {
		return errResult(fmt.Sprintf("agent %q cannot be used as a subagent (mode: %s)", args.SubagentType, profile.Mode)), nil
	}

	providerID, modelID := t.Parent.cfg.ProviderID, t.Parent.cfg.ModelID
	if args.Model != "" {
		if p, m := splitModelRef(args.Model); p != "" {
			providerID, modelID = p, m
		} else {
			modelID = m
		}
	} else if profile.Model != nil {
		providerID, modelID = profile.Model.ProviderID, profile.Model.ModelID
	}

	subLog := sessionlog.InMemory(sessionlog.NewSessionID(), t.CWD)
	subCfg := t.Parent.cfg
	subCfg.ProviderID = providerID
	subCfg.ModelID = modelID
	subCfg.SystemPrompt = profile.Prompt
	subCfg.Profile = profile
	if t.TaskTools != nil {
		subCfg.Tools = t.TaskTools.List()
	}

	toolRegistry := t.TaskTools
	if toolRegistry == nil {
		toolRegistry = toolexec.NewRegistry()
	}
	sub := New(subLog, t.Parent.bus, t.Parent.transport, toolexec.New(toolRegistry), subCfg)

	if err := sub.Prompt(ctx, args.Prompt, nil); err != nil {
		return errResult(fmt.Sprintf("subagent failed: %v", err)), nil
	}

	output := lastAssistantText(subLog.Branch())
	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: output}},
		Details: map[string]any{"sessionId": subLog.SessionID(), "subagentType": args.SubagentType},
	}, nil
}

func errResult(msg string) core.ToolExecResult {
	return core.ToolExecResult{
		IsError: true,
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: msg}},
	}
}

func splitModelRef(s string) (provider, model string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}

func lastAssistantText(branch []core.Entry) string {
	for i := len(branch) - 1; i >= 0; i-- {
		e := branch[i]
		if e.Message != nil && e.Message.Role == core.RoleAssistant && e.Message.Assistant != nil {
			var text string
			for _, b := range e.Message.Assistant.Content {
				if b.Type == core.BlockText {
					text += b.Text
				}
			}
			return text
		}
	}
	return ""
}
