package agentloop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore-run/agentcore/internal/permission"
)

// checkPermission applies the active agent profile's allow/deny/ask policy
// to a tool call before it runs (spec.md §8 "Agent profiles"), generalized
// from the teacher's internal/session/tools.go permission gate onto the
// Event Bus-backed Checker. A nil profile allows every tool unconditionally
// except for doom-loop detection, which runOneToolCall applies separately.
func (l *Loop) checkPermission(ctx context.Context, callID, toolName, arguments string) error {
	profile := l.cfg.Profile
	if profile == nil {
		return nil
	}
	if !profile.ToolEnabled(toolName) {
		return &permission.RejectedError{
			SessionID: l.log.SessionID(),
			Type:      permission.PermissionType(toolName),
			CallID:    callID,
			Message:   fmt.Sprintf("tool %q is disabled for this agent", toolName),
		}
	}

	switch toolName {
	case "bash":
		return l.checkBashPermission(ctx, callID, arguments, profile)
	case "write", "edit":
		return l.checkSimplePermission(ctx, callID, toolName, permission.PermEdit, profile.Permission.Edit)
	case "webfetch":
		return l.checkSimplePermission(ctx, callID, toolName, permission.PermWebFetch, profile.Permission.WebFetch)
	default:
		return nil
	}
}

func (l *Loop) checkSimplePermission(ctx context.Context, callID, toolName string, permType permission.PermissionType, action permission.PermissionAction) error {
	if action == "" {
		action = permission.ActionAsk
	}
	return l.perm.Check(ctx, permission.Request{
		Type:      permType,
		SessionID: l.log.SessionID(),
		CallID:    callID,
		Title:     toolName,
	}, action)
}

// checkBashPermission asks the profile's bash pattern map
// (agent.Agent.CheckBashPermission) for a verdict on the command line.
// Arguments that are not valid JSON, or that carry an empty command, are not
// checked; a command the shell parser cannot read still gets the profile's
// verdict but carries no patterns for an "always" grant.
func (l *Loop) checkBashPermission(ctx context.Context, callID, arguments string, profile profileChecker) error {
	var args struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Command == "" {
		return nil
	}

	action := profile.CheckBashPermission(args.Command)

	var patterns []string
	if commands, err := permission.ParseBashCommand(args.Command); err == nil {
		patterns = permission.BuildPatterns(commands)
	}

	return l.perm.Check(ctx, permission.Request{
		Type:      permission.PermBash,
		SessionID: l.log.SessionID(),
		CallID:    callID,
		Title:     args.Command,
		Pattern:   patterns,
	}, action)
}

// profileChecker is the subset of *agent.Agent checkPermission needs,
// narrowed to keep this file independent of the agent package's full type.
type profileChecker interface {
	CheckBashPermission(command string) permission.PermissionAction
}
