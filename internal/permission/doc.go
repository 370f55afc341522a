// Package permission implements tool-call consent for the Agent Loop: each
// tool invocation that touches the filesystem, the network, or a shell is
// checked against a per-session policy before it runs.
//
// # Overview
//
// Permission is session-scoped: different sessions may have different
// policies, and "always allow" approvals granted mid-session apply only for
// that session's lifetime. Every check resolves to one of three actions:
//   - Allow: run the operation without prompting
//   - Deny: refuse the operation
//   - Ask: surface a prompt and wait for the caller's decision
//
// # Permission Types
//
//   - Bash: command execution, matched against patterns
//   - Edit: file modification
//   - WebFetch: fetching external URLs
//   - ExternalDir: operations outside the working directory
//   - DoomLoop: repeated-tool-call detection
//
// # Checker
//
// Checker is the central entry point: it holds per-session approval state
// and asks the event bus to surface prompts when a request isn't already
// resolved by policy.
//
//	checker := NewChecker(bus)
//	req := Request{
//		Type:      PermBash,
//		SessionID: "session-123",
//		Pattern:   []string{"git *"},
//		Title:     "Execute git command",
//	}
//	err := checker.Check(ctx, req, ActionAsk)
//
// # Bash Command Parsing
//
// ParseBashCommand breaks a shell command line into its constituent
// commands so permission patterns can match on the program name and
// subcommand rather than the raw string:
//
//	commands, err := ParseBashCommand("git commit -m 'fix bug'")
//	// commands[0] == BashCommand{Name: "git", Subcommand: "commit", Args: ["commit", "-m", "fix bug"]}
//
// # Pattern Matching
//
// Bash permissions support hierarchical wildcard patterns:
//   - "git commit *" matches any git commit invocation
//   - "git *" matches any git subcommand
//   - "git" matches the bare command
//   - "*" matches anything
//
// # Doom Loop Detection
//
// DoomLoopDetector watches for a tool being called with exactly the same
// arguments several times in a row, a sign the model is stuck:
//
//	detector := NewDoomLoopDetector()
//	if detector.Check(sessionID, "bash", commandInput) {
//		// surface a doom-loop warning instead of executing again
//	}
//
// # Agent Permission Policy
//
// AgentPermissions captures one agent profile's default policy per
// permission type, including fine-grained bash pattern overrides:
//
//	permissions := AgentPermissions{
//		Edit:        ActionAsk,
//		WebFetch:    ActionAllow,
//		ExternalDir: ActionDeny,
//		DoomLoop:    ActionAsk,
//		Bash: map[string]PermissionAction{
//			"git *":  ActionAllow,
//			"rm *":   ActionAsk,
//			"sudo *": ActionDeny,
//		},
//	}
//
// # Session State
//
// Checker remembers "always allow" grants for the lifetime of a session:
//
//	checker.ClearSession("session-123")
//	if checker.IsApproved("session-123", PermBash) {
//		// already granted, nothing to ask
//	}
//
// # Errors
//
// A denied request surfaces as a *RejectedError carrying the permission
// type and a human-readable reason:
//
//	if err != nil && IsRejectedError(err) {
//		rejErr := err.(*RejectedError)
//		log.Printf("permission denied for %s: %s", rejErr.Type, rejErr.Message)
//	}
//
// # Concurrency
//
// All exported types in this package are safe for concurrent use across the
// goroutines handling different sessions.
package permission
