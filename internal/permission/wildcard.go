package permission

import (
	"strings"
)

// MatchBashPermission resolves the policy entry that governs cmd, checking
// from most to least specific and falling back to Ask if nothing matches.
func MatchBashPermission(cmd BashCommand, permissions map[string]PermissionAction) PermissionAction {
	cmdWithSubcommand := cmd.Name
	if cmd.Subcommand != "" {
		cmdWithSubcommand = cmd.Name + " " + cmd.Subcommand
	}

	// "git commit *"
	if cmd.Subcommand != "" {
		if action, ok := permissions[cmdWithSubcommand+" *"]; ok {
			return action
		}
	}

	// "git *"
	if action, ok := permissions[cmd.Name+" *"]; ok {
		return action
	}

	// "git"
	if action, ok := permissions[cmd.Name]; ok {
		return action
	}

	// "*"
	if action, ok := permissions["*"]; ok {
		return action
	}

	return ActionAsk
}

// MatchPattern reports whether cmd matches a pattern of the form
// "command subcommand *", "command *", or "*".
func MatchPattern(pattern string, cmd BashCommand) bool {
	parts := strings.Split(pattern, " ")
	if len(parts) == 0 {
		return false
	}

	if parts[0] == "*" && len(parts) == 1 {
		return true
	}

	if parts[0] != "*" && parts[0] != cmd.Name {
		return false
	}

	// A bare command name pattern must match exactly, no trailing args.
	if len(parts) == 1 {
		return cmd.Name == parts[0] && len(cmd.Args) == 0
	}

	if parts[len(parts)-1] == "*" {
		for i := 1; i < len(parts)-1; i++ {
			argIndex := i - 1
			if argIndex >= len(cmd.Args) {
				return false
			}
			if parts[i] != "*" && parts[i] != cmd.Args[argIndex] {
				return false
			}
		}
		return true
	}

	if len(parts)-1 != len(cmd.Args) {
		return false
	}
	for i := 1; i < len(parts); i++ {
		if parts[i] != cmd.Args[i-1] {
			return false
		}
	}
	return true
}

// BuildPattern derives the permission pattern a command would match under
// MatchPattern, e.g. "git commit -m msg" -> "git commit *", "ls -la" -> "ls *".
func BuildPattern(cmd BashCommand) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}

// BuildPatterns derives the deduplicated set of patterns for a parsed
// command pipeline, skipping "cd" since directory changes are tracked
// separately from permission policy.
func BuildPatterns(commands []BashCommand) []string {
	seen := make(map[string]bool)
	var patterns []string

	for _, cmd := range commands {
		if cmd.Name == "cd" {
			continue
		}

		pattern := BuildPattern(cmd)
		if !seen[pattern] {
			seen[pattern] = true
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}
