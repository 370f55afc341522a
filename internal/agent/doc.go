// Package agent defines the profiles an Agent Loop runs under: which tools
// are enabled, what permission policy governs them, and whether the
// profile can be selected as a primary session agent, invoked only as a
// subagent, or both.
//
// # Built-in Profiles
//
//   - build: primary agent for making changes — full tool access, permissive
//     defaults.
//   - plan: primary agent for analysis without making changes — read-only
//     tool access.
//   - general: subagent for general-purpose search and exploration.
//   - explore: subagent tuned for fast codebase exploration.
//
// # Modes
//
//   - ModePrimary: selectable as the main agent for a session
//   - ModeSubagent: invocable only through the task tool
//   - ModeAll: usable either way
//
// # Tool Access
//
// Tools map controls which tools a profile exposes, keyed by exact name or
// glob pattern (including doublestar `**`):
//
//	agent.Tools = map[string]bool{
//	    "*":     true,   // enabled by default
//	    "bash":  false,  // disabled specifically
//	    "mcp_*": true,   // all MCP-sourced tools enabled
//	}
//
// [Agent.ToolEnabled] resolves a tool name against this map.
//
// # Permissions
//
// [AgentPermission] attaches a permission.PermissionAction to each
// sensitive operation class a profile can perform: Edit, Bash (by pattern),
// WebFetch, ExternalDir, DoomLoop.
//
// # Registry
//
// Registry holds the set of profiles available to a process, thread-safe
// for concurrent lookups:
//
//	registry := agent.NewRegistry()  // seeded with the built-ins
//	registry.Register(customAgent)
//	a, err := registry.Get("build")
//	primaries := registry.ListPrimary()
//	subagents := registry.ListSubagents()
//
// # Custom Profiles
//
// [Registry.LoadFromConfig] layers configuration on top of the built-ins,
// overriding fields on a named profile or introducing a new one:
//
//	config := map[string]agent.AgentConfig{
//	    "build": {
//	        Temperature: 0.7,
//	        Permission: &agent.AgentPermissionConfig{
//	            Edit: permission.ActionAsk,
//	        },
//	    },
//	    "custom": {
//	        Description: "Custom agent",
//	        Mode:        agent.ModePrimary,
//	        Tools:       map[string]bool{"read": true, "glob": true},
//	    },
//	}
//	registry.LoadFromConfig(config)
package agent
