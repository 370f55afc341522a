package config

// Config is the on-disk configuration shape, merged from the global and
// project config files and environment overrides (see Load): agentcore.json
// and agentcore.jsonc at each level, loaded via this same field layout.
type Config struct {
	Schema string `json:"$schema,omitempty"`

	Username string `json:"username,omitempty"`

	Model      string `json:"model,omitempty"`
	SmallModel string `json:"small_model,omitempty"`

	Share string `json:"share,omitempty"` // "manual"|"auto"|"disabled"

	Tools           map[string]bool   `json:"tools,omitempty"`
	Instructions    []string          `json:"instructions,omitempty"`
	PromptVariables map[string]string `json:"promptVariables,omitempty"`

	Provider map[string]ProviderConfig `json:"provider,omitempty"`
	Agent    map[string]AgentConfig    `json:"agent,omitempty"`
	Command  map[string]CommandConfig  `json:"command,omitempty"`

	Permission *PermissionConfig `json:"permission,omitempty"`

	// MCP declares MCP server endpoints for config-compatibility; nothing
	// in this repo dials them (the MCP client wrappers are out of scope).
	MCP map[string]MCPConfig `json:"mcp,omitempty"`
}

// ProviderConfig holds configuration for a specific model provider.
type ProviderConfig struct {
	Npm     string           `json:"npm,omitempty"`
	Options *ProviderOptions `json:"options,omitempty"`

	Models map[string]ProviderModelConfig `json:"models,omitempty"`

	Whitelist []string `json:"whitelist,omitempty"`
	Blacklist []string `json:"blacklist,omitempty"`
	Disable   bool     `json:"disable,omitempty"`
}

// ProviderOptions holds nested provider connection options.
type ProviderOptions struct {
	APIKey        string `json:"apiKey,omitempty"`
	BaseURL       string `json:"baseURL,omitempty"`
	EnterpriseURL string `json:"enterpriseUrl,omitempty"`
	Timeout       *int   `json:"timeout,omitempty"` // ms, nil = default, 0 = disabled
}

// ProviderModelConfig describes one model exposed by a provider, for
// OpenAI-compatible providers (e.g. Qwen) that aren't in the built-in model
// catalog.
type ProviderModelConfig struct {
	ID        string `json:"id"`
	Reasoning bool   `json:"reasoning,omitempty"`
	ToolCall  bool   `json:"tool_call,omitempty"`
}

// AgentConfig holds per-agent overrides layered onto an agent.Agent profile.
type AgentConfig struct {
	Model string `json:"model,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	Prompt string          `json:"prompt,omitempty"`
	Tools  map[string]bool `json:"tools,omitempty"`

	Permission *PermissionConfig `json:"permission,omitempty"`

	Description string `json:"description,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Color       string `json:"color,omitempty"`
	Disable     bool   `json:"disable,omitempty"`
}

// PermissionConfig holds permission settings; Bash may be a bare
// "allow"/"deny"/"ask" string or a map of command pattern -> action.
type PermissionConfig struct {
	Edit        string      `json:"edit,omitempty"`
	Bash        interface{} `json:"bash,omitempty"`
	WebFetch    string      `json:"webfetch,omitempty"`
	ExternalDir string      `json:"external_directory,omitempty"`
	DoomLoop    string      `json:"doom_loop,omitempty"`
}

// CommandConfig holds a custom slash-command template.
type CommandConfig struct {
	Template    string `json:"template"`
	Description string `json:"description,omitempty"`
	Agent       string `json:"agent,omitempty"`
	Model       string `json:"model,omitempty"`
	Subtask     bool   `json:"subtask,omitempty"`
}

// MCPConfig describes one MCP server entry for config-compatibility.
type MCPConfig struct {
	Type        string            `json:"type,omitempty"` // "local"|"remote"
	Command     []string          `json:"command,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	Timeout     int               `json:"timeout,omitempty"`
}
