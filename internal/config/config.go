// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.agentcore/)
// 2. Project config (.agentcore/)
// 3. AGENTCORE_CONFIG / AGENTCORE_CONFIG_CONTENT overrides
// 4. Environment variables
//
// A .env file in directory (if any) is loaded first so provider API keys
// and model overrides can be supplied without exporting them into the
// shell, grounded in the teacher's use of github.com/joho/godotenv in its
// test bootstrapping, generalized here to production config loading.
func Load(directory string) (*Config, error) {
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	} else {
		_ = godotenv.Load()
	}

	config := &Config{
		Provider: make(map[string]ProviderConfig),
		Agent:    make(map[string]AgentConfig),
	}

	globalPath := filepath.Join(os.Getenv("HOME"), ".agentcore")
	loadConfigFile(filepath.Join(globalPath, "agentcore.json"), config)
	loadConfigFile(filepath.Join(globalPath, "agentcore.jsonc"), config)

	// When directory is the home directory the project config is the global
	// one; loading it twice would append its instructions twice.
	if projectPath := filepath.Join(directory, ".agentcore"); directory != "" && filepath.Clean(projectPath) != filepath.Clean(globalPath) {
		loadConfigFile(filepath.Join(projectPath, "agentcore.json"), config)
		loadConfigFile(filepath.Join(projectPath, "agentcore.jsonc"), config)
	}

	if content := os.Getenv("AGENTCORE_CONFIG_CONTENT"); content != "" {
		var inline Config
		if err := json.Unmarshal(interpolate([]byte(content), directory), &inline); err == nil {
			mergeConfig(config, &inline)
		}
	} else if path := os.Getenv("AGENTCORE_CONFIG"); path != "" {
		loadConfigFile(path, config)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file, tolerating a missing path.
func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, filepath.Dir(path))

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

var (
	envPattern  = regexp.MustCompile(`\{env:([A-Za-z_][A-Za-z0-9_]*)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// interpolate expands "{env:NAME}" and "{file:relative/path}" placeholders
// found anywhere in a config file's raw bytes before it is unmarshaled.
// File paths are resolved relative to baseDir (the config file's own
// directory). A missing env var interpolates to empty string; a missing
// file is left untouched so the placeholder round-trips instead of being
// silently swallowed.
func interpolate(data []byte, baseDir string) []byte {
	data = envPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
	data = filePattern.ReplaceAllFunc(data, func(m []byte) []byte {
		rel := string(filePattern.FindSubmatch(m)[1])
		path := rel
		if baseDir != "" && !filepath.IsAbs(rel) {
			path = filepath.Join(baseDir, rel)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return m
		}
		return content
	})
	return data
}

// mergeConfig merges source config into target, source taking priority.
func mergeConfig(target, source *Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Username != "" {
		target.Username = source.Username
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SmallModel != "" {
		target.SmallModel = source.SmallModel
	}
	if source.Share != "" {
		target.Share = source.Share
	}
	if len(source.Instructions) > 0 {
		target.Instructions = append(target.Instructions, source.Instructions...)
	}
	if source.Permission != nil {
		target.Permission = source.Permission
	}

	if source.Tools != nil {
		if target.Tools == nil {
			target.Tools = make(map[string]bool)
		}
		for k, v := range source.Tools {
			target.Tools[k] = v
		}
	}
	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}
	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = make(map[string]AgentConfig)
		}
		for name, src := range source.Agent {
			if dst, ok := target.Agent[name]; ok {
				target.Agent[name] = mergeAgentConfig(dst, src)
				continue
			}
			target.Agent[name] = src
		}
	}
	if source.Command != nil {
		if target.Command == nil {
			target.Command = make(map[string]CommandConfig)
		}
		for k, v := range source.Command {
			target.Command[k] = v
		}
	}
	if source.MCP != nil {
		if target.MCP == nil {
			target.MCP = make(map[string]MCPConfig)
		}
		for k, v := range source.MCP {
			target.MCP[k] = v
		}
	}
}

// mergeAgentConfig merges per-agent tool maps instead of replacing them
// wholesale, so a project config can enable one extra tool without having to
// repeat every tool the global config already enabled.
func mergeAgentConfig(target, source AgentConfig) AgentConfig {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.Temperature != nil {
		target.Temperature = source.Temperature
	}
	if source.TopP != nil {
		target.TopP = source.TopP
	}
	if source.Prompt != "" {
		target.Prompt = source.Prompt
	}
	if source.Permission != nil {
		target.Permission = source.Permission
	}
	if source.Tools != nil {
		if target.Tools == nil {
			target.Tools = make(map[string]bool)
		}
		for k, v := range source.Tools {
			target.Tools[k] = v
		}
	}
	return target
}

// applyEnvOverrides applies environment variable overrides, the
// highest-priority layer.
func applyEnvOverrides(config *Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"google":    "GOOGLE_API_KEY",
		"bedrock":   "AWS_ACCESS_KEY_ID",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]ProviderConfig)
			}
			p := config.Provider[provider]
			if p.Options == nil {
				p.Options = &ProviderOptions{}
			}
			if p.Options.APIKey == "" {
				p.Options.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("AGENTCORE_MODEL"); model != "" {
		config.Model = model
	}
	if smallModel := os.Getenv("AGENTCORE_SMALL_MODEL"); smallModel != "" {
		config.SmallModel = smallModel
	}
}

// Save writes the configuration to path as indented JSON.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
