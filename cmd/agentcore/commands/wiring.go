package commands

import (
	"context"
	"fmt"

	"github.com/agentcore-run/agentcore/internal/agent"
	agentcfg "github.com/agentcore-run/agentcore/internal/config"
	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/internal/permission"
	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/internal/transport"
)

func permissionAction(s string) permission.PermissionAction {
	return permission.PermissionAction(s)
}

// buildTransportRegistry registers an Adapter for every provider the
// teacher's Eino integration supports, skipping any whose API key can't be
// resolved rather than failing the whole run, grounded in the teacher's
// internal/provider.InitializeProviders.
func buildTransportRegistry(ctx context.Context, cfg *agentcfg.Config) (*transport.Registry, error) {
	reg := transport.NewRegistry()

	if pc, ok := cfg.Provider["anthropic"]; !ok || !pc.Disable {
		acfg := transport.AnthropicConfig{ID: "anthropic"}
		if pc.Options != nil {
			acfg.APIKey = pc.Options.APIKey
			acfg.BaseURL = pc.Options.BaseURL
		}
		if a, err := transport.NewAnthropicAdapter(ctx, acfg); err == nil {
			reg.Register(a)
		} else {
			logging.Warn().Err(err).Msg("anthropic provider unavailable")
		}
	}

	if pc, ok := cfg.Provider["openai"]; !ok || !pc.Disable {
		ocfg := transport.OpenAIConfig{ID: "openai"}
		if pc.Options != nil {
			ocfg.APIKey = pc.Options.APIKey
			ocfg.BaseURL = pc.Options.BaseURL
		}
		if a, err := transport.NewOpenAIAdapter(ctx, ocfg); err == nil {
			reg.Register(a)
		} else {
			logging.Warn().Err(err).Msg("openai provider unavailable")
		}
	}

	if pc, ok := cfg.Provider["bedrock"]; ok && !pc.Disable {
		acfg := transport.AnthropicConfig{ID: "bedrock", UseBedrock: true}
		if pc.Options != nil {
			acfg.BaseURL = pc.Options.BaseURL
		}
		if a, err := transport.NewAnthropicAdapter(ctx, acfg); err == nil {
			reg.Register(a)
		} else {
			logging.Warn().Err(err).Msg("bedrock provider unavailable")
		}
	}

	if pc, ok := cfg.Provider["ark"]; ok && !pc.Disable {
		rcfg := transport.ArkConfig{ID: "ark"}
		if pc.Options != nil {
			rcfg.APIKey = pc.Options.APIKey
			rcfg.BaseURL = pc.Options.BaseURL
		}
		if a, err := transport.NewArkAdapter(ctx, rcfg); err == nil {
			reg.Register(a)
		} else {
			logging.Warn().Err(err).Msg("ark provider unavailable")
		}
	}

	if len(reg.List()) == 0 {
		return nil, fmt.Errorf("no providers available: set ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}

	if cfg.Model != "" {
		reg.SetDefault(cfg.Model)
	}

	return reg, nil
}

// buildToolRegistry assembles the default toolexec.Registry shared by every
// primary and subagent loop, grounded in the teacher's tool.DefaultRegistry.
func buildToolRegistry(workDir string) *toolexec.Registry {
	reg := toolexec.NewRegistry()
	reg.Register(toolexec.NewBashTool(workDir))
	reg.Register(toolexec.NewReadTool(workDir))
	reg.Register(toolexec.NewWriteTool(workDir))
	reg.Register(toolexec.NewEditTool(workDir))
	reg.Register(toolexec.NewGlobTool(workDir))
	reg.Register(toolexec.NewGrepTool(workDir))
	reg.Register(toolexec.NewWebFetchTool())
	return reg
}

// buildAgentRegistry loads the built-in agent profiles plus any overrides
// from the config's "agent" block.
func buildAgentRegistry(cfg *agentcfg.Config) *agent.Registry {
	reg := agent.NewRegistry()
	if len(cfg.Agent) == 0 {
		return reg
	}
	overrides := make(map[string]agent.AgentConfig, len(cfg.Agent))
	for name, a := range cfg.Agent {
		overrides[name] = toAgentConfig(a)
	}
	reg.LoadFromConfig(overrides)
	return reg
}

func toAgentConfig(a agentcfg.AgentConfig) agent.AgentConfig {
	out := agent.AgentConfig{
		Description: a.Description,
		Mode:        agent.Mode(a.Mode),
		Prompt:      a.Prompt,
		Color:       a.Color,
		Tools:       a.Tools,
	}
	if a.Model != "" {
		providerID, modelID := transport.ParseModelString(a.Model)
		out.Model = &agent.ModelRef{ProviderID: providerID, ModelID: modelID}
	}
	if a.Temperature != nil {
		out.Temperature = *a.Temperature
	}
	if a.TopP != nil {
		out.TopP = *a.TopP
	}
	if a.Permission != nil {
		out.Permission = &agent.AgentPermissionConfig{
			Edit:        permissionAction(a.Permission.Edit),
			WebFetch:    permissionAction(a.Permission.WebFetch),
			ExternalDir: permissionAction(a.Permission.ExternalDir),
			DoomLoop:    permissionAction(a.Permission.DoomLoop),
		}
	}
	return out
}
