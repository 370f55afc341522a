package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentcore-run/agentcore/internal/agentloop"
	agentcfg "github.com/agentcore-run/agentcore/internal/config"
	"github.com/agentcore-run/agentcore/internal/eventbus"
	"github.com/agentcore-run/agentcore/internal/permission"
	"github.com/agentcore-run/agentcore/internal/sessionlog"
	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/internal/transport"
	"github.com/agentcore-run/agentcore/pkg/core"
)

var (
	runModel   string
	runAgent   string
	runContinue bool
	runSession  string
	runFiles    []string
	runDir      string
)

var runCmd = &cobra.Command{
	Use:   "run [message...]",
	Short: "Run a single prompt to completion and exit",
	Long: `Run starts (or continues) a session, sends one prompt, streams the
assistant's reply to stdout, and exits once the turn settles.

Examples:
  agentcore run "fix the failing test in pkg/core"
  agentcore run -m anthropic/claude-sonnet-4-20250514 "explain this function"
  agentcore run --continue "now add a test for it"`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model to use (provider/model format)")
	runCmd.Flags().StringVar(&runAgent, "agent", "build", "Agent profile to use (build|plan|general)")
	runCmd.Flags().BoolVarP(&runContinue, "continue", "c", false, "Continue the most recently modified session")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session ID to continue")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "File(s) to attach to the message")
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory")
}

func runOnce(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(runDir)
	if err != nil {
		return err
	}

	paths := agentcfg.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := agentcfg.Load(workDir)
	if err != nil {
		return err
	}
	if model := firstNonEmpty(runModel, GetGlobalModel()); model != "" {
		cfg.Model = model
	}

	message := strings.Join(args, " ")
	if message == "" && !runContinue && runSession == "" {
		return fmt.Errorf("message required: agentcore run \"your message\"")
	}
	message = appendFileAttachments(message, runFiles)

	ctx := context.Background()
	transportReg, err := buildTransportRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	agentReg := buildAgentRegistry(cfg)
	profile, err := agentReg.Get(runAgent)
	if err != nil {
		return fmt.Errorf("unknown agent %q: %w", runAgent, err)
	}

	log, err := openOrCreateLog(paths.StoragePath(), workDir, runSession, runContinue)
	if err != nil {
		return err
	}
	defer log.Close()

	bus := eventbus.New()
	unsubscribe := bus.SubscribeAll(printEvent)
	defer unsubscribe()

	toolReg := buildToolRegistry(workDir)
	todoStore := &toolexec.TodoStore{Log: log}
	toolReg.Register(toolexec.NewTodoWriteTool(todoStore))
	toolReg.Register(toolexec.NewTodoReadTool(todoStore))

	exec := toolexec.New(toolReg)

	providerID, modelID := transport.ParseModelString(cfg.Model)
	loopCfg := agentloop.DefaultConfig(providerID, modelID, defaultContextWindow(transportReg, providerID, modelID))
	loopCfg.SystemPrompt = profile.Prompt
	loopCfg.Profile = profile
	loopCfg.Tools = toolReg.List()

	loop := agentloop.New(log, bus, transport.New(transportReg), exec, loopCfg)

	subagentTools := buildToolRegistry(workDir)
	taskTool := agentloop.NewTaskTool(loop, agentReg, subagentTools, workDir)
	toolReg.Register(taskTool)
	loop.SetTools(toolReg.List())

	fmt.Fprintf(os.Stderr, "session %s (%s/%s)\n", log.SessionID(), providerID, modelID)

	if err := loop.Prompt(ctx, message, nil); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	fmt.Println()
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendFileAttachments(message string, files []string) string {
	var b strings.Builder
	b.WriteString(message)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n\n--- File: %s ---\n%s", f, string(content))
	}
	return b.String()
}

// openOrCreateLog opens an existing Session Log by ID (explicit or the most
// recently modified one for --continue), or starts a fresh one.
func openOrCreateLog(storageDir, cwd, sessionID string, useContinue bool) (*sessionlog.Log, error) {
	if sessionID == "" && useContinue {
		sessions, err := sessionlog.List(storageDir)
		if err != nil {
			return nil, err
		}
		if len(sessions) > 0 {
			latest := sessions[0]
			for _, s := range sessions[1:] {
				if s.ModifiedAt > latest.ModifiedAt {
					latest = s
				}
			}
			sessionID = latest.ID
		}
	}
	if sessionID != "" {
		path := sessionFilePath(storageDir, sessionID)
		if log, err := sessionlog.Open(path); err == nil {
			return log, nil
		}
	}
	return sessionlog.Create(cwd, storageDir)
}

func sessionFilePath(storageDir, sessionID string) string {
	return filepath.Join(storageDir, sessionID+".ndjson")
}

// printEvent is the default stdout printer for streaming events, grounded
// in the teacher's internal/headless/printer.go.
func printEvent(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.MessageUpdate:
		if se, ok := ev.Data.(transport.StreamEvent); ok && se.Type == transport.EventTextDelta {
			fmt.Print(se.Delta)
		}
	case eventbus.ToolExecutionStart:
		if call, ok := ev.Data.(struct{ Call core.ToolCall }); ok {
			fmt.Fprintf(os.Stderr, "\n[tool] %s\n", call.Call.Name)
		}
	case eventbus.PermissionRequired:
		if req, ok := ev.Data.(permission.Request); ok {
			fmt.Fprintf(os.Stderr, "\n[permission] %s wants %s (%s) — respond: perm %s once|always|reject\n",
				req.SessionID, req.Type, req.Title, req.ID)
		}
	case eventbus.Error:
		if e, ok := ev.Data.(struct{ Err string }); ok {
			fmt.Fprintf(os.Stderr, "\n[error] %s\n", e.Err)
		}
	}
}

func defaultContextWindow(reg *transport.Registry, providerID, modelID string) int {
	if m, err := reg.GetModel(providerID, modelID); err == nil {
		return m.ContextWindow
	}
	return 200000
}
