package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/agentcore-run/agentcore/internal/agentloop"
	agentcfg "github.com/agentcore-run/agentcore/internal/config"
	"github.com/agentcore-run/agentcore/internal/eventbus"
	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/internal/sessionlog"
	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/internal/transport"
)

var (
	serveAgent string
	serveDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep a session open and steer it interactively from stdin",
	Long: `Serve keeps one Agent Loop running against a single session, reading
steering/follow-up lines from stdin (prefix a line with "!" to queue it as a
follow-up instead of steering the in-flight turn) and a pending "ask"
permission's request ID followed by once|always|reject to resolve it.

This replaces the teacher's HTTP server with a stdio protocol; the REST/SSE
surface itself is out of scope here.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAgent, "agent", "build", "Agent profile to use (build|plan|general)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	logging.Info().Str("version", Version).Msg("agentcore serve starting")

	paths := agentcfg.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := agentcfg.Load(workDir)
	if err != nil {
		return err
	}
	if model := GetGlobalModel(); model != "" {
		cfg.Model = model
	}

	ctx := context.Background()
	transportReg, err := buildTransportRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	agentReg := buildAgentRegistry(cfg)
	profile, err := agentReg.Get(serveAgent)
	if err != nil {
		return fmt.Errorf("unknown agent %q: %w", serveAgent, err)
	}

	log, err := sessionlog.Create(workDir, paths.StoragePath())
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

	providerID, modelID := transport.ParseModelString(cfg.Model)
	loopCfg := agentloop.DefaultConfig(providerID, modelID, defaultContextWindow(transportReg, providerID, modelID))
	loopCfg.SystemPrompt = profile.Prompt
	loopCfg.Profile = profile
	loopCfg.Tools = toolReg.List()

	loop := agentloop.New(log, bus, transport.New(transportReg), toolexec.New(toolReg), loopCfg)

	subagentTools := buildToolRegistry(workDir)
	toolReg.Register(agentloop.NewTaskTool(loop, agentReg, subagentTools, workDir))
	loop.SetTools(toolReg.List())

	fmt.Fprintf(os.Stderr, "session %s (%s/%s) — type a prompt, \"!text\" to queue a follow-up, or \"perm <id> once|always|reject\"\n",
		log.SessionID(), providerID, modelID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var busy atomic.Bool
	var turns sync.WaitGroup
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "perm "):
			handlePermissionLine(loop, line)
		case strings.HasPrefix(line, "!"):
			loop.FollowUp(strings.TrimPrefix(line, "!"))
		default:
			if !busy.CompareAndSwap(false, true) {
				loop.Steer(line)
				continue
			}
			turns.Add(1)
			go func(text string) {
				defer turns.Done()
				defer busy.Store(false)
				if err := loop.Prompt(ctx, text, nil); err != nil {
					fmt.Fprintf(os.Stderr, "\n[error] %v\n", err)
				}
				fmt.Println()
			}(line)
		}
	}
	turns.Wait()
	return scanner.Err()
}

func handlePermissionLine(loop *agentloop.Loop, line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		fmt.Fprintln(os.Stderr, `usage: perm <request-id> once|always|reject`)
		return
	}
	requestID, action := fields[1], fields[2]
	switch action {
	case "once", "always", "reject":
	default:
		fmt.Fprintln(os.Stderr, "action must be once, always or reject")
		return
	}
	loop.RespondPermission(requestID, action)
}
