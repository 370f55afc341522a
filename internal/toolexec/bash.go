package toolexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/internal/permission"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// Bash execution limits, grounded in internal/tool/bash.go's
// DefaultBashTimeout/MaxBashTimeout/MaxOutputLength/SigkillTimeout, widened
// per spec.md §4.4 into a rolling byte/line budget with spill-to-tempfile
// instead of a flat character cutoff.
const (
	DefaultBashTimeout = 120 * time.Second
	MaxBashTimeout     = 10 * time.Minute
	SigkillGrace       = 250 * time.Millisecond

	MaxTailBytes = 30 * 1024 // M kilobytes
	MaxTailLines = 1000      // N lines
)

// InteractivePredicate decides whether a command should bypass streaming
// execution and be handed to an injected interactive executor that owns the
// terminal (spec.md §4.4). Grounded in permission.ParseBashCommand for the
// structural check.
type InteractivePredicate func(command string) bool

// DefaultInteractivePredicate flags commands whose leading word is a known
// terminal-owning program (editors, pagers, REPLs).
func DefaultInteractivePredicate(command string) bool {
	cmds, err := permission.ParseBashCommand(command)
	if err != nil || len(cmds) == 0 {
		return false
	}
	switch cmds[0].Name {
	case "vim", "vi", "nano", "emacs", "less", "more", "top", "htop", "ssh", "python", "python3", "node", "irb", "psql", "mysql":
		return true
	}
	return false
}

// InteractiveExecutor owns the terminal for commands the predicate flags.
type InteractiveExecutor interface {
	RunInteractive(ctx context.Context, command, dir, shell string) (exitCode int, err error)
}

// BashTool runs a shell command in the tool's working directory, streaming
// merged stdout+stderr with tail-truncation and supporting a detached
// "background" mode. Grounded in internal/tool/bash.go.
type BashTool struct {
	WorkDir     string
	Shell       string
	Interactive InteractivePredicate
	InteractiveExec InteractiveExecutor
	SpillDir    string // directory for overflow spill files; os.TempDir() if empty
}

// NewBashTool constructs a bash tool bound to workDir, auto-detecting the
// login shell the way internal/tool/bash.go does.
func NewBashTool(workDir string) *BashTool {
	return &BashTool{
		WorkDir:     workDir,
		Shell:       detectShell(),
		Interactive: DefaultInteractivePredicate,
	}
}

func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" && s != "/bin/fish" && s != "/usr/bin/fish" {
		return s
	}
	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	return "/bin/sh"
}

func (t *BashTool) Name() string  { return "bash" }
func (t *BashTool) Label() string { return "Execute a shell command" }

func (t *BashTool) Schema() json.RawMessage { return GenerateSchema[bashArgs]() }

// bashArgs is the parsed input for one bash invocation.
type bashArgs struct {
	Command     string `json:"command" jsonschema:"required,description=The command to execute"`
	Timeout     int    `json:"timeout,omitempty" jsonschema:"description=Optional timeout in milliseconds (max 600000)"`
	Background  bool   `json:"background,omitempty" jsonschema:"description=Run detached, returning immediately with a pid and log file"`
	Description string `json:"description" jsonschema:"required,description=Brief description of what this command does"`
}

func (t *BashTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	if onUpdate == nil {
		onUpdate = func(core.ToolUpdate) {}
	}

	var args bashArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(fmt.Sprintf("invalid bash input: %v", err)), nil
	}

	if t.Interactive != nil && t.Interactive(args.Command) && t.InteractiveExec != nil {
		code, err := t.InteractiveExec.RunInteractive(ctx, args.Command, t.WorkDir, t.Shell)
		if err != nil {
			return errResult(err.Error()), nil
		}
		text := fmt.Sprintf("(interactive session exited with code %d)", code)
		return core.ToolExecResult{
			Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: text}},
			IsError: code != 0,
		}, nil
	}

	if args.Background {
		return t.runBackground(args)
	}

	timeout := DefaultBashTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Millisecond
		if timeout > MaxBashTimeout {
			timeout = MaxBashTimeout
		}
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return t.runStreaming(cmdCtx, args, onUpdate)
}

// runStreaming spawns the shell with a process group so the whole process
// tree can be killed, streams merged output into a rolling tail buffer with
// overflow spilled to a temp file, and reports partial progress as chunks
// arrive.
func (t *BashTool) runStreaming(ctx context.Context, args bashArgs, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	cmd := shellCommand(ctx, t.Shell, args.Command)
	cmd.Dir = t.WorkDir
	cmd.Env = os.Environ()
	setProcessGroup(cmd)

	tail := newTailBuffer(MaxTailBytes, MaxTailLines, t.SpillDir)
	defer tail.close()

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return errResult(fmt.Sprintf("failed to start command: %v", err)), nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				tail.write(buf[:n])
				onUpdate(core.ToolUpdate{Title: args.Description, Partial: tail.string()})
			}
			if err != nil {
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-done

	timedOut := ctx.Err() == context.DeadlineExceeded
	aborted := !timedOut && ctx.Err() == context.Canceled

	if timedOut || aborted {
		killTree(cmd)
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	output := tail.string()
	if timedOut {
		output += fmt.Sprintf("\n\n(command timed out after %v, process tree killed)", ctx.Err())
	} else if aborted {
		output += "\n\n(command aborted, process tree killed)"
	} else if waitErr != nil {
		if ee, ok := waitErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			output += fmt.Sprintf("\n\nerror: %v", waitErr)
		}
	}
	if tail.truncated {
		output += fmt.Sprintf("\n\n(output truncated, full log at %s)", tail.spillPath)
	}

	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: output}},
		Details: map[string]any{"exitCode": exitCode, "timedOut": timedOut, "aborted": aborted, "spillPath": tail.spillPath},
		IsError: exitCode != 0 || timedOut || aborted,
	}, nil
}

// runBackground spawns the command detached, with stdout/stderr redirected
// to a log file via shell redirection before backgrounding, and returns
// immediately with the captured pid. The backgrounded process must not
// inherit the parent's pipes (spec.md §4.4).
func (t *BashTool) runBackground(args bashArgs) (core.ToolExecResult, error) {
	logFile := filepath.Join(t.spillDir(), fmt.Sprintf("bg-%d.log", time.Now().UnixNano()))
	redirected := fmt.Sprintf("{ %s ; } > %s 2>&1 < /dev/null & echo $!", args.Command, shellQuote(logFile))

	cmd := exec.Command(t.Shell, "-c", redirected)
	cmd.Dir = t.WorkDir
	cmd.Env = os.Environ()
	setProcessGroup(cmd)
	cmd.Stdin = nil

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return errResult(fmt.Sprintf("failed to background command: %v", err)), nil
	}

	pid := strings.TrimSpace(out.String())
	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: fmt.Sprintf("started, pid=%s, log=%s", pid, logFile)}},
		Details: map[string]any{"pid": pid, "logFile": logFile},
	}, nil
}

func (t *BashTool) spillDir() string {
	if t.SpillDir != "" {
		return t.SpillDir
	}
	return os.TempDir()
}

func shellCommand(ctx context.Context, shell, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, shell, "/c", command)
	}
	return exec.CommandContext(ctx, shell, "-c", command)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func setProcessGroup(cmd *exec.Cmd) {
	if runtime.GOOS == "windows" {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree escalates SIGTERM then, after a grace period, SIGKILL to the
// whole process group so no descendant survives the kill (spec.md §4.4,
// §5). Grounded in internal/tool/bash.go's killProcess.
func killTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if runtime.GOOS == "windows" {
		_ = exec.Command("taskkill", "/pid", fmt.Sprint(pid), "/f", "/t").Run()
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(SigkillGrace)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// tailBuffer accumulates merged stdout+stderr, keeping only the most recent
// maxLines lines within maxBytes in memory and spilling everything to a
// temp file once the budget is exceeded. Truncation preserves full-line
// boundaries except when a single line itself exceeds the cap.
type tailBuffer struct {
	mu        sync.Mutex
	maxBytes  int
	maxLines  int
	lines     []string
	truncated bool
	spillPath string
	spillFile *os.File
	spillDir  string
}

func newTailBuffer(maxBytes, maxLines int, spillDir string) *tailBuffer {
	return &tailBuffer{maxBytes: maxBytes, maxLines: maxLines, spillDir: spillDir}
}

func (b *tailBuffer) ensureSpill() {
	if b.spillFile != nil {
		return
	}
	dir := b.spillDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "bash-output-*.log")
	if err != nil {
		logging.Warn().Err(err).Msg("toolexec: failed to open spill file")
		return
	}
	b.spillFile = f
	b.spillPath = f.Name()
	for _, l := range b.lines {
		_, _ = f.WriteString(l + "\n")
	}
}

func (b *tailBuffer) write(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.spillFile != nil {
		_, _ = b.spillFile.Write(chunk)
	}

	for _, line := range strings.SplitAfter(string(chunk), "\n") {
		if line == "" {
			continue
		}
		if len(b.lines) > 0 && !strings.HasSuffix(b.lines[len(b.lines)-1], "\n") {
			b.lines[len(b.lines)-1] += line
		} else {
			b.lines = append(b.lines, line)
		}
	}

	b.trimLocked()
}

func (b *tailBuffer) trimLocked() {
	totalBytes := 0
	for _, l := range b.lines {
		totalBytes += len(l)
	}
	if len(b.lines) <= b.maxLines && totalBytes <= b.maxBytes {
		return
	}
	b.truncated = true
	b.ensureSpill()

	for len(b.lines) > b.maxLines {
		b.lines = b.lines[1:]
	}
	totalBytes = 0
	for _, l := range b.lines {
		totalBytes += len(l)
	}
	for totalBytes > b.maxBytes && len(b.lines) > 1 {
		totalBytes -= len(b.lines[0])
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) string() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "")
}

func (b *tailBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spillFile != nil {
		_ = b.spillFile.Close()
	}
}
