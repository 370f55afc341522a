package toolexec

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// ReadTool reads a file from the local filesystem, paginated by line.
// Grounded in internal/tool/read.go.
type ReadTool struct {
	WorkDir string
}

func NewReadTool(workDir string) *ReadTool { return &ReadTool{WorkDir: workDir} }

func (t *ReadTool) Name() string  { return "read" }
func (t *ReadTool) Label() string { return "Read a file" }

func (t *ReadTool) Schema() json.RawMessage { return GenerateSchema[readArgs]() }

type readArgs struct {
	FilePath string `json:"filePath" jsonschema:"required,description=The absolute path to the file to read"`
	Offset   int    `json:"offset,omitempty" jsonschema:"description=Line number to start reading from"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Number of lines to read (default 2000)"`
}

func (t *ReadTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args readArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(err.Error()), nil
	}
	path := t.resolve(args.FilePath)

	f, err := os.Open(path)
	if err != nil {
		return errResult(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	defer f.Close()

	limit := args.Limit
	if limit <= 0 {
		limit = 2000
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var sb strings.Builder
	lineNo := 0
	read := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= args.Offset {
			continue
		}
		if read >= limit {
			break
		}
		fmt.Fprintf(&sb, "%6d\t%s\n", lineNo, scanner.Text())
		read++
	}

	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: sb.String()}},
		Details: map[string]any{"lines": read},
	}, nil
}

func (t *ReadTool) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.WorkDir, path)
}

// WriteTool writes a file, creating parent directories as needed. Grounded
// in internal/tool/write.go, enriched with the unified-diff recording
// feature (supplemented from the teacher's recordDiff/computeDiff).
type WriteTool struct {
	WorkDir string
	OnDiff  func(FileDiff)
}

func NewWriteTool(workDir string) *WriteTool { return &WriteTool{WorkDir: workDir} }

func (t *WriteTool) Name() string  { return "write" }
func (t *WriteTool) Label() string { return "Write a file" }

func (t *WriteTool) Schema() json.RawMessage { return GenerateSchema[writeArgs]() }

type writeArgs struct {
	FilePath string `json:"filePath" jsonschema:"required,description=The absolute path to the file to write"`
	Content  string `json:"content" jsonschema:"required,description=The content to write to the file"`
}

func (t *WriteTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args writeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(err.Error()), nil
	}
	path := t.resolve(args.FilePath)

	before := ""
	if b, err := os.ReadFile(path); err == nil {
		before = string(b)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errResult(fmt.Sprintf("cannot create parent directories: %v", err)), nil
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return errResult(fmt.Sprintf("cannot write %s: %v", path, err)), nil
	}

	if t.OnDiff != nil {
		t.OnDiff(ComputeDiff(path, before, args.Content))
	}

	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: fmt.Sprintf("wrote %d bytes to %s", len(args.Content), path)}},
	}, nil
}

func (t *WriteTool) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.WorkDir, path)
}

// EditTool performs a single oldText->newText replacement, rejecting when
// oldText occurs zero or multiple times (unless replaceAll is set).
// Grounded in internal/tool/edit.go.
type EditTool struct {
	WorkDir string
	OnDiff  func(FileDiff)
}

func NewEditTool(workDir string) *EditTool { return &EditTool{WorkDir: workDir} }

func (t *EditTool) Name() string  { return "edit" }
func (t *EditTool) Label() string { return "Edit a file" }

func (t *EditTool) Schema() json.RawMessage { return GenerateSchema[editArgs]() }

type editArgs struct {
	FilePath   string `json:"filePath" jsonschema:"required,description=The absolute path to the file to edit"`
	OldString  string `json:"oldString" jsonschema:"required,description=The exact text to replace"`
	NewString  string `json:"newString" jsonschema:"required,description=The text to replace it with"`
	ReplaceAll bool   `json:"replaceAll,omitempty" jsonschema:"description=Replace all occurrences (default false)"`
}

func (t *EditTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args editArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(err.Error()), nil
	}
	if args.OldString == args.NewString {
		return errResult("oldString and newString must differ"), nil
	}
	path := t.resolve(args.FilePath)

	data, err := os.ReadFile(path)
	if err != nil {
		return errResult(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	before := string(data)

	count := strings.Count(before, args.OldString)
	if count == 0 {
		return errResult("oldString not found in file"), nil
	}
	if count > 1 && !args.ReplaceAll {
		return errResult(fmt.Sprintf("oldString is not unique: found %d occurrences, pass replaceAll or disambiguate", count)), nil
	}

	var after string
	if args.ReplaceAll {
		after = strings.ReplaceAll(before, args.OldString, args.NewString)
	} else {
		after = strings.Replace(before, args.OldString, args.NewString, 1)
	}

	if err := os.WriteFile(path, []byte(after), 0o644); err != nil {
		return errResult(fmt.Sprintf("cannot write %s: %v", path, err)), nil
	}

	diff := ComputeDiff(path, before, after)
	if t.OnDiff != nil {
		t.OnDiff(diff)
	}

	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: diff.Unified}},
		Details: map[string]any{"additions": diff.Additions, "deletions": diff.Deletions},
	}, nil
}

func (t *EditTool) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.WorkDir, path)
}

// GlobTool matches files by pattern, grounded in internal/tool/glob.go but
// implemented on doublestar instead of shelling out to ripgrep, so glob
// matching doesn't depend on an external binary.
type GlobTool struct {
	WorkDir string
}

func NewGlobTool(workDir string) *GlobTool { return &GlobTool{WorkDir: workDir} }

func (t *GlobTool) Name() string  { return "glob" }
func (t *GlobTool) Label() string { return "Find files by glob pattern" }

func (t *GlobTool) Schema() json.RawMessage { return GenerateSchema[globArgs]() }

type globArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=The glob pattern to match files against"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in (default current directory)"`
}

const maxGlobResults = 100

func (t *GlobTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args globArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(err.Error()), nil
	}
	searchDir := t.WorkDir
	if args.Path != "" {
		searchDir = t.resolve(args.Path)
	}

	fsys := os.DirFS(searchDir)
	matches, err := doublestar.Glob(fsys, args.Pattern)
	if err != nil {
		return errResult(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	truncated := false
	if len(matches) > maxGlobResults {
		matches = matches[:maxGlobResults]
		truncated = true
	}

	text := strings.Join(matches, "\n")
	if truncated {
		text += fmt.Sprintf("\n\n(showing first %d matches)", maxGlobResults)
	}
	if len(matches) == 0 {
		text = "no files matched the pattern"
	}

	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: text}},
		Details: map[string]any{"count": len(matches), "truncated": truncated},
	}, nil
}

func (t *GlobTool) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.WorkDir, path)
}
