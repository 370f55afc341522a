package toolexec

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// GrepTool searches file contents by regular expression. Grounded in
// internal/tool/grep.go (which shelled out to ripgrep); reimplemented on
// Go's regexp plus a doublestar include filter so content search doesn't
// depend on an external binary being on PATH.
type GrepTool struct {
	WorkDir string
}

func NewGrepTool(workDir string) *GrepTool { return &GrepTool{WorkDir: workDir} }

func (t *GrepTool) Name() string  { return "grep" }
func (t *GrepTool) Label() string { return "Search file contents by regex" }

func (t *GrepTool) Schema() json.RawMessage { return GenerateSchema[grepArgs]() }

type grepArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=The regex pattern to search for in file contents"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in (default current directory)"`
	Include string `json:"include,omitempty" jsonschema:"description=Glob of files to include, e.g. \"*.go\""`
}

const maxGrepMatches = 200

func (t *GrepTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args grepArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(err.Error()), nil
	}

	re, err := regexp.Compile(args.Pattern)
	if err != nil {
		return errResult(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	root := t.WorkDir
	if args.Path != "" {
		if filepath.IsAbs(args.Path) {
			root = args.Path
		} else {
			root = filepath.Join(root, args.Path)
		}
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= maxGrepMatches {
			return filepath.SkipAll
		}
		if args.Include != "" {
			rel, _ := filepath.Rel(root, path)
			ok, _ := doublestar.Match(args.Include, filepath.Base(path))
			ok2, _ := doublestar.Match(args.Include, rel)
			if !ok && !ok2 {
				return nil
			}
		}
		grepFile(path, re, &matches)
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return errResult(err.Error()), nil
	}

	text := strings.Join(matches, "\n")
	if text == "" {
		text = "no matches"
	}
	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: text}},
		Details: map[string]any{"count": len(matches)},
	}, nil
}

func grepFile(path string, re *regexp.Regexp, matches *[]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			*matches = append(*matches, fmt.Sprintf("%s:%d:%s", path, lineNo, line))
			if len(*matches) >= maxGrepMatches {
				return
			}
		}
	}
}
