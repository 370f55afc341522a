package permission

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// BashCommand is one command extracted from a (possibly piped/chained)
// shell command line.
type BashCommand struct {
	Name       string   // e.g. "rm", "git"
	Args       []string // arguments after the command name
	Subcommand string   // first non-flag argument, e.g. "commit" in "git commit"
}

// ParseBashCommand walks the POSIX shell AST of command and returns every
// call expression it contains as a BashCommand, so a pipeline or `&&` chain
// yields one entry per stage.
func ParseBashCommand(command string) ([]BashCommand, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	var commands []BashCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.CallExpr:
			cmd := extractCommand(n)
			if cmd != nil {
				commands = append(commands, *cmd)
			}
		}
		return true
	})

	return commands, nil
}

// extractCommand builds a BashCommand from a call expression's words.
func extractCommand(call *syntax.CallExpr) *BashCommand {
	if len(call.Args) == 0 {
		return nil
	}

	cmd := &BashCommand{}

	cmd.Name = wordToString(call.Args[0])
	if cmd.Name == "" {
		return nil
	}

	for _, arg := range call.Args[1:] {
		argStr := wordToString(arg)
		cmd.Args = append(cmd.Args, argStr)

		if cmd.Subcommand == "" && !strings.HasPrefix(argStr, "-") {
			cmd.Subcommand = argStr
		}
	}

	return cmd
}

// wordToString flattens a syntax.Word's parts back into the literal string
// a user would have typed, using placeholders for expansions whose value
// isn't known statically.
func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			// content is dynamic; record that a substitution occurred rather
			// than guessing its output
			sb.WriteString("$()")
		}
	}
	return sb.String()
}

// DangerousCommands lists commands whose path arguments need checking
// against ExternalDir policy: cd, plus commands that mutate the filesystem.
var DangerousCommands = map[string]bool{
	"cd":    true,
	"rm":    true,
	"cp":    true,
	"mv":    true,
	"mkdir": true,
	"touch": true,
	"chmod": true,
	"chown": true,
	"rmdir": true,
	"dd":    true,
}

func IsDangerousCommand(name string) bool {
	return DangerousCommands[name]
}

// ExtractPaths pulls the likely path arguments out of cmd, skipping flags
// and (for chmod) the mode argument.
func ExtractPaths(cmd BashCommand) []string {
	var paths []string
	modeSkipped := false
	for _, arg := range cmd.Args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if cmd.Name == "chmod" && !modeSkipped {
			if len(arg) > 0 && (arg[0] >= '0' && arg[0] <= '9' ||
				arg[0] == 'u' || arg[0] == 'g' || arg[0] == 'o' || arg[0] == 'a' ||
				arg[0] == '+' || arg[0] == '=') {
				modeSkipped = true
				continue
			}
		}
		paths = append(paths, arg)
	}
	return paths
}

// ResolvePath resolves path to an absolute form relative to workDir,
// preferring the `realpath` binary (which also collapses symlinks) and
// falling back to plain joining if it's unavailable.
func ResolvePath(ctx context.Context, path, workDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	if strings.HasPrefix(path, "~") {
		// expanding ~ requires knowing which user's home it refers to
		return path, nil
	}

	cmd := exec.CommandContext(ctx, "realpath", "-m", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return filepath.Clean(filepath.Join(workDir, path)), nil
	}
	return strings.TrimSpace(string(output)), nil
}

// IsWithinDir reports whether path is dir itself or nested under it.
func IsWithinDir(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}
