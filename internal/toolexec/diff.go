package toolexec

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FileDiff is a Write/Edit tool result turned into a unified-diff summary,
// the "file diff recording" feature supplemented from the teacher's
// internal/session/tools.go (recordDiff/computeDiff/generateUnifiedDiff),
// generalized onto go-diff's diffmatchpatch instead of a hand-rolled
// line-diff algorithm.
type FileDiff struct {
	Path      string
	Unified   string
	Additions int
	Deletions int
}

// ComputeDiff builds a FileDiff between before and after for path.
func ComputeDiff(path, before, after string) FileDiff {
	dmp := diffmatchpatch.New()
	wSrc, wDst, warr := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(wSrc, wDst, false)
	diffs = dmp.DiffCharsToLines(diffs, warr)

	var sb strings.Builder
	additions, deletions := 0, 0
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", path, path)
	for _, d := range diffs {
		lines := strings.SplitAfter(d.Text, "\n")
		for _, line := range lines {
			if line == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				additions++
				sb.WriteString("+" + line)
			case diffmatchpatch.DiffDelete:
				deletions++
				sb.WriteString("-" + line)
			default:
				sb.WriteString(" " + line)
			}
		}
	}

	return FileDiff{Path: path, Unified: sb.String(), Additions: additions, Deletions: deletions}
}
