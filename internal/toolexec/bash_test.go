package toolexec_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-run/agentcore/internal/toolexec"
	"github.com/agentcore-run/agentcore/pkg/core"
)

func TestBashTool_Success(t *testing.T) {
	tool := toolexec.NewBashTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "echo hello", "description": "say hello"})

	res, err := tool.Execute(context.Background(), "c1", args, nil)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "hello")
}

func TestBashTool_NonZeroExit(t *testing.T) {
	tool := toolexec.NewBashTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "exit 7", "description": "fail"})

	res, err := tool.Execute(context.Background(), "c1", args, nil)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, 7, res.Details.(map[string]any)["exitCode"])
}

func TestBashTool_Timeout(t *testing.T) {
	tool := toolexec.NewBashTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "sleep 5", "timeout": 50, "description": "slow"})

	start := time.Now()
	res, err := tool.Execute(context.Background(), "c1", args, nil)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Less(t, time.Since(start), 3*time.Second, "timeout must kill the process promptly")
	assert.Contains(t, res.Content[0].Text, "timed out")
}

func TestBashTool_AbortKillsProcessTree(t *testing.T) {
	tool := toolexec.NewBashTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "sleep 30", "description": "slow"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res, err := tool.Execute(ctx, "c1", args, nil)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Contains(t, res.Content[0].Text, "aborted")
}

func TestBashTool_StreamsPartialUpdates(t *testing.T) {
	tool := toolexec.NewBashTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "echo one; sleep 0.05; echo two", "description": "two lines"})

	var updates []string
	res, err := tool.Execute(context.Background(), "c1", args, func(u core.ToolUpdate) {
		updates = append(updates, u.Partial)
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.NotEmpty(t, updates, "at least one partial update should be observed")
	assert.Contains(t, res.Content[0].Text, "one")
	assert.Contains(t, res.Content[0].Text, "two")
}

func TestBashTool_Background(t *testing.T) {
	tool := toolexec.NewBashTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "sleep 10", "background": true, "description": "bg"})

	res, err := tool.Execute(context.Background(), "c1", args, nil)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "pid=")
	details := res.Details.(map[string]any)
	assert.NotEmpty(t, details["pid"])
	assert.True(t, strings.Contains(details["logFile"].(string), "bg-"))
}
