package toolexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore-run/agentcore/internal/sessionlog"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// TodoItem is one entry of a session's structured task list. Grounded in
// the teacher's pkg/types.TodoInfo, carried as a custom Session Log entry
// instead of a separate storage key so the todo list survives replay like
// everything else in the log.
type TodoItem struct {
	ID       string `json:"id" jsonschema:"required"`
	Content  string `json:"content" jsonschema:"required"`
	Status   string `json:"status" jsonschema:"required,description=pending/in_progress/completed,enum=pending|in_progress|completed"`
	Priority string `json:"priority" jsonschema:"required,description=high/medium/low,enum=high|medium|low"`
}

const todoCustomKind = "todos"

type todoCustomPayload struct {
	Kind  string     `json:"kind"`
	Items []TodoItem `json:"items"`
}

// TodoStore reads and writes a session's todo list through its Session Log,
// the replacement for the teacher's internal/storage.Storage-backed
// session.GetTodos/UpdateTodos.
type TodoStore struct {
	Log *sessionlog.Log
}

// Read returns the most recently written todo list, or an empty slice if
// none has been written yet.
func (s *TodoStore) Read() []TodoItem {
	branch := s.Log.Branch()
	for i := len(branch) - 1; i >= 0; i-- {
		e := branch[i]
		if e.Type != core.EntryCustom || len(e.Custom) == 0 {
			continue
		}
		var payload todoCustomPayload
		if err := json.Unmarshal(e.Custom, &payload); err != nil || payload.Kind != todoCustomKind {
			continue
		}
		return payload.Items
	}
	return nil
}

// Write appends a new todo-list snapshot to the log.
func (s *TodoStore) Write(items []TodoItem) error {
	payload, err := json.Marshal(todoCustomPayload{Kind: todoCustomKind, Items: items})
	if err != nil {
		return err
	}
	_, err = s.Log.Append(core.Entry{Type: core.EntryCustom, Custom: payload})
	return err
}

// TodoWriteTool replaces the session's todo list wholesale.
type TodoWriteTool struct {
	Store *TodoStore
}

func NewTodoWriteTool(store *TodoStore) *TodoWriteTool { return &TodoWriteTool{Store: store} }

func (t *TodoWriteTool) Name() string           { return "todowrite" }
func (t *TodoWriteTool) Label() string          { return "Updating todos" }
func (t *TodoWriteTool) Schema() json.RawMessage { return GenerateSchema[todoWriteArgs]() }

type todoWriteArgs struct {
	Todos []TodoItem `json:"todos" jsonschema:"required,description=The updated todo list"`
}

func (t *TodoWriteTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args todoWriteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if err := t.Store.Write(args.Todos); err != nil {
		return errResult(fmt.Sprintf("failed to update todos: %v", err)), nil
	}

	pending := 0
	for _, td := range args.Todos {
		if td.Status != "completed" {
			pending++
		}
	}
	out, _ := json.MarshalIndent(args.Todos, "", "  ")
	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: string(out)}},
		Details: map[string]any{"pending": pending},
	}, nil
}

// TodoReadTool reads back the session's current todo list.
type TodoReadTool struct {
	Store *TodoStore
}

func NewTodoReadTool(store *TodoStore) *TodoReadTool { return &TodoReadTool{Store: store} }

func (t *TodoReadTool) Name() string            { return "todoread" }
func (t *TodoReadTool) Label() string           { return "Reading todos" }
func (t *TodoReadTool) Schema() json.RawMessage { return GenerateSchema[struct{}]() }

func (t *TodoReadTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	items := t.Store.Read()
	out, _ := json.MarshalIndent(items, "", "  ")
	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: string(out)}},
	}, nil
}
