package agentloop

import (
	"github.com/agentcore-run/agentcore/internal/sessionlog"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// Fork implements spec.md §4.5 "fork(entryId)": it moves this same session's
// leaf pointer to entryId's parent, the way NavigateTo moves it to any other
// entry. The entryId..leaf chain that was current before the call is not
// deleted — it stays reachable as a branch of the same log's Tree() once the
// next Prompt call lays down a sibling chain starting at the parent. Fork
// returns the text of the message at entryId so the frontend can offer it
// back for editing before that next Prompt call.
func (l *Loop) Fork(entryID string) (editText string, err error) {
	entry, ok := l.log.Entry(entryID)
	if !ok {
		return "", sessionlog.ErrUnknownEntry
	}
	if entry.Type == core.EntryMessage && entry.Message != nil && entry.Message.Role == core.RoleUser && entry.Message.User != nil {
		editText = entry.Message.User.Text
	}

	if err := l.log.SetLeaf(entry.ParentID); err != nil {
		return "", err
	}
	return editText, nil
}

// NavigateTo moves this session's leaf pointer to entryID without forking,
// the "navigate" operation of spec.md §4.1: subsequent Prompt/Run calls
// build their request from the branch ending at the new leaf.
func (l *Loop) NavigateTo(entryID string) error {
	return l.log.SetLeaf(entryID)
}

// Tree returns the whole-DAG view of the underlying Session Log, for UIs
// that need to render branch history.
func (l *Loop) Tree() []*sessionlog.Node {
	return l.log.Tree()
}
