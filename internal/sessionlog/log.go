// Package sessionlog implements the Session Log: a durable, append-only,
// newline-delimited journal of Entry records forming a branching DAG, with
// replay, branch traversal, leaf tracking and label overlay.
//
// Persistence follows the teacher's atomic-write-plus-flock storage
// discipline, generalized from whole-file JSON documents to a single
// append-only record stream per session, fsynced on every append so a
// crash never loses an acknowledged entry.
package sessionlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/agentcore-run/agentcore/internal/logging"
	"github.com/agentcore-run/agentcore/pkg/core"
)

// ErrNotFound is returned when a session file does not exist.
var ErrNotFound = errors.New("sessionlog: session not found")

// ErrNoHeader is returned when a session file is missing its header record.
var ErrNoHeader = errors.New("sessionlog: missing header record")

// ErrUnknownEntry is returned when an append or navigate references an id
// that was never seen.
var ErrUnknownEntry = errors.New("sessionlog: unknown entry id")

// ErrForwardReference is returned during replay when an entry's parentId
// refers to an id not yet seen in the file.
var ErrForwardReference = errors.New("sessionlog: parentId forward reference")

// Node is one element of the whole-DAG tree returned by Tree().
type Node struct {
	Entry    core.Entry
	Label    string
	Children []*Node
}

// SessionMeta summarizes a persisted session for listing purposes.
type SessionMeta struct {
	ID           string
	CWD          string
	CreatedAt    int64
	ModifiedAt   int64
	MessageCount int
	FirstUserMsg string
	SearchText   string
}

// Log is one open session's append-only journal plus its in-memory index.
type Log struct {
	mu sync.Mutex

	path string // empty for inMemory()
	file *os.File
	log  zerolog.Logger

	header core.Header

	entries  []core.Entry
	byID     map[string]core.Entry
	children map[string][]string // parentId -> child ids, insertion order
	labels   map[string]string   // targetEntryId -> label text

	roots  []string
	leafID string

	nextSeq uint64 // monotonic suffix for id generation
}

func genID() string {
	return ulid.Make().String()
}

// NewSessionID returns a fresh session identifier. The spec requires a UUID.
func NewSessionID() string {
	return uuid.NewString()
}

// InMemory creates a session log that never touches disk. It follows the
// same invariants as a persisted log.
func InMemory(sessionID, cwd string) *Log {
	now := time.Now().UnixMilli()
	l := &Log{
		header: core.Header{
			Type:      "header",
			Version:   core.HeaderVersion,
			SessionID: sessionID,
			CWD:       cwd,
			CreatedAt: now,
		},
		byID:     make(map[string]core.Entry),
		children: make(map[string][]string),
		labels:   make(map[string]string),
		log:      logging.Logger.With().Str("component", "sessionlog").Str("session_id", sessionID).Logger(),
	}
	return l
}

// Create makes a new persisted session under dir, writing the header record
// first.
func Create(cwd, dir string) (*Log, error) {
	sessionID := NewSessionID()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionlog: create dir: %w", err)
	}
	path := filepath.Join(dir, sessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: create file: %w", err)
	}

	l := InMemory(sessionID, cwd)
	l.path = path
	l.file = f

	if err := l.writeHeaderLocked(); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Open replays an existing session file from disk, rebuilding in-memory
// indices, and keeps the file open for further appends. A torn trailing
// write is cut off the file first.
func Open(path string) (*Log, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Every complete record ends with a newline; anything after the last
	// one is a torn write, removed so later appends start on a fresh line.
	if n := bytes.LastIndexByte(raw, '\n'); n >= 0 && n+1 < len(raw) {
		if err := os.Truncate(path, int64(n+1)); err != nil {
			return nil, fmt.Errorf("sessionlog: truncate torn write: %w", err)
		}
		raw = raw[:n+1]
	}

	l, err := replay(raw)
	if err != nil {
		return nil, err
	}
	l.path = path

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: reopen for append: %w", err)
	}
	l.file = f
	return l, nil
}

// replay parses raw NDJSON bytes into a fresh in-memory Log. A torn
// trailing write (partial final line) is detected and discarded rather than
// causing replay to fail; any other malformed record stops replay with an
// error naming the offending line, and no Log is returned.
func replay(raw []byte) (*Log, error) {
	lines := splitLines(raw)

	if len(lines) == 0 {
		return nil, ErrNoHeader
	}

	var header core.Header
	if err := json.Unmarshal(lines[0], &header); err != nil || header.Type != "header" {
		return nil, ErrNoHeader
	}

	l := InMemory(header.SessionID, header.CWD)
	l.header = header

	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if len(line) == 0 {
			continue
		}
		var raw struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			// Torn trailing write: only tolerated on the very last line.
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("sessionlog: malformed record at line %d: %w", i+1, err)
		}

		switch raw.Type {
		case string(core.EntryMessage), string(core.EntryCompaction), string(core.EntryModelChange),
			string(core.EntryThinkingLevelChange), string(core.EntryLabel), string(core.EntrySessionInfo),
			string(core.EntryContextTransform), string(core.EntryCustom):
			var e core.Entry
			if err := json.Unmarshal(line, &e); err != nil {
				if i == len(lines)-1 {
					break
				}
				return nil, fmt.Errorf("sessionlog: malformed entry at line %d: %w", i+1, err)
			}
			if err := l.indexEntryLocked(e); err != nil {
				return nil, fmt.Errorf("sessionlog: entry at line %d: %w", i+1, err)
			}
		default:
			// Unknown type: forward-compatibility, ignore.
		}
	}

	return l, nil
}

func splitLines(raw []byte) [][]byte {
	s := bufio.NewScanner(strings.NewReader(string(raw)))
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var out [][]byte
	for s.Scan() {
		b := s.Bytes()
		cp := make([]byte, len(b))
		copy(cp, b)
		out = append(out, cp)
	}
	return out
}

// indexEntryLocked folds a parsed entry into the in-memory indices without
// touching disk. Forward references (parentId not yet seen) are an error.
func (l *Log) indexEntryLocked(e core.Entry) error {
	if e.ParentID != "" {
		if _, ok := l.byID[e.ParentID]; !ok {
			return ErrForwardReference
		}
	}
	if e.Type == core.EntryLabel && e.Label != nil {
		l.labels[e.Label.TargetEntryID] = e.Label.Label
	}

	l.entries = append(l.entries, e)
	l.byID[e.ID] = e
	if e.ParentID == "" {
		l.roots = append(l.roots, e.ID)
	} else {
		l.children[e.ParentID] = append(l.children[e.ParentID], e.ID)
	}
	l.leafID = e.ID
	return nil
}

func (l *Log) writeHeaderLocked() error {
	data, err := json.Marshal(l.header)
	if err != nil {
		return err
	}
	return l.writeLineLocked(data)
}

func (l *Log) writeLineLocked(data []byte) error {
	if l.file == nil {
		return nil // in-memory: nothing to persist
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("sessionlog: write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sessionlog: fsync: %w", err)
	}
	return nil
}

// Append synchronously assigns an id, sets ParentID to the current leaf,
// stamps the timestamp, serializes and fsyncs the record, and advances the
// leaf. It fails only on I/O error.
func (l *Log) Append(e core.Entry) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = genID()
	e.ParentID = l.leafID
	e.Timestamp = time.Now().UnixMilli()

	if e.Type == core.EntryLabel && e.Label != nil {
		l.labels[e.Label.TargetEntryID] = e.Label.Label
	}

	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("sessionlog: marshal entry: %w", err)
	}
	if err := l.writeLineLocked(data); err != nil {
		return "", err
	}

	l.entries = append(l.entries, e)
	l.byID[e.ID] = e
	if e.ParentID == "" {
		l.roots = append(l.roots, e.ID)
	} else {
		l.children[e.ParentID] = append(l.children[e.ParentID], e.ID)
	}
	l.leafID = e.ID

	l.log.Debug().Str("entry_id", e.ID).Str("type", string(e.Type)).Msg("entry appended")
	return e.ID, nil
}

// LeafID returns the current branch tip.
func (l *Log) LeafID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.leafID
}

// Header returns the session's immutable header.
func (l *Log) Header() core.Header {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.header
}

// SessionID returns the session's UUID.
func (l *Log) SessionID() string { return l.Header().SessionID }

// Path returns the backing file path, or "" for an in-memory log.
func (l *Log) Path() string { return l.path }

// Branch returns the ordered chain from the root to the current leaf,
// metadata entries included.
func (l *Log) Branch() []core.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.branchFromLocked(l.leafID)
}

// BranchFrom returns the ordered chain from the root to entryID.
func (l *Log) BranchFrom(entryID string) ([]core.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entryID == "" {
		return nil, nil
	}
	if _, ok := l.byID[entryID]; !ok {
		return nil, ErrUnknownEntry
	}
	return l.branchFromLocked(entryID), nil
}

func (l *Log) branchFromLocked(leaf string) []core.Entry {
	if leaf == "" {
		return nil
	}
	var chain []core.Entry
	id := leaf
	for id != "" {
		e, ok := l.byID[id]
		if !ok {
			break
		}
		chain = append(chain, e)
		id = e.ParentID
	}
	// reverse
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Entry looks up a single entry by id.
func (l *Log) Entry(entryID string) (core.Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[entryID]
	return e, ok
}

// SetLeaf navigates to a different tip; subsequent appends branch off that
// entry. Required for fork/navigate.
func (l *Log) SetLeaf(entryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entryID != "" {
		if _, ok := l.byID[entryID]; !ok {
			return ErrUnknownEntry
		}
	}
	l.leafID = entryID
	return nil
}

// Tree returns the whole DAG rooted at the session's roots. Labels are
// folded onto their target node rather than exposed as independent nodes.
func (l *Log) Tree() []*Node {
	l.mu.Lock()
	defer l.mu.Unlock()

	build := func(id string) *Node {
		var rec func(id string) *Node
		rec = func(id string) *Node {
			n := &Node{Entry: l.byID[id], Label: l.labels[id]}
			for _, c := range l.children[id] {
				child := rec(c)
				if child.Entry.Type == core.EntryLabel {
					// A label entry is not a node of its own; whatever
					// grew after it hangs off its parent instead.
					n.Children = append(n.Children, child.Children...)
					continue
				}
				n.Children = append(n.Children, child)
			}
			return n
		}
		return rec(id)
	}

	nodes := make([]*Node, 0, len(l.roots))
	for _, r := range l.roots {
		nodes = append(nodes, build(r))
	}
	return nodes
}

// ForkFrom creates a new persisted session whose header records
// parentSessionPath and whose branch replays the chain from the parent's
// root through entryID.
func (l *Log) ForkFrom(entryID, dir string) (*Log, error) {
	chain, err := l.BranchFrom(entryID)
	if err != nil {
		return nil, err
	}

	child, err := Create(l.Header().CWD, dir)
	if err != nil {
		return nil, err
	}
	child.header.ParentSessionPath = l.path
	// Persist the updated header by rewriting it is not supported for an
	// append-only format; the parent path is recorded at creation time by
	// callers that know it up front. Expose it in-memory for this process.
	for _, e := range chain {
		cp := e
		cp.ID = ""
		cp.ParentID = ""
		if _, err := child.Append(cp); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// List enumerates persisted sessions under dir with summary metadata.
func List(dir string) ([]SessionMeta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []SessionMeta
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".ndjson") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		meta, err := summarize(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("sessionlog: skipping unreadable session")
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}

func summarize(path string) (SessionMeta, error) {
	l, err := Open(path)
	if err != nil {
		return SessionMeta{}, err
	}
	defer l.Close()

	info, err := os.Stat(path)
	modified := l.header.CreatedAt
	if err == nil {
		modified = info.ModTime().UnixMilli()
	}

	meta := SessionMeta{
		ID:         l.header.SessionID,
		CWD:        l.header.CWD,
		CreatedAt:  l.header.CreatedAt,
		ModifiedAt: modified,
	}

	var sb strings.Builder
	for _, e := range l.entries {
		if e.Type != core.EntryMessage || e.Message == nil {
			continue
		}
		meta.MessageCount++
		if e.Message.Role == core.RoleUser && e.Message.User != nil {
			if meta.FirstUserMsg == "" {
				meta.FirstUserMsg = e.Message.User.Text
			}
			sb.WriteString(e.Message.User.Text)
			sb.WriteString("\n")
		}
	}
	meta.SearchText = sb.String()
	return meta, nil
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
