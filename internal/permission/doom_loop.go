package permission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// DoomLoopThreshold is how many identical calls in a row count as a loop.
const DoomLoopThreshold = 3

// DoomLoopDetector flags a session whose agent keeps issuing the exact same
// tool call, a sign it's stuck rather than making progress.
type DoomLoopDetector struct {
	mu      sync.RWMutex
	history map[string][]string // sessionID -> recent tool-call hashes, oldest first
}

func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{
		history: make(map[string][]string),
	}
}

// Check hashes toolName+input, appends it to the session's history, and
// reports whether the last DoomLoopThreshold calls (including this one) are
// identical.
func (d *DoomLoopDetector) Check(sessionID, toolName string, input any) bool {
	hash := d.hashCall(toolName, input)

	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.history[sessionID]
	loop := false

	if len(history) >= DoomLoopThreshold-1 {
		loop = true
		start := len(history) - (DoomLoopThreshold - 1)
		for i := start; i < len(history); i++ {
			if history[i] != hash {
				loop = false
				break
			}
		}
	}

	d.history[sessionID] = append(history, hash)
	if len(d.history[sessionID]) > 10 {
		d.history[sessionID] = d.history[sessionID][len(d.history[sessionID])-10:]
	}

	return loop
}

func (d *DoomLoopDetector) hashCall(toolName string, input any) string {
	data, _ := json.Marshal(map[string]any{
		"tool":  toolName,
		"input": input,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Clear drops all history for a session.
func (d *DoomLoopDetector) Clear(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, sessionID)
}

// Reset clears a session's history without removing the map entry, for use
// after a differing call has already broken the loop.
func (d *DoomLoopDetector) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history[sessionID] = nil
}
