// Package inbox implements the per-worker bounded message inbox and the
// durable worker runtimes built on top of it. The Manager is a pure
// in-memory structure; RuntimeManager layers SQLite persistence over it so
// queued messages survive a process restart.
package inbox

import (
	"sync"

	"tock/pkg/protocol"
)

// DefaultCap is the retained-message ceiling per inbox. Retrieval always
// re-prioritizes, so capping to the most recent messages bounds context
// size without losing the highest-priority recent items.
const DefaultCap = 20

// DefaultFetchMax bounds how many messages Get returns by default.
const DefaultFetchMax = 5

// Manager holds the in-memory inboxes. Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	cap   int
	boxes map[string][]protocol.InboxMessage
}

// NewManager creates a Manager; maxPerWorker <= 0 uses DefaultCap.
func NewManager(maxPerWorker int) *Manager {
	if maxPerWorker <= 0 {
		maxPerWorker = DefaultCap
	}
	return &Manager{cap: maxPerWorker, boxes: make(map[string][]protocol.InboxMessage)}
}

// Add appends a message and trims the inbox to the most recent cap entries,
// dropping the oldest first.
func (m *Manager) Add(workerID string, msg protocol.InboxMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := append(m.boxes[workerID], msg)
	if len(box) > m.cap {
		box = box[len(box)-m.cap:]
	}
	m.boxes[workerID] = box
}

// Get returns up to max messages: every needs_reply message first, in
// original relative order, then the remainder. max <= 0 uses
// DefaultFetchMax.
func (m *Manager) Get(workerID string, max int) []protocol.InboxMessage {
	if max <= 0 {
		max = DefaultFetchMax
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending, rest []protocol.InboxMessage
	for _, msg := range m.boxes[workerID] {
		if msg.NeedsReply {
			pending = append(pending, msg)
		} else {
			rest = append(rest, msg)
		}
	}
	out := append(pending, rest...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Size returns the current number of retained messages for a worker.
func (m *Manager) Size(workerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes[workerID])
}

// MarkReplied sets needs_reply=false and records the tick. Returns whether
// the message was found; an unknown id is a silent no-op.
func (m *Manager) MarkReplied(workerID, messageID string, repliedTick int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := m.boxes[workerID]
	for i := range box {
		if box[i].MessageID == messageID {
			box[i].NeedsReply = false
			t := repliedTick
			box[i].RepliedTick = &t
			return true
		}
	}
	return false
}

// Remove deletes messages by id across all inboxes. Empty ids is a no-op.
func (m *Manager) Remove(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for worker, box := range m.boxes {
		kept := box[:0]
		for _, msg := range box {
			if !drop[msg.MessageID] {
				kept = append(kept, msg)
			}
		}
		m.boxes[worker] = kept
	}
}

// Ensure creates an empty inbox for a worker if none exists.
func (m *Manager) Ensure(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boxes[workerID]; !ok {
		m.boxes[workerID] = nil
	}
}

// Forget discards a worker's in-memory inbox.
func (m *Manager) Forget(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boxes, workerID)
}

// Workers returns the ids that currently have an inbox.
func (m *Manager) Workers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.boxes))
	for id := range m.boxes {
		out = append(out, id)
	}
	return out
}
