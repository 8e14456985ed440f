package inbox

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"tock/pkg/protocol"
	"tock/pkg/state"
)

// RuntimeManager makes worker inboxes durable. Every queued message is
// persisted immediately; Load restores all inboxes after a restart.
type RuntimeManager struct {
	store *state.Store
	mgr   *Manager
	log   *slog.Logger

	mu            sync.Mutex
	rng           *rand.Rand
	replyChance   float64
	maxPerTick    int
	grantedAtTick map[int64]int
}

// RuntimeConfig tunes the durable runtime and its reply gating.
type RuntimeConfig struct {
	InboxCap          int
	ReplyChance       float64 // probability an unanswered message gets a reply slot
	MaxRepliesPerTick int
	Seed              int64
}

func (c RuntimeConfig) withDefaults() RuntimeConfig {
	out := c
	if out.InboxCap <= 0 {
		out.InboxCap = DefaultCap
	}
	// Zero turns reply generation off; only a negative value means "use
	// the default".
	if out.ReplyChance < 0 {
		out.ReplyChance = 0.5
	}
	if out.MaxRepliesPerTick <= 0 {
		out.MaxRepliesPerTick = 3
	}
	return out
}

// NewRuntimeManager creates a durable runtime over the given store.
func NewRuntimeManager(store *state.Store, cfg RuntimeConfig, log *slog.Logger) *RuntimeManager {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &RuntimeManager{
		store:         store,
		mgr:           NewManager(cfg.InboxCap),
		log:           log,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		replyChance:   cfg.ReplyChance,
		maxPerTick:    cfg.MaxRepliesPerTick,
		grantedAtTick: make(map[int64]int),
	}
}

// Load restores every persisted inbox into memory. Call once at startup.
func (r *RuntimeManager) Load(ctx context.Context) error {
	boxes, err := r.store.LoadInboxes(ctx)
	if err != nil {
		return err
	}
	for workerID, msgs := range boxes {
		for _, m := range msgs {
			r.mgr.Add(workerID, m)
		}
	}
	return nil
}

// QueueMessage classifies (when unclassified), persists, and enqueues a
// message for a worker. Persistence happens before the in-memory append so
// a crash never loses an acknowledged message.
func (r *RuntimeManager) QueueMessage(ctx context.Context, workerID string, m protocol.InboxMessage) error {
	if m.Type == "" {
		m.Type, m.NeedsReply = Classify(m.Subject, m.Body, "en")
	}
	if err := r.store.InsertInboxMessage(ctx, workerID, m); err != nil {
		return err
	}
	if err := r.store.TrimInbox(ctx, workerID, r.mgr.cap); err != nil {
		return err
	}
	r.mgr.Add(workerID, m)
	return nil
}

// Get returns a worker's prioritized messages (see Manager.Get).
func (r *RuntimeManager) Get(workerID string, max int) []protocol.InboxMessage {
	return r.mgr.Get(workerID, max)
}

// MarkReplied flags a message answered in memory and on disk. Unknown ids
// are a no-op, not an error.
func (r *RuntimeManager) MarkReplied(ctx context.Context, workerID, messageID string, repliedTick int64) error {
	r.mgr.MarkReplied(workerID, messageID, repliedTick)
	return r.store.MarkInboxReplied(ctx, workerID, messageID, repliedTick)
}

// RemoveMessages deletes messages by id everywhere. Empty ids is a no-op.
func (r *RuntimeManager) RemoveMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	r.mgr.Remove(ids)
	return r.store.DeleteInboxMessages(ctx, ids)
}

// SyncRuntimes reconciles in-memory runtimes with the current roster:
// newly added workers get an inbox, departed workers are forgotten. The
// departed workers' persisted rows are left in place (forget, not delete).
func (r *RuntimeManager) SyncRuntimes(roster []protocol.Worker) {
	current := make(map[string]bool, len(roster))
	for _, w := range roster {
		current[w.ID] = true
		r.mgr.Ensure(w.ID)
	}
	for _, id := range r.mgr.Workers() {
		if !current[id] {
			r.log.Info("forgetting runtime for departed worker", "worker", id)
			r.mgr.Forget(id)
		}
	}
}

// GrantReplySlot decides whether an unanswered message may be replied to at
// this tick. The decision is a seeded probability roll bounded by a
// per-tick ceiling, so reply traffic stays bursty but bounded.
func (r *RuntimeManager) GrantReplySlot(tick int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grantedAtTick[tick] >= r.maxPerTick {
		return false
	}
	if r.rng.Float64() >= r.replyChance {
		return false
	}
	// Old tick entries are dropped so the map cannot grow with the run.
	for t := range r.grantedAtTick {
		if t < tick {
			delete(r.grantedAtTick, t)
		}
	}
	r.grantedAtTick[tick]++
	return true
}
