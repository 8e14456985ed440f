// Package guard enforces outbound volume limits: hard per-day per-channel
// send caps backed by the durable daily counters, and an advisory
// participation balancer that keeps a small set of workers from dominating
// total traffic.
package guard

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"tock/pkg/protocol"
	"tock/pkg/state"
)

// Limits holds the per-channel daily ceilings.
type Limits struct {
	EmailPerDay int
	ChatPerDay  int
	// TopShareCeiling is the maximum share of session traffic the two
	// busiest senders may hold before further sends are discouraged.
	TopShareCeiling float64
}

func (l Limits) withDefaults() Limits {
	out := l
	if out.EmailPerDay <= 0 {
		out.EmailPerDay = 50
	}
	if out.ChatPerDay <= 0 {
		out.ChatPerDay = 100
	}
	if out.TopShareCeiling <= 0 || out.TopShareCeiling > 1 {
		out.TopShareCeiling = 0.60
	}
	return out
}

// VolumeGuard is consulted by the engine before every send.
type VolumeGuard struct {
	store  *state.Store
	limits Limits
	log    *slog.Logger

	mu    sync.Mutex
	sent  map[string]int // session participation window
	total int
}

// New creates a guard over the durable counter store.
func New(store *state.Store, limits Limits, log *slog.Logger) *VolumeGuard {
	if log == nil {
		log = slog.Default()
	}
	return &VolumeGuard{
		store:  store,
		limits: limits.withDefaults(),
		log:    log,
		sent:   make(map[string]int),
	}
}

// CheckDailyLimit reports whether one more message on the channel is
// allowed for (workerID, dayIndex). The comparison happens before the
// increment, so the Nth message (N = limit) is still allowed and the
// (N+1)th is the first rejection. Rejections emit a structured warning.
func (g *VolumeGuard) CheckDailyLimit(ctx context.Context, workerID string, dayIndex int64, ch protocol.Channel) (bool, error) {
	dc, err := g.store.GetDailyCount(ctx, workerID, dayIndex)
	if err != nil {
		return false, err
	}
	count, limit := dc.Chat, g.limits.ChatPerDay
	if ch == protocol.ChannelEmail {
		count, limit = dc.Email, g.limits.EmailPerDay
	}
	if count >= limit {
		g.log.Warn("daily message limit reached",
			"worker", workerID, "day", dayIndex, "channel", string(ch), "count", count, "limit", limit)
		return false, nil
	}
	return true, nil
}

// RecordSend increments both the durable daily counter and the session
// participation window for the worker.
func (g *VolumeGuard) RecordSend(ctx context.Context, workerID string, dayIndex int64, ch protocol.Channel) error {
	if err := g.store.IncrementDailyCount(ctx, workerID, dayIndex, ch); err != nil {
		return err
	}
	g.mu.Lock()
	g.sent[workerID]++
	g.total++
	g.mu.Unlock()
	return nil
}

// Discourage reports whether the worker should hold back optional sends to
// rebalance participation. It is advisory, never a hard block: a worker
// with zero session sends is never discouraged, so every active worker can
// enter the conversation eventually.
func (g *VolumeGuard) Discourage(workerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.total == 0 || g.sent[workerID] == 0 {
		return false
	}
	counts := make([]int, 0, len(g.sent))
	for _, n := range g.sent {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	top2 := counts[0]
	if len(counts) > 1 {
		top2 += counts[1]
	}
	if float64(top2)/float64(g.total) <= g.limits.TopShareCeiling {
		return false
	}
	// Only the dominating senders are discouraged.
	threshold := counts[0]
	if len(counts) > 1 && counts[1] < threshold {
		threshold = counts[1]
	}
	return g.sent[workerID] >= threshold
}

// ResetSession clears the participation window (used on simulation reset).
func (g *VolumeGuard) ResetSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = make(map[string]int)
	g.total = 0
}

// SessionShare returns the worker's share of session traffic, for status
// reporting.
func (g *VolumeGuard) SessionShare(workerID string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.total == 0 {
		return 0
	}
	return float64(g.sent[workerID]) / float64(g.total)
}
