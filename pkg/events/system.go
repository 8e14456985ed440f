// Package events implements the simulation event system: explicit event
// injection and querying, plus seeded ambient generation of sick leave and
// client feature requests. All randomness flows through one *rand.Rand
// owned by the System, so two instances constructed with the same seed and
// driven through the same call sequence make identical decisions.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"tock/pkg/protocol"
	"tock/pkg/simclock"
	"tock/pkg/state"

	"github.com/google/uuid"
)

// Config controls ambient generation. CheckpointTicks are 1-based positions
// within the day at which a probability roll happens; they are explicit
// configuration, never derived from wall-clock arithmetic.
type Config struct {
	HoursPerDay          int
	CheckpointTicks      []int
	SickLeaveChance      float64
	FeatureRequestChance float64
}

func (c Config) withDefaults() Config {
	out := c
	if len(out.CheckpointTicks) == 0 && out.HoursPerDay > 0 {
		out.CheckpointTicks = []int{out.HoursPerDay/2 + 1, out.HoursPerDay}
	}
	// Zero is a valid setting that disables the roll; only a negative value
	// means "use the default".
	if out.SickLeaveChance < 0 {
		out.SickLeaveChance = 0.05
	}
	if out.FeatureRequestChance < 0 {
		out.FeatureRequestChance = 0.10
	}
	return out
}

// System generates and records simulation events.
type System struct {
	store *state.Store
	rng   *rand.Rand
	cfg   Config
	log   *slog.Logger
}

// New creates an event system with its own seeded random source.
func New(store *state.Store, seed int64, cfg Config, log *slog.Logger) *System {
	if log == nil {
		log = slog.Default()
	}
	return &System{
		store: store,
		rng:   rand.New(rand.NewSource(seed)),
		cfg:   cfg.withDefaults(),
		log:   log,
	}
}

// Inject validates, persists, and returns an explicit event. The id is
// assigned here; callers never pick ids.
func (s *System) Inject(ctx context.Context, e protocol.Event) (protocol.Event, error) {
	if e.Type == "" {
		return protocol.Event{}, &protocol.ValidationError{Field: "type", Reason: "must not be empty"}
	}
	e.ID = uuid.NewString()
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return protocol.Event{}, err
	}
	s.log.Info("event injected", "id", e.ID, "type", string(e.Type), "tick", e.AtTick)
	return e, nil
}

// List returns events AND-matching the project and target filters, in
// insertion order. Empty filters match everything.
func (s *System) List(ctx context.Context, projectID, targetID string) ([]protocol.Event, error) {
	return s.store.ListEvents(ctx, projectID, targetID)
}

// TriggersCheck reports whether an ambient probability roll happens at the
// given tick. Exposed so the checkpoint schedule is testable as a table.
func (s *System) TriggersCheck(tick int64) bool {
	if s.cfg.HoursPerDay <= 0 {
		return false
	}
	pos := simclock.TickOfDay(tick, s.cfg.HoursPerDay) + 1
	for _, cp := range s.cfg.CheckpointTicks {
		if pos == cp {
			return true
		}
	}
	return false
}

// AmbientTick runs the ambient checks for one tick and returns any events
// generated. An empty roster or a degenerate day length produces no events
// and no error. A sick-leave event also installs the worker's status
// override (until the same tick next day) as a side effect.
func (s *System) AmbientTick(ctx context.Context, tick int64) ([]protocol.Event, error) {
	if !s.TriggersCheck(tick) {
		return nil, nil
	}
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, nil
	}
	overrides, err := s.store.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}

	lead := teamLead(workers)

	// The roll order is fixed: sick leave first, feature request only when
	// sick leave does not fire. Reordering would break reproducibility.
	if s.rng.Float64() < s.cfg.SickLeaveChance {
		return s.rollSickLeave(ctx, tick, workers, overrides, lead)
	}
	if s.rng.Float64() < s.cfg.FeatureRequestChance {
		return s.rollFeatureRequest(ctx, tick, workers, lead)
	}
	return nil, nil
}

func (s *System) rollSickLeave(ctx context.Context, tick int64, workers []protocol.Worker, overrides map[string]protocol.StatusOverride, lead *protocol.Worker) ([]protocol.Event, error) {
	var eligible []protocol.Worker
	for _, w := range workers {
		if w.IsTeamLead {
			continue
		}
		if o, ok := overrides[w.ID]; ok && o.ActiveAt(tick) {
			continue
		}
		eligible = append(eligible, w)
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	sick := eligible[s.rng.Intn(len(eligible))]

	until := tick + int64(s.cfg.HoursPerDay)
	if err := s.store.SetOverride(ctx, protocol.StatusOverride{
		WorkerID:  sick.ID,
		Status:    protocol.StatusSickLeave,
		UntilTick: until,
		Reason:    "ambient sick leave",
	}); err != nil {
		return nil, err
	}

	targets := []string{sick.ID}
	if lead != nil && lead.ID != sick.ID {
		targets = append(targets, lead.ID)
	}
	e := protocol.Event{
		ID:        uuid.NewString(),
		Type:      protocol.EventSickLeave,
		TargetIDs: targets,
		AtTick:    tick,
		Payload:   map[string]string{"worker": sick.ID, "worker_name": sick.Name},
	}
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("ambient sick leave", "worker", sick.ID, "until_tick", until)
	return []protocol.Event{e}, nil
}

var featurePool = []string{
	"an export to CSV",
	"a dark mode for the client portal",
	"single sign-on support",
	"a weekly summary email",
	"an audit trail for approvals",
}

func (s *System) rollFeatureRequest(ctx context.Context, tick int64, workers []protocol.Worker, lead *protocol.Worker) ([]protocol.Event, error) {
	var targets []string
	if lead != nil {
		targets = append(targets, lead.ID)
	}
	var others []protocol.Worker
	for _, w := range workers {
		if lead == nil || w.ID != lead.ID {
			others = append(others, w)
		}
	}
	if len(others) > 0 {
		targets = append(targets, others[s.rng.Intn(len(others))].ID)
	}
	if len(targets) == 0 {
		return nil, nil
	}
	e := protocol.Event{
		ID:        uuid.NewString(),
		Type:      protocol.EventClientFeatureRequest,
		TargetIDs: targets,
		AtTick:    tick,
		Payload:   map[string]string{"feature": featurePool[s.rng.Intn(len(featurePool))]},
	}
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("ambient client feature request", "targets", targets)
	return []protocol.Event{e}, nil
}

// ConvertToAdjustments maps an event to plan-adjustment directives for a
// specific worker. Unknown event types yield nothing; downstream treats an
// empty list as "no change to the plan".
func ConvertToAdjustments(e protocol.Event, workerID string) []string {
	switch e.Type {
	case protocol.EventSickLeave:
		name := payloadOr(e, "worker_name", payloadOr(e, "worker", "a teammate"))
		if e.Payload != nil && e.Payload["worker"] == workerID {
			return []string{"You are on sick leave today. Hand off anything urgent and do not schedule new work."}
		}
		return []string{fmt.Sprintf("%s is out sick today. Redistribute their urgent tasks and adjust the plan.", name)}
	case protocol.EventClientFeatureRequest:
		feature := payloadOr(e, "feature", "a new feature")
		return []string{fmt.Sprintf("A client has requested %s. Scope the request and fold it into the plan.", feature)}
	case protocol.EventBlocker:
		desc := payloadOr(e, "description", "an unspecified blocker")
		return []string{fmt.Sprintf("Work is blocked on %s. Prioritize unblocking before new tasks.", desc)}
	case protocol.EventMeeting:
		topic := payloadOr(e, "topic", "a team sync")
		when := payloadOr(e, "time", "today")
		return []string{fmt.Sprintf("Attend %s (%s) and reserve time for it in the plan.", topic, when)}
	default:
		return nil
	}
}

func payloadOr(e protocol.Event, key, fallback string) string {
	if e.Payload != nil && e.Payload[key] != "" {
		return e.Payload[key]
	}
	return fallback
}

func teamLead(workers []protocol.Worker) *protocol.Worker {
	for i := range workers {
		if workers[i].IsTeamLead {
			return &workers[i]
		}
	}
	return nil
}
