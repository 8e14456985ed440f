// Package engine orchestrates the simulation: it owns the tick pipeline
// (advance the clock, expire overrides, roll ambient events, route each
// worker's due actions through the guards and the hub) and the background
// auto-tick loop. Exactly one Advance runs at a time; a second caller gets
// a ConcurrencyError instead of queueing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tock/pkg/events"
	"tock/pkg/guard"
	"tock/pkg/hub"
	"tock/pkg/inbox"
	"tock/pkg/protocol"
	"tock/pkg/simclock"
	"tock/pkg/state"
)

// ActionRequest is everything an action source needs to decide what one
// worker does at one tick.
type ActionRequest struct {
	Tick   int64
	Worker protocol.Worker
	// Inbox holds the worker's prioritized unread messages.
	Inbox []protocol.InboxMessage
	// Adjustments are plan-adjustment directives derived from events that
	// target this worker at this tick.
	Adjustments []string
	// Discouraged is the participation balancer's advice to hold back
	// optional sends. Advisory only.
	Discouraged bool
}

// ActionSource produces the scheduled actions a worker performs at a tick.
type ActionSource interface {
	ActionsFor(ctx context.Context, req ActionRequest) ([]protocol.ScheduledAction, error)
}

// PlanRequest asks the generation collaborator for one piece of text.
type PlanRequest struct {
	WorkerID   string
	WorkerName string
	DayIndex   int64
	// Kind is "daily_report" or "plan".
	Kind string
	// Context carries prompt material: adjustments, inbox summaries.
	Context []string
}

// Generator is the text-generation collaborator.
type Generator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (protocol.Plan, error)
}

// Config tunes the engine.
type Config struct {
	HoursPerDay int
	// AutoTickInterval is the wall-clock pacing of the background loop.
	AutoTickInterval time.Duration
	// InboxFetchMax bounds how many inbox messages reach the action source.
	InboxFetchMax int
}

func (c Config) withDefaults() Config {
	out := c
	if out.HoursPerDay <= 0 {
		out.HoursPerDay = 8
	}
	if out.AutoTickInterval <= 0 {
		out.AutoTickInterval = 30 * time.Second
	}
	if out.InboxFetchMax <= 0 {
		out.InboxFetchMax = inbox.DefaultFetchMax
	}
	return out
}

// Engine wires the subsystems together.
type Engine struct {
	cfg     Config
	store   *state.Store
	hub     *hub.Hub
	events  *events.System
	guard   *guard.VolumeGuard
	inboxes *inbox.RuntimeManager
	source  ActionSource
	gen     Generator
	log     *slog.Logger

	// advanceMu serializes tick work. TryLock, never Lock: a concurrent
	// caller fails fast instead of stacking up behind a slow tick.
	advanceMu sync.Mutex

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New assembles an engine. source is required; gen may be nil, which
// disables daily report generation.
func New(store *state.Store, h *hub.Hub, ev *events.System, g *guard.VolumeGuard, ib *inbox.RuntimeManager, source ActionSource, gen Generator, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:     cfg.withDefaults(),
		store:   store,
		hub:     h,
		events:  ev,
		guard:   g,
		inboxes: ib,
		source:  source,
		gen:     gen,
		log:     log,
	}
}

// Start marks the simulation running and loads the runtime state.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Start(ctx); err != nil {
		return err
	}
	return e.Load(ctx)
}

// Load restores persisted inboxes and installs the roster and room
// directory into the hub, without touching the run flags. Called by Start
// and by read-only entry points that operate on an already-running run.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.inboxes.Load(ctx); err != nil {
		return err
	}
	return e.ReloadDirectory(ctx)
}

// Stop halts the auto-tick loop (if any) and marks the simulation stopped.
func (e *Engine) Stop(ctx context.Context) error {
	e.StopAutoTick(ctx)
	return e.store.Stop(ctx)
}

// Reset clears all run state: ticks, events, overrides, counters, plans,
// and inboxes, durable and in-memory both. The roster and projects survive.
func (e *Engine) Reset(ctx context.Context) error {
	e.StopAutoTick(ctx)
	if err := e.store.Reset(ctx); err != nil {
		return err
	}
	e.guard.ResetSession()
	e.inboxes.SyncRuntimes(nil)
	return nil
}

// ReloadDirectory rebuilds the hub's address directory from the store.
func (e *Engine) ReloadDirectory(ctx context.Context) error {
	roster, err := e.store.ListWorkers(ctx)
	if err != nil {
		return err
	}
	projects, err := e.store.ListProjects(ctx)
	if err != nil {
		return err
	}
	rooms := make(map[string]string)
	for _, p := range projects {
		if p.ChatRoom != "" {
			rooms[strings.ToLower(p.Name)] = p.ChatRoom
		}
	}
	e.hub.SetDirectory(roster, rooms)
	if err := e.hub.Provision(ctx); err != nil {
		// A recipient left unprovisioned surfaces again on the first send,
		// so a collaborator outage here does not block the reload.
		e.log.Warn("provisioning directory failed", "error", err)
	}
	e.inboxes.SyncRuntimes(roster)
	return nil
}

// Advance runs n ticks in the foreground. Progress is sticky: when tick k
// of n fails, the first k-1 ticks stay advanced and the partial report comes
// back alongside the error. A concurrent Advance (or a background tick in
// flight) returns a ConcurrencyError immediately.
func (e *Engine) Advance(ctx context.Context, n int) (protocol.TickReport, error) {
	return e.advance(ctx, n, "manual")
}

// AdvanceWithReason is Advance with a caller-supplied audit reason for the
// tick log.
func (e *Engine) AdvanceWithReason(ctx context.Context, n int, reason string) (protocol.TickReport, error) {
	if reason == "" {
		reason = "manual"
	}
	return e.advance(ctx, n, reason)
}

func (e *Engine) advance(ctx context.Context, n int, reason string) (protocol.TickReport, error) {
	var report protocol.TickReport
	if n <= 0 {
		return report, &protocol.ValidationError{Field: "ticks", Reason: "must be positive"}
	}
	if !e.advanceMu.TryLock() {
		return report, &protocol.ConcurrencyError{Op: "advance"}
	}
	defer e.advanceMu.Unlock()

	st, err := e.store.GetState(ctx)
	if err != nil {
		return report, err
	}
	if !st.IsRunning {
		return report, &protocol.InvalidTransitionError{Op: "advance", Reason: "simulation is not running"}
	}
	report.FinalTick = st.CurrentTick

	for i := 0; i < n; i++ {
		tick, err := e.store.AdvanceTick(ctx, reason)
		if err != nil {
			return report, err
		}
		report.TicksAdvanced++
		report.FinalTick = tick
		if err := e.runTick(ctx, tick, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (e *Engine) runTick(ctx context.Context, tick int64, report *protocol.TickReport) error {
	e.hub.BeginTick(tick)

	expired, err := e.store.ClearExpiredOverrides(ctx, tick)
	if err != nil {
		return err
	}
	for _, o := range expired {
		e.log.Info("status override expired", "worker", o.WorkerID, "status", string(o.Status))
	}

	ambient, err := e.events.AmbientTick(ctx, tick)
	if err != nil {
		return err
	}
	report.AmbientEvents += len(ambient)

	workers, err := e.store.ListWorkers(ctx)
	if err != nil {
		return err
	}
	overrides, err := e.store.ListOverrides(ctx)
	if err != nil {
		return err
	}

	dayIndex := simclock.DayIndex(tick, e.cfg.HoursPerDay)
	endOfDay := simclock.TickOfDay(tick, e.cfg.HoursPerDay) == e.cfg.HoursPerDay-1

	for _, w := range workers {
		if o, ok := overrides[w.ID]; ok && o.ActiveAt(tick) {
			report.SkippedWorkers++
			continue
		}
		if !simclock.InWorkWindow(tick, w.WorkHours, e.cfg.HoursPerDay) {
			report.SkippedWorkers++
			continue
		}

		req := ActionRequest{
			Tick:        tick,
			Worker:      w,
			Inbox:       e.inboxes.Get(w.ID, e.cfg.InboxFetchMax),
			Adjustments: adjustmentsFor(ambient, w.ID),
			Discouraged: e.guard.Discourage(w.ID),
		}
		actions, err := e.source.ActionsFor(ctx, req)
		if err != nil {
			// One worker's source failure does not sink the tick.
			e.log.Error("action source failed", "worker", w.ID, "tick", tick, "error", err)
			continue
		}
		for _, a := range actions {
			e.dispatchAction(ctx, tick, dayIndex, w, a, report)
		}
	}

	// The report pass runs outside the send loop: the last tick of the day
	// lies past most schedules, and a worker whose window already closed
	// still files a report. Only an active override suppresses it.
	if endOfDay && e.gen != nil {
		for _, w := range workers {
			if o, ok := overrides[w.ID]; ok && o.ActiveAt(tick) {
				continue
			}
			e.generateDailyReport(ctx, dayIndex, w, adjustmentsFor(ambient, w.ID))
		}
	}
	return nil
}

func (e *Engine) dispatchAction(ctx context.Context, tick, dayIndex int64, w protocol.Worker, a protocol.ScheduledAction, report *protocol.TickReport) {
	a.Sender = w.ID

	// Replies spend a slot from the per-tick reply budget; a denied slot
	// just defers the reply to a later tick.
	if a.ReplyToEmailID != "" && !e.inboxes.GrantReplySlot(tick) {
		return
	}

	ok, err := e.guard.CheckDailyLimit(ctx, w.ID, dayIndex, a.Channel)
	if err != nil {
		e.log.Error("daily limit check failed", "worker", w.ID, "error", err)
		return
	}
	if !ok {
		report.Rejected++
		return
	}

	res, err := e.hub.Dispatch(ctx, tick, a)
	if err != nil {
		e.log.Error("dispatch failed", "worker", w.ID, "channel", string(a.Channel), "error", err)
		return
	}
	switch res.Disposition {
	case hub.Sent:
	case hub.Rejected:
		report.Rejected++
		return
	default:
		return
	}

	if err := e.guard.RecordSend(ctx, w.ID, dayIndex, a.Channel); err != nil {
		e.log.Error("recording send failed", "worker", w.ID, "error", err)
	}
	switch res.Channel {
	case protocol.ChannelEmail:
		report.EmailsSent++
	case protocol.ChannelChat:
		report.ChatsSent++
	}

	if a.ReplyToEmailID != "" {
		if err := e.inboxes.MarkReplied(ctx, w.ID, a.ReplyToEmailID, tick); err != nil {
			e.log.Error("marking reply failed", "worker", w.ID, "error", err)
		} else {
			report.RepliesMarked++
		}
	}

	e.deliverToInbox(ctx, tick, w, a, res)
}

// deliverToInbox mirrors a sent message into the recipient's durable inbox.
// Room broadcasts have no single owner and are not mirrored.
func (e *Engine) deliverToInbox(ctx context.Context, tick int64, sender protocol.Worker, a protocol.ScheduledAction, res hub.Result) {
	if res.Channel == protocol.ChannelChat && !e.isWorker(ctx, res.Recipient) {
		return
	}
	id := res.EmailID
	if id == "" {
		id = uuid.NewString()
	}
	msg := protocol.InboxMessage{
		MessageID:    id,
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		Subject:      a.Subject,
		Body:         a.Body,
		ThreadID:     res.ThreadID,
		ReceivedTick: tick,
		Channel:      res.Channel,
	}
	if err := e.inboxes.QueueMessage(ctx, res.Recipient, msg); err != nil {
		e.log.Error("queueing inbox message failed", "recipient", res.Recipient, "error", err)
	}
}

func (e *Engine) isWorker(ctx context.Context, id string) bool {
	workers, err := e.store.ListWorkers(ctx)
	if err != nil {
		return false
	}
	for _, w := range workers {
		if w.ID == id {
			return true
		}
	}
	return false
}

func (e *Engine) generateDailyReport(ctx context.Context, dayIndex int64, w protocol.Worker, adjustments []string) {
	plan, err := e.gen.GeneratePlan(ctx, PlanRequest{
		WorkerID:   w.ID,
		WorkerName: w.Name,
		DayIndex:   dayIndex,
		Kind:       "daily_report",
		Context:    adjustments,
	})
	if err != nil {
		// Reports are best-effort: a collaborator outage never fails a tick.
		e.log.Error("daily report generation failed", "worker", w.ID, "day", dayIndex, "error", err)
		return
	}
	if err := e.store.SaveDailyReport(ctx, w.ID, dayIndex, plan); err != nil {
		e.log.Error("saving daily report failed", "worker", w.ID, "day", dayIndex, "error", err)
	}
}

func adjustmentsFor(ambient []protocol.Event, workerID string) []string {
	var out []string
	for _, ev := range ambient {
		if ev.Targets(workerID) {
			out = append(out, events.ConvertToAdjustments(ev, workerID)...)
		}
	}
	return out
}

// AutoPauseStatus inspects the project timeline and reports whether the
// auto-tick loop should pause.
func (e *Engine) AutoPauseStatus(ctx context.Context) (protocol.AutoPauseStatus, error) {
	st, err := e.store.GetState(ctx)
	if err != nil {
		return protocol.AutoPauseStatus{}, err
	}
	projects, err := e.store.ListProjects(ctx)
	if err != nil {
		return protocol.AutoPauseStatus{}, err
	}

	week := simclock.CurrentWeek(st.CurrentTick, e.cfg.HoursPerDay)
	out := protocol.AutoPauseStatus{
		Enabled:     st.AutoPauseEnabled,
		CurrentWeek: week,
	}
	for _, p := range projects {
		switch {
		case p.ActiveInWeek(week):
			out.ActiveProjects++
		case p.StartWeek > week:
			out.FutureProjects++
		}
	}
	out.ShouldPause = out.Enabled && out.ActiveProjects == 0 && out.FutureProjects == 0
	switch {
	case !out.Enabled:
		out.Reason = "auto-pause is disabled"
	case out.ShouldPause:
		out.Reason = fmt.Sprintf("week %d has no active projects and no future projects remain", week)
	case out.ActiveProjects > 0:
		out.Reason = fmt.Sprintf("%d project(s) active in week %d", out.ActiveProjects, week)
	default:
		out.Reason = fmt.Sprintf("%d project(s) start after week %d", out.FutureProjects, week)
	}
	return out, nil
}
