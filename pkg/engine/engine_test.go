package engine //nolint:testpackage // white-box tests reach the advance mutex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tock/pkg/events"
	"tock/pkg/guard"
	"tock/pkg/hub"
	"tock/pkg/inbox"
	"tock/pkg/protocol"
	"tock/pkg/state"

	_ "modernc.org/sqlite"
)

// --- Mocks ---

type fakeEmail struct {
	mu     sync.Mutex
	nextID int
	sent   int
}

func (f *fakeEmail) EnsureMailbox(ctx context.Context, address string) error { return nil }

func (f *fakeEmail) SendEmail(ctx context.Context, req hub.EmailRequest) (hub.EmailReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent++
	threadID := req.ThreadID
	if threadID == "" {
		threadID = fmt.Sprintf("thread-%d", f.nextID)
	}
	return hub.EmailReceipt{ID: fmt.Sprintf("email-%d", f.nextID), ThreadID: threadID}, nil
}

type fakeChat struct {
	mu  sync.Mutex
	dms int
}

func (f *fakeChat) EnsureUser(ctx context.Context, handle string) error { return nil }

func (f *fakeChat) SendDirectMessage(ctx context.Context, sender, recipient, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms++
	return fmt.Sprintf("dm-%d", f.dms), nil
}

func (f *fakeChat) SendRoomMessage(ctx context.Context, sender, roomSlug, body string) (string, error) {
	return "room-1", nil
}

type scriptedSource struct {
	mu sync.Mutex
	fn func(req ActionRequest) []protocol.ScheduledAction
	// seen records which workers were asked, per tick.
	seen map[int64][]string
}

func (s *scriptedSource) ActionsFor(ctx context.Context, req ActionRequest) ([]protocol.ScheduledAction, error) {
	s.mu.Lock()
	if s.seen == nil {
		s.seen = make(map[int64][]string)
	}
	s.seen[req.Tick] = append(s.seen[req.Tick], req.Worker.ID)
	s.mu.Unlock()
	if s.fn == nil {
		return nil, nil
	}
	return s.fn(req), nil
}

type recordingGen struct {
	mu    sync.Mutex
	calls []PlanRequest
}

func (g *recordingGen) GeneratePlan(ctx context.Context, req PlanRequest) (protocol.Plan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	return protocol.Plan{Content: "report for " + req.WorkerID, ModelUsed: "fake"}, nil
}

// --- Fixture ---

type fixture struct {
	engine *Engine
	store  *state.Store
	source *scriptedSource
	email  *fakeEmail
	chat   *fakeChat
	gen    *recordingGen
}

func newFixture(t *testing.T, ecfg Config, hcfg hub.Config, limits guard.Limits) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	st := state.New(db)
	if err := st.Init(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	roster := []protocol.Worker{
		{ID: "alice", Name: "Alice", EmailAddress: "alice@corp.test", ChatHandle: "alice", IsTeamLead: true},
		{ID: "bob", Name: "Bob", EmailAddress: "bob@corp.test", ChatHandle: "bob"},
	}
	if err := st.SyncWorkers(ctx, roster); err != nil {
		t.Fatalf("sync workers: %v", err)
	}

	email := &fakeEmail{}
	chat := &fakeChat{}
	src := &scriptedSource{}
	gen := &recordingGen{}

	h := hub.New(email, chat, hcfg, nil)
	// Checkpoint 99 never matches a tick-of-day position: ambient stays off
	// unless a test opts in.
	ev := events.New(st, 1, events.Config{HoursPerDay: ecfg.HoursPerDay, CheckpointTicks: []int{99}}, nil)
	g := guard.New(st, limits, nil)
	ib := inbox.NewRuntimeManager(st, inbox.RuntimeConfig{ReplyChance: 1.0, Seed: 1}, nil)

	eng := New(st, h, ev, g, ib, src, gen, ecfg, nil)
	return &fixture{engine: eng, store: st, source: src, email: email, chat: chat, gen: gen}
}

func emailTo(target, subject, body string) protocol.ScheduledAction {
	return protocol.ScheduledAction{Channel: protocol.ChannelEmail, Target: target, Subject: subject, Body: body}
}

// --- Tests ---

func TestAdvanceRequiresRunning(t *testing.T) {
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	_, err := f.engine.Advance(context.Background(), 1)
	var ite *protocol.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("advance before start: %v", err)
	}
}

func TestAdvanceDispatchesAndReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{CooldownTicks: 1}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.source.fn = func(req ActionRequest) []protocol.ScheduledAction {
		if req.Worker.ID != "bob" {
			return nil
		}
		return []protocol.ScheduledAction{emailTo("alice@corp.test", fmt.Sprintf("s%d", req.Tick), "hello")}
	}

	report, err := f.engine.Advance(ctx, 3)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.TicksAdvanced != 3 || report.FinalTick != 3 {
		t.Fatalf("progress: %+v", report)
	}
	if report.EmailsSent != 3 || report.Rejected != 0 {
		t.Fatalf("send counters: %+v", report)
	}
	// Every send is mirrored into alice's durable inbox.
	msgs, err := f.store.ListInboxMessages(ctx, "alice")
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("alice inbox: %d messages", len(msgs))
	}
	// Both workers were consulted at every tick.
	for tick := int64(1); tick <= 3; tick++ {
		if len(f.source.seen[tick]) != 2 {
			t.Fatalf("tick %d consulted %v", tick, f.source.seen[tick])
		}
	}
}

func TestAdvanceRejectsNonPositive(t *testing.T) {
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	_, err := f.engine.Advance(context.Background(), 0)
	var ve *protocol.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("zero ticks: %v", err)
	}
}

func TestConcurrentAdvanceFailsFast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.engine.advanceMu.Lock()
	defer f.engine.advanceMu.Unlock()

	_, err := f.engine.Advance(ctx, 1)
	var ce *protocol.ConcurrencyError
	if !errors.As(err, &ce) {
		t.Fatalf("concurrent advance: %v", err)
	}
}

func TestOverrideAndWorkWindowSkips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.store.SetOverride(ctx, protocol.StatusOverride{
		WorkerID: "bob", Status: protocol.StatusSickLeave, UntilTick: 100,
	}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	report, err := f.engine.Advance(ctx, 1)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.SkippedWorkers != 1 {
		t.Fatalf("skipped: %+v", report)
	}
	if got := f.source.seen[1]; len(got) != 1 || got[0] != "alice" {
		t.Fatalf("consulted workers: %v", got)
	}

	// A worker outside their work window is skipped the same way. At
	// hoursPerDay=8, "09:00-18:00" spans tick positions [3,6): tick 2
	// (position 1) is before the window.
	f2 := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	if err := f2.store.SyncWorkers(ctx, []protocol.Worker{
		{ID: "carol", Name: "Carol", EmailAddress: "carol@corp.test", ChatHandle: "carol", WorkHours: "09:00-18:00"},
	}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := f2.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	report, err = f2.engine.Advance(ctx, 2)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.SkippedWorkers != 2 {
		t.Fatalf("work-window skips: %+v", report)
	}
}

func TestDailyLimitRejectionInReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{CooldownTicks: 1}, guard.Limits{EmailPerDay: 2})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.source.fn = func(req ActionRequest) []protocol.ScheduledAction {
		if req.Worker.ID != "bob" {
			return nil
		}
		return []protocol.ScheduledAction{emailTo("alice@corp.test", fmt.Sprintf("s%d", req.Tick), "x")}
	}

	report, err := f.engine.Advance(ctx, 3)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.EmailsSent != 2 || report.Rejected != 1 {
		t.Fatalf("limit enforcement: %+v", report)
	}
}

func TestReplyMarksInboxMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{CooldownTicks: 1}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Tick 1: alice asks bob a question (classified needs-reply). Tick 2:
	// bob replies to the top unanswered message in his inbox.
	f.source.fn = func(req ActionRequest) []protocol.ScheduledAction {
		switch {
		case req.Worker.ID == "alice" && req.Tick == 1:
			return []protocol.ScheduledAction{emailTo("bob@corp.test", "Can you help?", "need a review")}
		case req.Worker.ID == "bob" && req.Tick == 2 && len(req.Inbox) > 0 && req.Inbox[0].NeedsReply:
			a := emailTo("ignored@corp.test", "Re: Can you help?", "on it")
			a.ReplyToEmailID = req.Inbox[0].MessageID
			return []protocol.ScheduledAction{a}
		}
		return nil
	}

	report, err := f.engine.Advance(ctx, 2)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.EmailsSent != 2 || report.RepliesMarked != 1 {
		t.Fatalf("reply flow: %+v", report)
	}
	msgs, err := f.store.ListInboxMessages(ctx, "bob")
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	var marked bool
	for _, m := range msgs {
		if m.RepliedTick != nil && *m.RepliedTick == 2 {
			marked = true
		}
	}
	if !marked {
		t.Fatal("original message not marked replied")
	}
	// The reply threaded back to alice, not to the literal target.
	aliceMsgs, _ := f.store.ListInboxMessages(ctx, "alice")
	if len(aliceMsgs) != 1 || aliceMsgs[0].Subject != "Re: Can you help?" {
		t.Fatalf("alice inbox: %+v", aliceMsgs)
	}
}

func TestDailyReportAtEndOfDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 2}, hub.Config{}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.engine.Advance(ctx, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// Only tick 2 closes day 0, so each worker reports exactly once.
	if len(f.gen.calls) != 2 {
		t.Fatalf("generator calls: %+v", f.gen.calls)
	}
	for _, call := range f.gen.calls {
		if call.Kind != "daily_report" || call.DayIndex != 0 {
			t.Fatalf("call: %+v", call)
		}
	}
}

func TestDailyReportIgnoresWorkWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	// Realistic schedules end well before the last tick of the day; the
	// report pass must not depend on the send window.
	if err := f.store.SyncWorkers(ctx, []protocol.Worker{
		{ID: "alice", Name: "Alice", EmailAddress: "alice@corp.test", ChatHandle: "alice", IsTeamLead: true, WorkHours: "09:00-17:00"},
		{ID: "bob", Name: "Bob", EmailAddress: "bob@corp.test", ChatHandle: "bob", WorkHours: "09:00-17:00"},
	}); err != nil {
		t.Fatalf("sync workers: %v", err)
	}
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Bob is out sick past the first end-of-day tick.
	if err := f.store.SetOverride(ctx, protocol.StatusOverride{
		WorkerID: "bob", Status: protocol.StatusSickLeave, UntilTick: 9,
	}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	// Two full days: ticks 8 and 16 close days 0 and 1.
	if _, err := f.engine.Advance(ctx, 16); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Alice reports both days; bob only on day 1 (sick on day 0).
	got := map[string][]int64{}
	for _, call := range f.gen.calls {
		if call.Kind != "daily_report" {
			t.Fatalf("call kind: %+v", call)
		}
		got[call.WorkerID] = append(got[call.WorkerID], call.DayIndex)
	}
	if len(f.gen.calls) != 3 {
		t.Fatalf("generator calls: %+v", f.gen.calls)
	}
	if len(got["alice"]) != 2 || got["alice"][0] != 0 || got["alice"][1] != 1 {
		t.Fatalf("alice report days: %v", got["alice"])
	}
	if len(got["bob"]) != 1 || got["bob"][0] != 1 {
		t.Fatalf("bob report days: %v", got["bob"])
	}
}

func TestAutoPauseStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.store.SetAutoPause(ctx, true); err != nil {
		t.Fatalf("enable auto-pause: %v", err)
	}

	// Empty timeline: pause.
	status, err := f.engine.AutoPauseStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.ShouldPause {
		t.Fatalf("empty timeline: %+v", status)
	}
	if !strings.Contains(status.Reason, "no active projects") || !strings.Contains(status.Reason, "no future projects") {
		t.Fatalf("reason: %q", status.Reason)
	}

	// A project active in week 1 keeps the loop running.
	if err := f.store.ReplaceProjects(ctx, []protocol.Project{
		{Name: "apollo", StartWeek: 1, DurationWeeks: 2},
	}); err != nil {
		t.Fatalf("projects: %v", err)
	}
	status, _ = f.engine.AutoPauseStatus(ctx)
	if status.ShouldPause || status.ActiveProjects != 1 {
		t.Fatalf("active project: %+v", status)
	}

	// A future-only timeline also keeps it running.
	if err := f.store.ReplaceProjects(ctx, []protocol.Project{
		{Name: "zephyr", StartWeek: 9, DurationWeeks: 1},
	}); err != nil {
		t.Fatalf("projects: %v", err)
	}
	status, _ = f.engine.AutoPauseStatus(ctx)
	if status.ShouldPause || status.FutureProjects != 1 {
		t.Fatalf("future project: %+v", status)
	}

	// Disabled flag: never pause, regardless of timeline.
	if err := f.store.SetAutoPause(ctx, false); err != nil {
		t.Fatalf("disable auto-pause: %v", err)
	}
	if err := f.store.ReplaceProjects(ctx, nil); err != nil {
		t.Fatalf("projects: %v", err)
	}
	status, _ = f.engine.AutoPauseStatus(ctx)
	if status.ShouldPause {
		t.Fatalf("disabled flag: %+v", status)
	}
}

func TestAutoTickLoopAdvancesAndStops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8, AutoTickInterval: 5 * time.Millisecond}, hub.Config{}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.engine.StartAutoTick(ctx); err != nil {
		t.Fatalf("start auto-tick: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := f.store.GetState(ctx)
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if st.CurrentTick >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("loop never advanced: tick %d", st.CurrentTick)
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.engine.StopAutoTick(ctx)
	st, _ := f.store.GetState(ctx)
	if st.AutoTick {
		t.Fatal("auto_tick flag still set after stop")
	}
	settled := st.CurrentTick
	time.Sleep(30 * time.Millisecond)
	st, _ = f.store.GetState(ctx)
	if st.CurrentTick != settled {
		t.Fatal("loop still ticking after stop")
	}
}

func TestAutoTickFailStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8, AutoTickInterval: 5 * time.Millisecond}, hub.Config{}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.engine.StartAutoTick(ctx); err != nil {
		t.Fatalf("start auto-tick: %v", err)
	}

	// Stopping the simulation out from under the loop makes the next tick
	// fail; the loop must disable itself rather than retry forever.
	if err := f.store.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := f.store.GetState(ctx)
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if !st.AutoTick {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("loop never fail-stopped")
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.engine.StopAutoTick(ctx) // idempotent cleanup
}

func TestStartAutoTickRequiresRunning(t *testing.T) {
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{}, guard.Limits{})
	err := f.engine.StartAutoTick(context.Background())
	var ite *protocol.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("auto-tick before start: %v", err)
	}
}

func TestResetClearsRunState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{HoursPerDay: 8}, hub.Config{CooldownTicks: 1}, guard.Limits{})
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.source.fn = func(req ActionRequest) []protocol.ScheduledAction {
		if req.Worker.ID != "bob" {
			return nil
		}
		return []protocol.ScheduledAction{emailTo("alice@corp.test", "s", "b")}
	}
	if _, err := f.engine.Advance(ctx, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if err := f.engine.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st, _ := f.store.GetState(ctx)
	if st.CurrentTick != 0 || st.IsRunning {
		t.Fatalf("state after reset: %+v", st)
	}
	if f.engine.guard.SessionShare("bob") != 0 {
		t.Fatal("participation window survived reset")
	}
	msgs, _ := f.store.ListInboxMessages(ctx, "alice")
	if len(msgs) != 0 {
		t.Fatalf("inbox survived reset: %d messages", len(msgs))
	}
	workers, _ := f.store.ListWorkers(ctx)
	if len(workers) != 2 {
		t.Fatal("roster must survive reset")
	}
}
