package main

import (
	"strings"
	"testing"

	"tock/pkg/protocol"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		State: protocol.SimState{CurrentTick: 10, IsRunning: true},
		Workers: []protocol.Worker{
			{ID: "alice", Name: "Alice", IsTeamLead: true},
			{ID: "bob", Name: "Bob"},
		},
		Overrides: map[string]protocol.StatusOverride{
			"bob": {WorkerID: "bob", Status: protocol.StatusSickLeave, UntilTick: 18},
		},
		Events: []protocol.Event{
			{Type: protocol.EventSickLeave, TargetIDs: []string{"bob", "alice"}, AtTick: 10},
		},
		Counts: map[string]protocol.DailyCount{
			"alice": {WorkerID: "alice", DayIndex: 1, Email: 3, Chat: 1},
		},
		HoursPerDay: 8,
	}
}

func TestRenderBoardShowsStatuses(t *testing.T) {
	out := renderBoard(testSnapshot(), DefaultTheme())
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "Bob") {
		t.Fatalf("board missing workers:\n%s", out)
	}
	if !strings.Contains(out, "sick leave") || !strings.Contains(out, "available") {
		t.Fatalf("board missing statuses:\n%s", out)
	}
	// The lead gets the star marker, and each card shows today's counts.
	if !strings.Contains(out, "★") {
		t.Fatalf("board missing lead marker:\n%s", out)
	}
	if !strings.Contains(out, "3 email / 1 chat") {
		t.Fatalf("board missing daily counts:\n%s", out)
	}
}

func TestWorkerStatusExpiredOverride(t *testing.T) {
	s := testSnapshot()
	s.State.CurrentTick = 18 // until_tick reached: override no longer active

	status, _ := workerStatus(s, s.Workers[1], DefaultTheme())
	if status != "available" {
		t.Fatalf("expired override yields %q", status)
	}
}

func TestRenderEvents(t *testing.T) {
	out := renderEvents(testSnapshot(), DefaultTheme())
	if !strings.Contains(out, "sick_leave") || !strings.Contains(out, "bob, alice") {
		t.Fatalf("events render:\n%s", out)
	}

	empty := renderEvents(&Snapshot{}, DefaultTheme())
	if !strings.Contains(empty, "no events yet") {
		t.Fatalf("empty events render: %q", empty)
	}
}

func TestRenderHeader(t *testing.T) {
	out := renderHeader(testSnapshot(), DefaultTheme())
	if !strings.Contains(out, "running") || !strings.Contains(out, "tick 10") {
		t.Fatalf("header: %q", out)
	}
}
