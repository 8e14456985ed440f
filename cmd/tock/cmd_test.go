package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCommand executes the CLI with args and returns combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestInitCreatesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TOCK_HOME", home)

	out, err := runCommand(t, "init")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	for _, name := range []string{"state.db", "tock.toml", "roster.yaml", "actions.yaml"} {
		if _, err := os.Stat(filepath.Join(home, name)); err != nil {
			t.Fatalf("missing %s after init: %v", name, err)
		}
	}

	// A second init must not clobber an edited config.
	marker := []byte("# edited\n[sim]\nhours_per_day = 4\n")
	if err := os.WriteFile(filepath.Join(home, "tock.toml"), marker, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runCommand(t, "init"); err != nil {
		t.Fatalf("second init: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(home, "tock.toml"))
	if !bytes.Equal(data, marker) {
		t.Fatal("init overwrote an existing config file")
	}
}

func TestAdvanceRequiresStart(t *testing.T) {
	t.Setenv("TOCK_HOME", t.TempDir())
	if _, err := runCommand(t, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runCommand(t, "advance"); err == nil {
		t.Fatal("advance before start must fail")
	}
}

func TestStartAdvanceStatusFlow(t *testing.T) {
	t.Setenv("TOCK_HOME", t.TempDir())
	if _, err := runCommand(t, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}

	out, err := runCommand(t, "start")
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 workers") {
		t.Fatalf("start output: %q", out)
	}

	out, err = runCommand(t, "advance", "-n", "2")
	if err != nil {
		t.Fatalf("advance: %v\n%s", err, out)
	}
	if !strings.Contains(out, "advanced 2 tick(s), now at tick 2") {
		t.Fatalf("advance output: %q", out)
	}

	out, err = runCommand(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "running") || !strings.Contains(out, "tick 2") {
		t.Fatalf("status output: %q", out)
	}

	out, err = runCommand(t, "stop")
	if err != nil || !strings.Contains(out, "simulation stopped") {
		t.Fatalf("stop: %v\n%s", err, out)
	}
}

func TestInjectAndListEvents(t *testing.T) {
	t.Setenv("TOCK_HOME", t.TempDir())
	for _, args := range [][]string{{"init"}, {"start"}} {
		if out, err := runCommand(t, args...); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, out)
		}
	}

	out, err := runCommand(t, "inject",
		"--type", "blocker", "--target", "bob", "--payload", "description=staging is down")
	if err != nil || !strings.Contains(out, "injected blocker event") {
		t.Fatalf("inject: %v\n%s", err, out)
	}

	out, err = runCommand(t, "events", "--target", "bob")
	if err != nil || !strings.Contains(out, "blocker") {
		t.Fatalf("events: %v\n%s", err, out)
	}
	// A non-matching filter hides it.
	out, err = runCommand(t, "events", "--target", "alice")
	if err != nil || !strings.Contains(out, "no events") {
		t.Fatalf("filtered events: %v\n%s", err, out)
	}
}

func TestInjectRejectsBadPayload(t *testing.T) {
	t.Setenv("TOCK_HOME", t.TempDir())
	for _, args := range [][]string{{"init"}, {"start"}} {
		if _, err := runCommand(t, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	if _, err := runCommand(t, "inject", "--type", "blocker", "--payload", "not-a-pair"); err == nil {
		t.Fatal("malformed payload must fail")
	}
}

func TestResetNeedsForce(t *testing.T) {
	t.Setenv("TOCK_HOME", t.TempDir())
	for _, args := range [][]string{{"init"}, {"start"}, {"advance", "-n", "1"}} {
		if out, err := runCommand(t, args...); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, out)
		}
	}

	out, err := runCommand(t, "reset")
	if err != nil || !strings.Contains(out, "--force") {
		t.Fatalf("reset without force: %v\n%s", err, out)
	}
	out, err = runCommand(t, "status")
	if err != nil || !strings.Contains(out, "tick 1") {
		t.Fatalf("state must be untouched: %v\n%s", err, out)
	}

	out, err = runCommand(t, "reset", "--force")
	if err != nil || !strings.Contains(out, "reset to tick 0") {
		t.Fatalf("forced reset: %v\n%s", err, out)
	}
	out, err = runCommand(t, "status")
	if err != nil || !strings.Contains(out, "tick 0") {
		t.Fatalf("status after reset: %v\n%s", err, out)
	}
}

func TestAutoPauseCommands(t *testing.T) {
	t.Setenv("TOCK_HOME", t.TempDir())
	for _, args := range [][]string{{"init"}, {"start"}} {
		if _, err := runCommand(t, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, err := runCommand(t, "autopause", "off")
	if err != nil || !strings.Contains(out, "auto-pause off") {
		t.Fatalf("autopause off: %v\n%s", err, out)
	}
	out, err = runCommand(t, "autopause", "status")
	if err != nil || !strings.Contains(out, "enabled:         false") {
		t.Fatalf("autopause status: %v\n%s", err, out)
	}
	out, err = runCommand(t, "autopause", "on")
	if err != nil || !strings.Contains(out, "auto-pause on") {
		t.Fatalf("autopause on: %v\n%s", err, out)
	}
	// The sample roster ships a week-1 project, so the loop keeps running.
	out, err = runCommand(t, "autopause", "status")
	if err != nil || !strings.Contains(out, "should pause:    false") {
		t.Fatalf("autopause verdict: %v\n%s", err, out)
	}
}

func TestParsePayload(t *testing.T) {
	got, err := parsePayload([]string{"a=1", "b=two=three"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["a"] != "1" || got["b"] != "two=three" {
		t.Fatalf("payload: %v", got)
	}
	if _, err := parsePayload([]string{"=v"}); err == nil {
		t.Fatal("empty key must fail")
	}
	m, err := parsePayload(nil)
	if err != nil || m != nil {
		t.Fatalf("empty input: %v %v", m, err)
	}
}
