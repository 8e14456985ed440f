package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tock/pkg/engine"
)

func TestBuildPromptDailyReport(t *testing.T) {
	system, user := buildPrompt(engine.PlanRequest{
		WorkerID:   "bob",
		WorkerName: "Bob",
		DayIndex:   3,
		Kind:       "daily_report",
		Context:    []string{"Alice is out sick today.", "A client has requested an export to CSV."},
	})

	assert.Contains(t, system, "Bob")
	assert.Contains(t, user, "end-of-day report for day 3")
	assert.Contains(t, user, "Alice is out sick today.")
	assert.Contains(t, user, "export to CSV")
}

func TestBuildPromptPlanDefault(t *testing.T) {
	// Any kind other than daily_report falls back to a plan prompt, and a
	// missing display name falls back to the id.
	system, user := buildPrompt(engine.PlanRequest{WorkerID: "carol", DayIndex: 0, Kind: "plan"})

	assert.Contains(t, system, "carol")
	assert.Contains(t, user, "work plan for day 0")
	assert.NotContains(t, user, "Take the following into account")
}
