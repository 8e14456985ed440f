// Package genai implements the text-generation collaborator on top of the
// Anthropic and OpenAI SDKs. Both adapters share one prompt builder so the
// provider choice never changes what the model is asked.
package genai

import (
	"fmt"
	"strings"

	"tock/pkg/engine"
)

// buildPrompt renders the system and user messages for one request.
func buildPrompt(req engine.PlanRequest) (system, user string) {
	name := req.WorkerName
	if name == "" {
		name = req.WorkerID
	}
	system = fmt.Sprintf(
		"You are %s, a member of a small consulting team in a simulated office. "+
			"Write in first person, stay concrete, and keep it under 200 words.", name)

	var b strings.Builder
	switch req.Kind {
	case "daily_report":
		fmt.Fprintf(&b, "Write your end-of-day report for day %d. "+
			"Summarize what you finished, what is still open, and any blockers.\n", req.DayIndex)
	default:
		fmt.Fprintf(&b, "Write your work plan for day %d as a short prioritized list.\n", req.DayIndex)
	}
	if len(req.Context) > 0 {
		b.WriteString("\nTake the following into account:\n")
		for _, line := range req.Context {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return system, b.String()
}
