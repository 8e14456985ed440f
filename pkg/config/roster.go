package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tock/pkg/protocol"
)

// Roster is the YAML team and project definition.
type Roster struct {
	Workers  []protocol.Worker  `yaml:"workers"`
	Projects []protocol.Project `yaml:"projects"`
}

// LoadRoster reads and validates the roster file at path.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, err
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("parsing roster %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return Roster{}, err
	}
	return r, nil
}

// Validate checks the roster invariants: at least one worker, unique ids,
// non-empty addresses, at most one team lead, and positive project spans.
func (r Roster) Validate() error {
	if len(r.Workers) == 0 {
		return &protocol.ValidationError{Field: "workers", Reason: "roster must name at least one worker"}
	}
	seen := make(map[string]bool, len(r.Workers))
	leads := 0
	for _, w := range r.Workers {
		if w.ID == "" {
			return &protocol.ValidationError{Field: "workers.id", Reason: "must not be empty"}
		}
		if seen[w.ID] {
			return &protocol.ValidationError{Field: "workers.id", Reason: fmt.Sprintf("duplicate id %q", w.ID)}
		}
		seen[w.ID] = true
		if w.EmailAddress == "" {
			return &protocol.ValidationError{Field: "workers.email", Reason: fmt.Sprintf("worker %q has no email address", w.ID)}
		}
		if w.IsTeamLead {
			leads++
		}
	}
	if leads > 1 {
		return &protocol.ValidationError{Field: "workers.team_lead", Reason: "at most one team lead"}
	}
	for _, p := range r.Projects {
		if p.Name == "" {
			return &protocol.ValidationError{Field: "projects.name", Reason: "must not be empty"}
		}
		if p.StartWeek < 1 || p.DurationWeeks < 1 {
			return &protocol.ValidationError{
				Field:  "projects",
				Reason: fmt.Sprintf("project %q needs start_week >= 1 and duration_weeks >= 1", p.Name),
			}
		}
	}
	return nil
}
