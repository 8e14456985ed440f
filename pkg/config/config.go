// Package config loads the runtime configuration (TOML) and the roster
// (YAML). Every knob has a default, so an absent config file yields a
// fully usable configuration.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full runtime configuration.
type Config struct {
	Sim    SimConfig    `toml:"sim"`
	Limits LimitsConfig `toml:"limits"`
	Hub    HubConfig    `toml:"hub"`
	Events EventsConfig `toml:"events"`
	Inbox  InboxConfig  `toml:"inbox"`
	GenAI  GenAIConfig  `toml:"genai"`
}

// SimConfig controls the clock and the background loop.
type SimConfig struct {
	HoursPerDay         int   `toml:"hours_per_day"`
	Seed                int64 `toml:"seed"`
	AutoTickIntervalSec int   `toml:"auto_tick_interval_sec"`
	AutoPause           bool  `toml:"auto_pause"`
}

// AutoTickInterval returns the loop pacing as a duration.
func (s SimConfig) AutoTickInterval() time.Duration {
	return time.Duration(s.AutoTickIntervalSec) * time.Second
}

// LimitsConfig holds the volume-guard ceilings.
type LimitsConfig struct {
	EmailPerDay     int     `toml:"email_per_day"`
	ChatPerDay      int     `toml:"chat_per_day"`
	TopShareCeiling float64 `toml:"top_share_ceiling"`
}

// HubConfig tunes communication routing.
type HubConfig struct {
	CooldownTicks   int  `toml:"cooldown_ticks"`
	RecentEmailRing int  `toml:"recent_email_ring"`
	CCTeamLead      bool `toml:"cc_team_lead"`
}

// EventsConfig tunes ambient event generation.
type EventsConfig struct {
	CheckpointTicks      []int   `toml:"checkpoint_ticks"`
	SickLeaveChance      float64 `toml:"sick_leave_chance"`
	FeatureRequestChance float64 `toml:"feature_request_chance"`
}

// InboxConfig tunes the inbox runtime and reply gating.
type InboxConfig struct {
	Cap               int     `toml:"cap"`
	FetchMax          int     `toml:"fetch_max"`
	ReplyChance       float64 `toml:"reply_chance"`
	MaxRepliesPerTick int     `toml:"max_replies_per_tick"`
}

// GenAIConfig selects the generation collaborator. Provider is "anthropic",
// "openai", or "" to disable generation.
type GenAIConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Sim: SimConfig{
			HoursPerDay:         8,
			Seed:                1,
			AutoTickIntervalSec: 30,
			AutoPause:           true,
		},
		Limits: LimitsConfig{
			EmailPerDay:     50,
			ChatPerDay:      100,
			TopShareCeiling: 0.60,
		},
		Hub: HubConfig{
			CooldownTicks:   10,
			RecentEmailRing: 10,
			CCTeamLead:      true,
		},
		Events: EventsConfig{
			SickLeaveChance:      0.05,
			FeatureRequestChance: 0.10,
		},
		Inbox: InboxConfig{
			Cap:               20,
			FetchMax:          5,
			ReplyChance:       0.5,
			MaxRepliesPerTick: 3,
		},
	}
}

// Load reads the TOML config at path, layering it over the defaults. A
// missing file is not an error: the defaults come back as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
