package main

import (
	"context"
	"database/sql"
	"log/slog"

	"tock/pkg/config"
	"tock/pkg/engine"
	"tock/pkg/events"
	"tock/pkg/genai"
	"tock/pkg/guard"
	"tock/pkg/hub"
	"tock/pkg/inbox"
	"tock/pkg/state"

	"github.com/anthropics/anthropic-sdk-go"
)

// runtime bundles everything a command needs: the assembled engine plus the
// layers underneath it for commands that talk to them directly.
type runtime struct {
	cfg    config.Config
	db     *sql.DB
	store  *state.Store
	engine *engine.Engine
	events *events.System
}

// Close releases the database handle.
func (r *runtime) Close() {
	_ = r.db.Close()
}

// buildRuntime opens the state database and wires the full engine stack
// from the resolved paths and config.
func buildRuntime(ctx context.Context, paths *Paths) (*runtime, error) {
	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return nil, err
	}
	db, err := openDB(paths.StateDBPath)
	if err != nil {
		return nil, err
	}
	st := state.New(db)
	if err := st.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log := slog.Default()
	h := hub.New(&consoleEmail{log: log}, &consoleChat{log: log}, hub.Config{
		CooldownTicks:   cfg.Hub.CooldownTicks,
		RecentEmailRing: cfg.Hub.RecentEmailRing,
		CCTeamLead:      cfg.Hub.CCTeamLead,
	}, log)
	ev := events.New(st, cfg.Sim.Seed, events.Config{
		HoursPerDay:          cfg.Sim.HoursPerDay,
		CheckpointTicks:      cfg.Events.CheckpointTicks,
		SickLeaveChance:      cfg.Events.SickLeaveChance,
		FeatureRequestChance: cfg.Events.FeatureRequestChance,
	}, log)
	g := guard.New(st, guard.Limits{
		EmailPerDay:     cfg.Limits.EmailPerDay,
		ChatPerDay:      cfg.Limits.ChatPerDay,
		TopShareCeiling: cfg.Limits.TopShareCeiling,
	}, log)
	ib := inbox.NewRuntimeManager(st, inbox.RuntimeConfig{
		InboxCap:          cfg.Inbox.Cap,
		ReplyChance:       cfg.Inbox.ReplyChance,
		MaxRepliesPerTick: cfg.Inbox.MaxRepliesPerTick,
		Seed:              cfg.Sim.Seed,
	}, log)

	src, err := loadScriptSource(paths.ActionsPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	eng := engine.New(st, h, ev, g, ib, src, buildGenerator(cfg.GenAI), engine.Config{
		HoursPerDay:      cfg.Sim.HoursPerDay,
		AutoTickInterval: cfg.Sim.AutoTickInterval(),
		InboxFetchMax:    cfg.Inbox.FetchMax,
	}, log)

	return &runtime{cfg: cfg, db: db, store: st, engine: eng, events: ev}, nil
}

// buildGenerator maps the genai config to a collaborator. An empty provider
// disables generation.
func buildGenerator(cfg config.GenAIConfig) engine.Generator {
	switch cfg.Provider {
	case "anthropic":
		return genai.NewAnthropic(func(o *genai.AnthropicOptions) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
		})
	case "openai":
		return genai.NewOpenAI(func(o *genai.OpenAIOptions) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	default:
		return nil
	}
}
