package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"tock/pkg/engine"
	"tock/pkg/protocol"
)

// actionScript is the YAML file of pre-planned actions. Each entry names the
// sending worker and the tick it is due; the engine pulls entries as the
// clock reaches them.
type actionScript struct {
	Actions []protocol.ScheduledAction `yaml:"actions"`
}

// scriptSource feeds scripted actions to the engine. A worker with no entry
// for a tick simply does nothing that tick.
type scriptSource struct {
	byWorker map[string][]protocol.ScheduledAction
}

var _ engine.ActionSource = (*scriptSource)(nil)

// loadScriptSource reads the actions file. A missing file yields an empty
// source: the simulation still ticks, workers just stay quiet.
func loadScriptSource(path string) (*scriptSource, error) {
	src := &scriptSource{byWorker: make(map[string][]protocol.ScheduledAction)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return src, nil
	}
	if err != nil {
		return nil, err
	}
	var script actionScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, err
	}
	for _, a := range script.Actions {
		src.byWorker[a.Sender] = append(src.byWorker[a.Sender], a)
	}
	return src, nil
}

// ActionsFor returns the worker's scripted actions due at the request tick.
// When the balancer discourages the worker, only replies go out.
func (s *scriptSource) ActionsFor(ctx context.Context, req engine.ActionRequest) ([]protocol.ScheduledAction, error) {
	var due []protocol.ScheduledAction
	for _, a := range s.byWorker[req.Worker.ID] {
		if a.Tick != req.Tick {
			continue
		}
		if req.Discouraged && a.ReplyToEmailID == "" {
			continue
		}
		due = append(due, a)
	}
	return due, nil
}
