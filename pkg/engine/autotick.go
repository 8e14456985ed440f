package engine

import (
	"context"
	"time"
)

// StartAutoTick enables the durable auto_tick flag and launches the
// background loop. The loop is fail-stop: the first tick error disables
// auto_tick and exits rather than retrying into a broken run. Auto-pause is
// checked before every tick when enabled.
func (e *Engine) StartAutoTick(ctx context.Context) error {
	if err := e.store.EnableAutoTick(ctx); err != nil {
		return err
	}

	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.loopCancel != nil {
		return nil // already looping
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.loopCancel = cancel
	e.loopDone = done

	go e.runLoop(loopCtx, done)
	e.log.Info("auto-tick loop started", "interval", e.cfg.AutoTickInterval.String())
	return nil
}

// StopAutoTick cancels the loop, waits for the in-flight tick to finish,
// and clears the durable flag. Safe to call when no loop is running.
func (e *Engine) StopAutoTick(ctx context.Context) {
	e.loopMu.Lock()
	cancel, done := e.loopCancel, e.loopDone
	e.loopCancel, e.loopDone = nil, nil
	e.loopMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if err := e.store.DisableAutoTick(ctx); err != nil {
		e.log.Error("clearing auto_tick flag failed", "error", err)
	}
}

func (e *Engine) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.cfg.AutoTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := e.AutoPauseStatus(ctx)
		if err != nil {
			e.failStop(err)
			return
		}
		if status.ShouldPause {
			e.log.Info("auto-pause engaged", "reason", status.Reason)
			e.detachAndDisable()
			return
		}

		if _, err := e.advance(ctx, 1, "auto"); err != nil {
			e.failStop(err)
			return
		}
	}
}

func (e *Engine) failStop(err error) {
	e.log.Error("auto-tick loop stopping on error", "error", err)
	e.detachAndDisable()
}

// detachAndDisable clears the loop handle from inside the loop goroutine
// and flips the durable flag off, so a restart does not resume ticking.
// The loop context may already be cancelled here, so the flag write uses a
// fresh one.
func (e *Engine) detachAndDisable() {
	e.loopMu.Lock()
	if e.loopCancel != nil {
		e.loopCancel()
		e.loopCancel, e.loopDone = nil, nil
	}
	e.loopMu.Unlock()

	flagCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if derr := e.store.DisableAutoTick(flagCtx); derr != nil {
		e.log.Error("clearing auto_tick flag failed", "error", derr)
	}
}
