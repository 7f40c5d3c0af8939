package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// Autosaver: scheduled saves of a dirty session
// ─────────────────────────────────────────────────────────────

const autosaveKey = "autosave"

// Autosaver saves a session on a cron schedule. A run that is still busy
// when the next tick fires causes that tick to be skipped.
type Autosaver struct {
	session  *Session
	schedule string
	log      *zap.Logger

	guard runningGuard
	mu    sync.Mutex
	sched *cron.Cron
}

// NewAutosaver accepts standard five-field cron specs and descriptors such
// as "@every 30s".
func NewAutosaver(s *Session, schedule string, log *zap.Logger) *Autosaver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Autosaver{session: s, schedule: schedule, log: log.Named("autosave")}
}

// Start schedules the saves. It is an error to start twice.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sched != nil {
		return fmt.Errorf("autosave already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(a.schedule, func() {
		if _, err := a.RunOnce(ctx); err != nil {
			a.log.Warn("autosave failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("autosave schedule %q: %w", a.schedule, err)
	}
	c.Start()
	a.sched = c
	a.log.Info("autosave scheduled", zap.String("schedule", a.schedule))
	return nil
}

// RunOnce saves now if the session is dirty. It reports whether it saved.
func (a *Autosaver) RunOnce(ctx context.Context) (bool, error) {
	if !a.guard.TryLock(autosaveKey) {
		a.log.Debug("autosave still running, tick skipped")
		return false, nil
	}
	defer a.guard.Unlock(autosaveKey)

	saved, err := a.session.Autosave(ctx)
	if saved {
		a.log.Debug("session autosaved", zap.String("project", a.session.Name()))
	}
	return saved, err
}

// Stop cancels the schedule and waits for a running save to finish or ctx
// to end.
func (a *Autosaver) Stop(ctx context.Context) {
	a.mu.Lock()
	c := a.sched
	a.sched = nil
	a.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	a.guard.WaitAll(ctx)
}
