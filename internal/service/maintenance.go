package service

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"blockgrid/internal/logging"
)

// ─────────────────────────────────────────────────────────────
// Maintenance: scheduled housekeeping
// ─────────────────────────────────────────────────────────────

const taskPruneUndo = "prune-undo"

// UndoPruner trims undo history. *storage.UndoStore implements it.
type UndoPruner interface {
	PruneAll(maxNodes int) (int, error)
}

// Maintenance runs housekeeping tasks on a cron schedule. A task never
// overlaps with itself: a tick that fires while the previous run is still
// going is skipped.
type Maintenance struct {
	undo     UndoPruner
	maxNodes int
	emitter  EventEmitter
	logger   *log.Logger

	guard runningJobsGuard
	sched *cron.Cron
}

func NewMaintenance(undo UndoPruner, maxNodes int, emitter EventEmitter) *Maintenance {
	return &Maintenance{undo: undo, maxNodes: maxNodes, emitter: emitter, logger: logging.New("maintenance")}
}

// Start schedules undo pruning on a cron expression such as
// "@every 10m".
func (m *Maintenance) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := m.PruneUndo(ctx); err != nil {
			m.logger.Warn("undo prune failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %s: invalid expression %q: %w", taskPruneUndo, schedule, err)
	}
	c.Start()
	m.sched = c
	m.logger.Info("scheduled", "task", taskPruneUndo, "schedule", schedule)
	return nil
}

// PruneUndo trims every page's history to the configured size now. It
// returns ok=false without doing anything when a prune is already running.
func (m *Maintenance) PruneUndo(ctx context.Context) (ok bool, err error) {
	if !m.guard.TryLock(taskPruneUndo) {
		m.logger.Debug("skipped, still running", "task", taskPruneUndo)
		return false, nil
	}
	defer m.guard.Unlock(taskPruneUndo)

	n, err := m.undo.PruneAll(m.maxNodes)
	if err != nil {
		return true, fmt.Errorf("%s: %w", taskPruneUndo, err)
	}
	if n > 0 {
		m.logger.Info("pruned undo history", "removed", n)
		if m.emitter != nil {
			m.emitter.Emit(ctx, "maintenance:undo-pruned", n)
		}
	}
	return true, nil
}

// Stop halts the schedule and waits for running tasks or ctx.
func (m *Maintenance) Stop(ctx context.Context) {
	if m.sched != nil {
		<-m.sched.Stop().Done()
		m.sched = nil
	}
	m.guard.WaitAll(ctx)
}
