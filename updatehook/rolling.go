// Package updatehook provides the canonical scheduler.UpdateHook
// implementation: rolling kill-and-relaunch with bounded parallelism, run as
// an explicit, idempotent pass rather than left as a stub.
package updatehook

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/marathon-go/appsched/scheduler"
)

// RollingUpdateHook kills one batch of stale-version task instances at a
// time, waiting for the killed tasks to leave the tracker (their terminal
// status has arrived) before killing the next batch. It does not wait for
// replacement tasks to be launched.
type RollingUpdateHook struct {
	tracker scheduler.TaskTracker
	driver  scheduler.Driver
	logger  hclog.Logger

	// MaxParallel bounds how many instances are killed at once. Default 1.
	MaxParallel int
	// PollInterval controls how often staleness is rechecked while waiting
	// for a batch to drain.
	PollInterval time.Duration
	// Timeout bounds how long Update waits for one batch to drain. A batch
	// that does not drain in time counts as a stall and the stale tasks are
	// killed again; after maxStalledBatches consecutive stalls Update
	// returns an error.
	Timeout time.Duration
}

// New constructs a RollingUpdateHook with Marathon-like defaults: one
// instance replaced at a time.
func New(tracker scheduler.TaskTracker, driver scheduler.Driver, logger hclog.Logger) *RollingUpdateHook {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RollingUpdateHook{
		tracker:      tracker,
		driver:       driver,
		logger:       logger.Named("updatehook"),
		MaxParallel:  1,
		PollInterval: 250 * time.Millisecond,
		Timeout:      30 * time.Second,
	}
}

// maxStalledBatches bounds how many consecutive batches may fail to drain
// before Update gives up; without this bound a driver that never produces
// terminal status for killed tasks would loop forever.
const maxStalledBatches = 3

// Update implements scheduler.UpdateHook. It is idempotent: if every
// tracked task for updated.ID already carries updated.Version, it returns
// immediately.
func (h *RollingUpdateHook) Update(ctx context.Context, previous, updated *scheduler.App) error {
	if previous.Version == updated.Version {
		return nil
	}

	maxParallel := h.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}

	stalled := 0
	for {
		stale := staleTasks(h.tracker.Get(updated.ID), updated.Version)
		if len(stale) == 0 {
			return nil
		}

		batch := stale
		if len(batch) > maxParallel {
			batch = batch[:maxParallel]
		}
		for _, task := range batch {
			if err := h.driver.KillTask(task.ID); err != nil {
				h.logger.Warn("rolling update: failed to kill stale task", "app_id", updated.ID, "task_id", task.ID, "error", err)
			}
		}

		if h.waitForDrain(ctx, updated.ID, updated.Version, len(stale)-len(batch)) {
			stalled = 0
			continue
		}

		stalled++
		h.logger.Warn("rolling update: timed out waiting for batch to drain", "app_id", updated.ID, "consecutive_stalls", stalled)
		if err := ctx.Err(); err != nil {
			return err
		}
		if stalled >= maxStalledBatches {
			return fmt.Errorf("rolling update: app %q did not drain stale tasks after %d attempts", updated.ID, stalled)
		}
	}
}

// waitForDrain blocks until the number of stale tasks drops to target or
// below, or until ctx is done or h.Timeout elapses, whichever first.
func (h *RollingUpdateHook) waitForDrain(ctx context.Context, appID string, version int64, target int) bool {
	deadline := time.Now().Add(h.Timeout)
	ticker := time.NewTicker(h.PollInterval)
	defer ticker.Stop()

	for {
		if len(staleTasks(h.tracker.Get(appID), version)) <= target {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func staleTasks(tasks []*scheduler.Task, currentVersion int64) []*scheduler.Task {
	var stale []*scheduler.Task
	for _, t := range tasks {
		if t.AppVersion != currentVersion {
			stale = append(stale, t)
		}
	}
	return stale
}
