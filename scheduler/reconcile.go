// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"context"

	"github.com/hashicorp/go-set/v3"
)

// ReconcileAndScaleTasks re-synchronises the scheduler's view of task state
// with AppRepository and the master. It is intended to run some
// time after (re-)registration, with enough delay for the master to replay
// task state; the enclosing service is responsible for the delay, not this
// method. Idempotent: running it twice in succession produces the same
// outcome as running it once, modulo new external events.
func (e *Engine) ReconcileAndScaleTasks(ctx context.Context) error {
	appIDs, err := e.apps.AppIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range appIDs {
		if err := e.ScaleByName(ctx, id); err != nil {
			e.logger.Warn("reconcile: scale failed", "app_id", id, "error", err)
		}
	}

	tracked := e.tracker.List()

	var statuses []Status
	for _, tasks := range tracked {
		for _, task := range tasks {
			if len(task.History) == 0 {
				continue
			}
			last := task.History[len(task.History)-1]
			statuses = append(statuses, Status{TaskID: task.ID, State: last.State, Message: last.Message})
		}
	}
	if err := e.driver.ReconcileTasks(statuses); err != nil {
		e.logger.Warn("reconcile: driver reconcileTasks failed", "error", err)
	}

	known := set.From(appIDs)
	trackedIDs := make([]string, 0, len(tracked))
	for id := range tracked {
		trackedIDs = append(trackedIDs, id)
	}
	orphans := set.From(trackedIDs).Difference(known)

	orphans.ForEach(func(appID string) bool {
		for _, task := range tracked[appID] {
			if err := e.driver.KillTask(task.ID); err != nil {
				e.logger.Warn("reconcile: failed to kill orphan task", "app_id", appID, "task_id", task.ID, "error", err)
			}
		}
		e.tracker.ShutDown(appID)
		return true
	})

	return nil
}
