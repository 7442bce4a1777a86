// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"context"

	metrics "github.com/hashicorp/go-metrics"
)

// Scale synchronises current + queued launch intents for app toward its
// declared instance count. Serialized per app.id so concurrent
// offer and status paths never race on the count comparisons for the same
// app.
func (e *Engine) Scale(app *App) {
	mu := e.appMutex(app.ID)
	mu.Lock()
	defer mu.Unlock()

	current := e.tracker.Count(app.ID)
	queued := e.queue.Count(app.ID)
	target := app.Instances

	switch {
	case target > current:
		toQueue := target - (current + queued)
		if toQueue <= 0 {
			e.logger.Debug("scale: already enough launch intents in flight", "app_id", app.ID, "current", current, "queued", queued, "target", target)
			return
		}
		intents := make([]*App, toQueue)
		for i := range intents {
			intents[i] = app
		}
		e.queue.AddAll(intents)
		metrics.IncrCounter([]string{"scheduler", "scale", "up"}, float32(toQueue))

	case target < current:
		e.queue.Purge(app.ID)
		toKill, err := e.tracker.Take(app.ID, current-target)
		if err != nil {
			e.logger.Warn("scale: failed to select tasks to kill", "app_id", app.ID, "error", err)
			return
		}
		for _, task := range toKill {
			if err := e.driver.KillTask(task.ID); err != nil {
				e.logger.Warn("scale: failed to kill task", "app_id", app.ID, "task_id", task.ID, "error", err)
			}
		}
		metrics.IncrCounter([]string{"scheduler", "scale", "down"}, float32(len(toKill)))

	default:
		// Equal: no-op.
	}
}

// ScaleByName resolves appName's current version from AppRepository and
// delegates to Scale. If no such app exists, it logs and returns.
func (e *Engine) ScaleByName(ctx context.Context, appName string) error {
	app, found, err := e.apps.CurrentVersion(ctx, appName)
	if err != nil {
		return err
	}
	if !found {
		e.logger.Debug("scale: no such app", "app_id", appName)
		return nil
	}
	e.Scale(app)
	return nil
}
