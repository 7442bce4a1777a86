// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import "context"

// StartApp persists a new app definition and begins scaling it toward its
// declared instance count. Calling it for an id that already has a
// current version is a programming error, not a recoverable failure.
func (e *Engine) StartApp(ctx context.Context, app *App) error {
	_, found, err := e.apps.CurrentVersion(ctx, app.ID)
	if err != nil {
		return err
	}
	if found {
		return &AppAlreadyExistsError{AppID: app.ID}
	}

	if err := e.apps.Store(ctx, app); err != nil {
		return err
	}
	e.limiter.SetPermits(app.ID, app.TaskRateLimit)
	e.Scale(app)
	e.health.Reconcile(app)
	return nil
}

// StopApp expunges every version of app.id, kills every task the tracker
// lists for it, purges the queue, removes health checks, and tears down the
// tracker's app slot. Queue purge happens before kill, so a task that is
// being killed can't be immediately replaced by a queued launch.
func (e *Engine) StopApp(ctx context.Context, app *App) error {
	if err := e.apps.Expunge(ctx, app.ID); err != nil {
		return err
	}

	e.health.Remove(app.ID)
	e.queue.Purge(app.ID)
	for _, task := range e.tracker.Get(app.ID) {
		if err := e.driver.KillTask(task.ID); err != nil {
			e.logger.Warn("stopApp: failed to kill task", "app_id", app.ID, "task_id", task.ID, "error", err)
		}
	}
	e.tracker.ShutDown(app.ID)
	return nil
}

// AppDelta describes the fields an UpdateApp call may change. A nil field
// is left untouched; pointers let a caller set Instances to 0 or
// TaskRateLimit to 0 explicitly rather than that meaning "don't change it".
type AppDelta struct {
	Instances     *int
	TaskRateLimit *float64
	Params        map[string]string
}

// UpdateApp fetches the current version of id, applies delta to produce a
// new version, reconciles health checks, persists it, and invokes the
// update hook to propagate parameter changes to running instances.
func (e *Engine) UpdateApp(ctx context.Context, id string, delta AppDelta, newVersion int64) (*App, error) {
	current, found, err := e.apps.CurrentVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &UnknownAppError{AppID: id}
	}

	updated := current.Copy()
	updated.Version = newVersion
	if delta.Instances != nil {
		updated.Instances = *delta.Instances
	}
	if delta.TaskRateLimit != nil {
		updated.TaskRateLimit = *delta.TaskRateLimit
	}
	if delta.Params != nil {
		updated.Params = delta.Params
	}

	e.health.Reconcile(updated)

	if err := e.apps.Store(ctx, updated); err != nil {
		return nil, err
	}

	if updated.TaskRateLimit != current.TaskRateLimit {
		e.limiter.SetPermits(updated.ID, updated.TaskRateLimit)
	}

	if err := e.update.Update(ctx, current, updated); err != nil {
		return nil, err
	}

	e.Scale(updated)
	return updated, nil
}
