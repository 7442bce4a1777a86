// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"context"

	metrics "github.com/hashicorp/go-metrics"

	"github.com/marathon-go/appsched/internal/idutil"
)

// StatusUpdate handles one asynchronous task status observation from the
// master. Unlike ResourceOffers, this path may suspend on persistence.
func (e *Engine) StatusUpdate(ctx context.Context, status Status) {
	appID := idutil.AppIDFromTaskID(status.TaskID)

	switch {
	case status.State.Terminal():
		e.handleTerminal(ctx, appID, status)
	case status.State == TaskRunning:
		e.handleRunning(ctx, appID, status)
	case status.State == TaskStaging:
		if !e.tracker.Contains(appID) {
			// Staging update for an unknown app: prevents orphans
			// resurfacing after app deletion.
			e.killUnknown(status.TaskID)
			return
		}
		e.handleOther(ctx, appID, status)
	default:
		e.handleOther(ctx, appID, status)
	}
}

func (e *Engine) handleTerminal(ctx context.Context, appID string, status Status) {
	removed, found, err := e.tracker.Terminated(ctx, appID, status)
	if err != nil {
		e.logger.Warn("failed to remove terminated task", "task_id", status.TaskID, "error", err)
		return
	}
	if found {
		e.bus.Post(StatusUpdateEvent{AppID: appID, TaskID: removed.ID, State: status.State})
	}
	metrics.IncrCounter([]string{"scheduler", "status", "terminal"}, 1)

	if !e.limiter.TryAcquire(appID) {
		e.logger.Debug("rate limiter denied scale on terminal status", "app_id", appID)
		return
	}
	if err := e.ScaleByName(ctx, appID); err != nil {
		e.logger.Warn("scale after terminal status failed", "app_id", appID, "error", err)
	}
}

func (e *Engine) handleRunning(ctx context.Context, appID string, status Status) {
	task, err := e.tracker.Running(ctx, appID, status)
	if err != nil {
		e.logger.Warn("failed to mark task running, killing it", "task_id", status.TaskID, "error", err)
		e.killUnknown(status.TaskID)
		return
	}
	e.bus.Post(StatusUpdateEvent{AppID: appID, TaskID: task.ID, State: TaskRunning})
	metrics.IncrCounter([]string{"scheduler", "status", "running"}, 1)
}

func (e *Engine) handleOther(ctx context.Context, appID string, status Status) {
	_, found, err := e.tracker.StatusUpdate(ctx, appID, status)
	if err != nil {
		e.logger.Warn("failed to record status, killing task", "task_id", status.TaskID, "error", err)
		e.killUnknown(status.TaskID)
		return
	}
	if !found {
		e.killUnknown(status.TaskID)
	}
}

func (e *Engine) killUnknown(taskID string) {
	if err := e.driver.KillTask(taskID); err != nil {
		e.logger.Warn("failed to kill unknown task", "task_id", taskID, "error", err)
	}
	metrics.IncrCounter([]string{"scheduler", "status", "unknown_killed"}, 1)
}
