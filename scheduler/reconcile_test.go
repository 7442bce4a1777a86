// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler_test

import (
	"context"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/marathon-go/appsched/internal/ci"
	"github.com/marathon-go/appsched/scheduler"
)

func TestEngine_Reconcile_ScalesKnownApps(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	app := testApp("x", 2)
	must.NoError(t, h.Apps.Store(context.Background(), app))

	must.NoError(t, h.Engine.ReconcileAndScaleTasks(context.Background()))

	must.Eq(t, 2, h.Queue.Count("x"))
}

func TestEngine_Reconcile_ReportsLastStatusPerTask(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	task := &scheduler.Task{ID: "x.task-a"}
	must.NoError(t, h.Tracker.Created(context.Background(), "x", task))
	_, err := h.Tracker.Running(context.Background(), "x", scheduler.Status{TaskID: task.ID, State: scheduler.TaskRunning})
	must.NoError(t, err)

	must.NoError(t, h.Engine.ReconcileAndScaleTasks(context.Background()))

	must.Eq(t, 1, len(h.Driver.Reconciles))
	must.Eq(t, 1, len(h.Driver.Reconciles[0]))
	must.Eq(t, "x.task-a", h.Driver.Reconciles[0][0].TaskID)
	must.Eq(t, scheduler.TaskRunning, h.Driver.Reconciles[0][0].State)
}

// TestEngine_Reconcile_KillsOrphanTasks covers an app the tracker still
// holds tasks for, but that no longer has a definition in AppRepository:
// its tasks are killed and its tracker slot torn down.
func TestEngine_Reconcile_KillsOrphanTasks(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	task := &scheduler.Task{ID: "orphan.task-a"}
	must.NoError(t, h.Tracker.Created(context.Background(), "orphan", task))

	must.NoError(t, h.Engine.ReconcileAndScaleTasks(context.Background()))

	must.Eq(t, 1, h.Driver.KillCount())
	must.Eq(t, []string{"orphan.task-a"}, h.Driver.KilledIDs())
	must.Eq(t, 0, h.Tracker.Count("orphan"))
}

// TestEngine_Reconcile_IsIdempotent runs reconcile twice in a row and
// expects the second pass to be a no-op on top of the first.
func TestEngine_Reconcile_IsIdempotent(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	app := testApp("x", 1)
	must.NoError(t, h.Apps.Store(context.Background(), app))

	must.NoError(t, h.Engine.ReconcileAndScaleTasks(context.Background()))
	must.Eq(t, 1, h.Queue.Count("x"))

	must.NoError(t, h.Engine.ReconcileAndScaleTasks(context.Background()))
	must.Eq(t, 1, h.Queue.Count("x"))
}
