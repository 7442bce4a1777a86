// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package updatehook_test

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"

	"github.com/marathon-go/appsched/driver/fake"
	"github.com/marathon-go/appsched/internal/ci"
	"github.com/marathon-go/appsched/scheduler"
	"github.com/marathon-go/appsched/tracker"
	"github.com/marathon-go/appsched/updatehook"
)

func TestRollingUpdateHook_SameVersionIsNoOp(t *testing.T) {
	ci.Parallel(t)
	trk, err := tracker.New(hclog.NewNullLogger())
	must.NoError(t, err)
	drv := fake.New()
	hook := updatehook.New(trk, drv, hclog.NewNullLogger())

	app := &scheduler.App{ID: "x", Version: 1}
	must.NoError(t, hook.Update(context.Background(), app, app))
	must.Eq(t, 0, drv.KillCount())
}

func TestRollingUpdateHook_KillsStaleVersionTasks(t *testing.T) {
	ci.Parallel(t)
	trk, err := tracker.New(hclog.NewNullLogger())
	must.NoError(t, err)
	drv := fake.New()
	hook := updatehook.New(trk, drv, hclog.NewNullLogger())
	hook.MaxParallel = 10
	hook.PollInterval = time.Millisecond
	hook.Timeout = 20 * time.Millisecond

	must.NoError(t, trk.Created(context.Background(), "x", &scheduler.Task{ID: "x.task-a", AppVersion: 1}))
	must.NoError(t, trk.Created(context.Background(), "x", &scheduler.Task{ID: "x.task-b", AppVersion: 1}))

	previous := &scheduler.App{ID: "x", Version: 1}
	updated := &scheduler.App{ID: "x", Version: 2}

	// In production a killed task drains once its terminal status arrives
	// through Engine.StatusUpdate; simulate that here so waitForDrain sees
	// progress instead of timing out.
	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _, _ = trk.Terminated(context.Background(), "x", scheduler.Status{TaskID: "x.task-a", State: scheduler.TaskFinished})
		_, _, _ = trk.Terminated(context.Background(), "x", scheduler.Status{TaskID: "x.task-b", State: scheduler.TaskFinished})
	}()

	must.NoError(t, hook.Update(context.Background(), previous, updated))

	must.Eq(t, 2, drv.KillCount())
}

// TestRollingUpdateHook_OnlyKillsStaleVersions confirms tasks already on
// the new version are left alone.
func TestRollingUpdateHook_OnlyKillsStaleVersions(t *testing.T) {
	ci.Parallel(t)
	trk, err := tracker.New(hclog.NewNullLogger())
	must.NoError(t, err)
	drv := fake.New()
	hook := updatehook.New(trk, drv, hclog.NewNullLogger())
	hook.MaxParallel = 10
	hook.PollInterval = time.Millisecond
	hook.Timeout = 20 * time.Millisecond

	must.NoError(t, trk.Created(context.Background(), "x", &scheduler.Task{ID: "x.task-stale", AppVersion: 1}))
	must.NoError(t, trk.Created(context.Background(), "x", &scheduler.Task{ID: "x.task-fresh", AppVersion: 2}))

	previous := &scheduler.App{ID: "x", Version: 1}
	updated := &scheduler.App{ID: "x", Version: 2}

	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _, _ = trk.Terminated(context.Background(), "x", scheduler.Status{TaskID: "x.task-stale", State: scheduler.TaskFinished})
	}()

	must.NoError(t, hook.Update(context.Background(), previous, updated))

	must.Eq(t, 1, drv.KillCount())
	must.Eq(t, []string{"x.task-stale"}, drv.KilledIDs())
}

// TestRollingUpdateHook_GivesUpAfterRepeatedStalls covers a driver that
// never manages to drain a killed task: Update must eventually give up
// rather than loop forever.
func TestRollingUpdateHook_GivesUpAfterRepeatedStalls(t *testing.T) {
	ci.Parallel(t)
	trk, err := tracker.New(hclog.NewNullLogger())
	must.NoError(t, err)
	drv := fake.New()
	hook := updatehook.New(trk, drv, hclog.NewNullLogger())
	hook.PollInterval = time.Millisecond
	hook.Timeout = time.Millisecond

	must.NoError(t, trk.Created(context.Background(), "x", &scheduler.Task{ID: "x.task-a", AppVersion: 1}))

	previous := &scheduler.App{ID: "x", Version: 1}
	updated := &scheduler.App{ID: "x", Version: 2}

	err = hook.Update(context.Background(), previous, updated)
	must.Error(t, err)
}
