// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"

	"github.com/marathon-go/appsched/apprepo"
	"github.com/marathon-go/appsched/builder"
	"github.com/marathon-go/appsched/driver/fake"
	"github.com/marathon-go/appsched/eventbus"
	"github.com/marathon-go/appsched/healthcheck"
	"github.com/marathon-go/appsched/internal/ci"
	"github.com/marathon-go/appsched/internal/idutil"
	"github.com/marathon-go/appsched/queue"
	"github.com/marathon-go/appsched/ratelimit"
	"github.com/marathon-go/appsched/scheduler"
	"github.com/marathon-go/appsched/tracker"
)

// fakeUpdateHook records every Update call it receives.
type fakeUpdateHook struct {
	calls []struct{ previous, updated *scheduler.App }
	err   error
}

func (h *fakeUpdateHook) Update(ctx context.Context, previous, updated *scheduler.App) error {
	h.calls = append(h.calls, struct{ previous, updated *scheduler.App }{previous, updated})
	return h.err
}

func TestEngine_StartApp_PersistsAndScales(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	app := testApp("x", 2)
	must.NoError(t, h.Engine.StartApp(context.Background(), app))

	stored, found, err := h.Apps.CurrentVersion(context.Background(), "x")
	must.NoError(t, err)
	must.True(t, found)
	must.Eq(t, int64(1), stored.Version)
	must.Eq(t, 2, h.Queue.Count("x"))
}

func TestEngine_StartApp_AlreadyExists(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	app := testApp("x", 2)
	must.NoError(t, h.Engine.StartApp(context.Background(), app))

	err := h.Engine.StartApp(context.Background(), app)
	must.Error(t, err)
	var alreadyExists *scheduler.AppAlreadyExistsError
	must.True(t, errors.As(err, &alreadyExists))
}

func TestEngine_StopApp_KillsTasksAndTearsDownTracker(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	app := testApp("x", 1)
	must.NoError(t, h.Engine.StartApp(context.Background(), app))
	must.NoError(t, h.Tracker.Created(context.Background(), "x", &scheduler.Task{ID: "x.task-a"}))

	must.NoError(t, h.Engine.StopApp(context.Background(), app))

	must.Eq(t, 1, h.Driver.KillCount())
	must.Eq(t, 0, h.Tracker.Count("x"))
	must.Eq(t, 0, h.Queue.Count("x"))

	_, found, err := h.Apps.CurrentVersion(context.Background(), "x")
	must.NoError(t, err)
	must.False(t, found)
}

func TestEngine_UpdateApp_UnknownAppErrors(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	_, err := h.Engine.UpdateApp(context.Background(), "does-not-exist", scheduler.AppDelta{}, 2)
	must.Error(t, err)
	var unknown *scheduler.UnknownAppError
	must.True(t, errors.As(err, &unknown))
}

func TestEngine_UpdateApp_AppliesDeltaAndRescales(t *testing.T) {
	ci.Parallel(t)
	h := newHarness(t)

	app := testApp("x", 1)
	must.NoError(t, h.Engine.StartApp(context.Background(), app))
	h.Queue.RemoveAll() // clear the startApp scale-up intent for a clean read

	newInstances := 3
	updated, err := h.Engine.UpdateApp(context.Background(), "x", scheduler.AppDelta{Instances: &newInstances}, 2)
	must.NoError(t, err)
	must.Eq(t, int64(2), updated.Version)
	must.Eq(t, 3, updated.Instances)
	must.Eq(t, 3, h.Queue.Count("x"))
}

func TestEngine_UpdateApp_InvokesHealthAndUpdateHooks(t *testing.T) {
	ci.Parallel(t)

	logger := hclog.NewNullLogger()
	trk, _ := tracker.New(logger)
	repo, _ := apprepo.New(logger)
	drv := fake.New()
	health := healthcheck.New()
	hook := &fakeUpdateHook{}

	engine := scheduler.New(logger, scheduler.DefaultConfig(), drv, trk, queue.New(logger), repo, builder.New(),
		ratelimit.New(), eventbus.New(logger), idutil.NewMemoryStore(),
		scheduler.WithHealthCheckHook(health), scheduler.WithUpdateHook(hook),
	)

	app := testApp("x", 1)
	must.NoError(t, engine.StartApp(context.Background(), app))

	newLimit := 5.0
	_, err := engine.UpdateApp(context.Background(), "x", scheduler.AppDelta{TaskRateLimit: &newLimit}, 2)
	must.NoError(t, err)

	must.Eq(t, []string{"x", "x"}, health.Reconciled()) // once on start, once on update
	must.Eq(t, 1, len(hook.calls))
	must.Eq(t, int64(1), hook.calls[0].previous.Version)
	must.Eq(t, int64(2), hook.calls[0].updated.Version)
}
