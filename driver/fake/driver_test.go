// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package fake_test

import (
	"errors"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/marathon-go/appsched/driver/fake"
	"github.com/marathon-go/appsched/internal/ci"
	"github.com/marathon-go/appsched/scheduler"
)

func TestDriver_RecordsCalls(t *testing.T) {
	ci.Parallel(t)
	d := fake.New()

	must.NoError(t, d.LaunchTasks("offer-1", []scheduler.TaskDescriptor{{TaskID: "x.task-a"}}))
	must.NoError(t, d.DeclineOffer("offer-2"))
	must.NoError(t, d.KillTask("x.task-a"))
	must.NoError(t, d.ReconcileTasks([]scheduler.Status{{TaskID: "x.task-a", State: scheduler.TaskRunning}}))

	must.Eq(t, 1, d.LaunchCount())
	must.Eq(t, 1, d.DeclineCount())
	must.Eq(t, 1, d.KillCount())
	must.Eq(t, []string{"x.task-a"}, d.KilledIDs())
	must.Eq(t, 1, len(d.Reconciles))
}

func TestDriver_InjectedErrorsAreReturned(t *testing.T) {
	ci.Parallel(t)
	d := fake.New()
	boom := errors.New("boom")
	d.LaunchErr = boom
	d.DeclineErr = boom
	d.KillErr = boom
	d.ReconcileErr = boom

	must.ErrorIs(t, d.LaunchTasks("offer-1", nil), boom)
	must.ErrorIs(t, d.DeclineOffer("offer-1"), boom)
	must.ErrorIs(t, d.KillTask("x.task-a"), boom)
	must.ErrorIs(t, d.ReconcileTasks(nil), boom)
}
