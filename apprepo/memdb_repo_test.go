// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package apprepo_test

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"

	"github.com/marathon-go/appsched/apprepo"
	"github.com/marathon-go/appsched/internal/ci"
	"github.com/marathon-go/appsched/scheduler"
)

func TestMemDBAppRepository_StoreAndCurrentVersion(t *testing.T) {
	ci.Parallel(t)
	repo, err := apprepo.New(hclog.NewNullLogger())
	must.NoError(t, err)

	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "x", Version: 1, Instances: 1}))
	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "x", Version: 2, Instances: 2}))

	app, found, err := repo.CurrentVersion(context.Background(), "x")
	must.NoError(t, err)
	must.True(t, found)
	must.Eq(t, int64(2), app.Version)
	must.Eq(t, 2, app.Instances)
}

func TestMemDBAppRepository_CurrentVersion_UnknownNotFound(t *testing.T) {
	ci.Parallel(t)
	repo, err := apprepo.New(hclog.NewNullLogger())
	must.NoError(t, err)

	_, found, err := repo.CurrentVersion(context.Background(), "does-not-exist")
	must.NoError(t, err)
	must.False(t, found)
}

func TestMemDBAppRepository_Expunge_RemovesAllVersions(t *testing.T) {
	ci.Parallel(t)
	repo, err := apprepo.New(hclog.NewNullLogger())
	must.NoError(t, err)

	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "x", Version: 1}))
	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "x", Version: 2}))

	must.NoError(t, repo.Expunge(context.Background(), "x"))

	_, found, err := repo.CurrentVersion(context.Background(), "x")
	must.NoError(t, err)
	must.False(t, found)
}

func TestMemDBAppRepository_Expunge_NoVersionsIsNoOp(t *testing.T) {
	ci.Parallel(t)
	repo, err := apprepo.New(hclog.NewNullLogger())
	must.NoError(t, err)

	must.NoError(t, repo.Expunge(context.Background(), "does-not-exist"))
}

func TestMemDBAppRepository_AppIDs_Dedups(t *testing.T) {
	ci.Parallel(t)
	repo, err := apprepo.New(hclog.NewNullLogger())
	must.NoError(t, err)

	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "x", Version: 1}))
	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "x", Version: 2}))
	must.NoError(t, repo.Store(context.Background(), &scheduler.App{ID: "y", Version: 1}))

	ids, err := repo.AppIDs(context.Background())
	must.NoError(t, err)
	must.Eq(t, 2, len(ids))
}

// TestMemDBAppRepository_Store_CopiesOnWrite confirms a caller mutation to
// the App after Store does not leak into the stored record.
func TestMemDBAppRepository_Store_CopiesOnWrite(t *testing.T) {
	ci.Parallel(t)
	repo, err := apprepo.New(hclog.NewNullLogger())
	must.NoError(t, err)

	app := &scheduler.App{ID: "x", Version: 1, Instances: 1}
	must.NoError(t, repo.Store(context.Background(), app))
	app.Instances = 99

	stored, found, err := repo.CurrentVersion(context.Background(), "x")
	must.NoError(t, err)
	must.True(t, found)
	must.Eq(t, 1, stored.Instances)
}
