// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"context"
	"time"
)

// Driver is the outbound handle to the cluster master. Calls are
// fire-and-forget: acknowledgement, if any, arrives as a later callback.
type Driver interface {
	LaunchTasks(offerID string, tasks []TaskDescriptor) error
	DeclineOffer(offerID string) error
	KillTask(taskID string) error
	ReconcileTasks(statuses []Status) error
}

// TaskTracker is the authoritative in-memory index of tasks per app. It
// persists each task record it is given and must be safe for concurrent use
// from the offer, status, and admin paths.
type TaskTracker interface {
	CheckStagedTasks(timeout time.Duration) ([]*Task, error)
	Created(ctx context.Context, appID string, task *Task) error
	Running(ctx context.Context, appID string, status Status) (*Task, error)
	Terminated(ctx context.Context, appID string, status Status) (*Task, bool, error)
	StatusUpdate(ctx context.Context, appID string, status Status) (*Task, bool, error)
	Contains(appID string) bool
	Count(appID string) int
	Get(appID string) []*Task
	List() map[string][]*Task
	Take(appID string, n int) ([]*Task, error)
	ShutDown(appID string)
}

// TaskQueue is a multiset of apps awaiting placement.
type TaskQueue interface {
	Add(app *App)
	AddAll(apps []*App)
	RemoveAll() []*App
	Count(appID string) int
	Purge(appID string)
}

// AppRepository is the versioned durable store of app definitions.
type AppRepository interface {
	Store(ctx context.Context, app *App) error
	CurrentVersion(ctx context.Context, id string) (*App, bool, error)
	Expunge(ctx context.Context, id string) error
	AppIDs(ctx context.Context) ([]string, error)
}

// TaskBuilder either constructs a concrete task descriptor and reserves its
// ports, or reports no match. Its internal matching policy is out of scope;
// only this contract is.
type TaskBuilder interface {
	Build(app *App, offer *Offer) (*TaskDescriptor, bool, error)
}

// RateLimiter gates how often scale events may fire on terminal status, per
// app.
type RateLimiter interface {
	SetPermits(appID string, ratePerSec float64)
	TryAcquire(appID string) bool
}

// Event is the interface implemented by every value posted to the EventBus.
type Event interface {
	isEvent()
}

// EventBus fans lifecycle events out to observers. Publishing is
// best-effort: a failure to deliver must never block the caller's state
// change.
type EventBus interface {
	Post(event Event)
}

// SchedulerCallbacks is the narrow hook the engine calls into the enclosing
// service for concerns that are not the engine's to own, constructor-
// injected rather than resolved from a global container.
type SchedulerCallbacks interface {
	Disconnected()
}

// HealthCheckHook lets the engine ask the enclosing service to reconcile or
// remove health checks for an app. Probing itself is out of scope.
type HealthCheckHook interface {
	Reconcile(app *App)
	Remove(appID string)
}

// UpdateHook propagates an app's updated parameters to its already-running
// instances. Implementations must be idempotent.
type UpdateHook interface {
	Update(ctx context.Context, previous, updated *App) error
}
