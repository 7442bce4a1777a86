// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

// Package scheduler is the core scheduler engine: it consumes resource
// offers from an external cluster master, matches queued apps to offers and
// launches tasks, ingests asynchronous task status updates, reconciles
// running tasks against declared apps, and scales each app toward its
// declared instance count.
package scheduler

import (
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/marathon-go/appsched/internal/idutil"
)

// Config is the narrow set of options the core recognises.
type Config struct {
	ZKFutureTimeout   time.Duration
	DefaultWait       time.Duration
	StagedTaskTimeout time.Duration
	SuicideJitter     time.Duration
}

// DefaultConfig returns the engine's default tunables.
func DefaultConfig() Config {
	return Config{
		ZKFutureTimeout:   5 * time.Second,
		DefaultWait:       3 * time.Second,
		StagedTaskTimeout: 60 * time.Second,
		SuicideJitter:     0,
	}
}

// Engine is the scheduler core. It is the callback handler for the cluster
// master and the target of the administrative API.
type Engine struct {
	logger hclog.Logger
	config Config

	driver    Driver
	tracker   TaskTracker
	queue     TaskQueue
	apps      AppRepository
	builder   TaskBuilder
	limiter   RateLimiter
	bus       EventBus
	callbacks SchedulerCallbacks
	health    HealthCheckHook
	update    UpdateHook
	idStore   idutil.Store

	appLocks sync.Map // appID -> *sync.Mutex, serializes scale() per app

	// exitFunc is called to terminate the process on a master-level error;
	// overridable in tests so they don't actually exit.
	exitFunc func(code int)
}

// New constructs an Engine. All collaborators are required except health,
// update, and callbacks, which default to no-ops so partially wired test
// harnesses don't need to stub every hook.
func New(logger hclog.Logger, cfg Config, driver Driver, tracker TaskTracker, queue TaskQueue, apps AppRepository, builder TaskBuilder, limiter RateLimiter, bus EventBus, idStore idutil.Store, opts ...Option) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		logger:    logger.Named("scheduler"),
		config:    cfg,
		driver:    driver,
		tracker:   tracker,
		queue:     queue,
		apps:      apps,
		builder:   builder,
		limiter:   limiter,
		bus:       bus,
		idStore:   idStore,
		callbacks: noopCallbacks{},
		health:    noopHealthCheck{},
		update:    noopUpdateHook{},
		exitFunc:  os.Exit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithSchedulerCallbacks overrides the default no-op SchedulerCallbacks.
func WithSchedulerCallbacks(cb SchedulerCallbacks) Option {
	return func(e *Engine) { e.callbacks = cb }
}

// WithHealthCheckHook overrides the default no-op HealthCheckHook.
func WithHealthCheckHook(h HealthCheckHook) Option {
	return func(e *Engine) { e.health = h }
}

// WithUpdateHook overrides the default no-op UpdateHook.
func WithUpdateHook(u UpdateHook) Option {
	return func(e *Engine) { e.update = u }
}

// WithExitFunc overrides the os.Exit call Error() makes on a master-level
// error. Tests use this to observe suicide without actually exiting the
// test binary.
func WithExitFunc(f func(int)) Option {
	return func(e *Engine) { e.exitFunc = f }
}

// appMutex returns the per-app mutex used to serialize scale().
func (e *Engine) appMutex(appID string) *sync.Mutex {
	v, _ := e.appLocks.LoadOrStore(appID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Registered persists the framework identity on first registration.
// It does not itself trigger reconciliation; the enclosing service does
// that after the callback returns, to keep callback latency bounded.
func (e *Engine) Registered(frameworkID string, masterInfo MasterInfo) {
	e.logger.Info("registered with master", "framework_id", frameworkID, "master", masterInfo.ID)
	if err := e.idStore.Save(frameworkID); err != nil {
		e.logger.Error("failed to persist framework id", "error", err)
	}
}

// Reregistered does nothing beyond logging; the framework identity is
// already persisted.
func (e *Engine) Reregistered(masterInfo MasterInfo) {
	e.logger.Info("reregistered with master", "master", masterInfo.ID)
}

// Disconnected invokes the single SchedulerCallbacks.Disconnected hook.
// Its canonical implementation abdicates leadership so another
// instance can take over; that implementation lives outside the core.
func (e *Engine) Disconnected() {
	e.logger.Warn("disconnected from master")
	e.callbacks.Disconnected()
}

// SlaveLost logs only; the authoritative recovery path is the terminal
// status updates the master subsequently sends for affected tasks.
func (e *Engine) SlaveLost(slaveID string) {
	e.logger.Warn("slave lost", "slave_id", slaveID)
}

// ExecutorLost logs only, for the same reason as SlaveLost.
func (e *Engine) ExecutorLost(executorID, slaveID string, status int) {
	e.logger.Warn("executor lost", "executor_id", executorID, "slave_id", slaveID, "status", status)
}

// OfferRescinded logs only; no state is held for an offer once it has been
// responded to, and offers are always responded to synchronously within
// ResourceOffers.
func (e *Engine) OfferRescinded(offerID string) {
	e.logger.Info("offer rescinded", "offer_id", offerID)
}

// FrameworkMessage publishes the message on the event bus; no state change.
func (e *Engine) FrameworkMessage(executorID, slaveID string, data []byte) {
	e.bus.Post(FrameworkMessageEvent{ExecutorID: executorID, SlaveID: slaveID, Data: data})
}

// Error logs fatally and commits suicide: it schedules a process exit with
// status 9 asynchronously, so a deadlock on in-process shutdown hooks can't
// block it.
func (e *Engine) Error(message string) {
	e.logger.Error("fatal scheduler error, committing suicide", "message", message)
	metrics.IncrCounter([]string{"scheduler", "suicide"}, 1)

	jitter := e.config.SuicideJitter
	go func() {
		if jitter > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(jitter))))
		}
		e.exitFunc(9)
	}()
}
