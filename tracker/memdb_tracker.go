// Package tracker implements scheduler.TaskTracker on top of go-memdb, the
// same indexed in-memory table library Nomad's own state store uses.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-memdb"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/marathon-go/appsched/scheduler"
)

const tableTasks = "tasks"

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTasks: {
				Name: tableTasks,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"app": {
						Name:    "app",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "AppID"},
					},
				},
			},
		},
	}
}

// Persister is called after Created, Running and StatusUpdate so a concrete
// deployment can durably record the task record. Removals (Terminated,
// ShutDown) are not reported to it. Persistence *encoding* is out of scope;
// this is only the narrow call-out point.
type Persister interface {
	PersistTask(task *scheduler.Task) error
}

type nullPersister struct{}

func (nullPersister) PersistTask(*scheduler.Task) error { return nil }

// MemDBTaskTracker is the authoritative in-memory index of tasks per app.
type MemDBTaskTracker struct {
	db     *memdb.MemDB
	logger hclog.Logger

	persist   Persister
	maxHist   int

	mu         sync.Mutex
	shutAppIDs map[string]struct{}
}

// Option configures a MemDBTaskTracker at construction.
type Option func(*MemDBTaskTracker)

// WithPersister overrides the default no-op persister.
func WithPersister(p Persister) Option {
	return func(t *MemDBTaskTracker) { t.persist = p }
}

// WithMaxStatusHistory caps the number of status observations retained per
// task (oldest dropped first). Default 10.
func WithMaxStatusHistory(n int) Option {
	return func(t *MemDBTaskTracker) {
		if n > 0 {
			t.maxHist = n
		}
	}
}

// New constructs an empty MemDBTaskTracker.
func New(logger hclog.Logger, opts ...Option) (*MemDBTaskTracker, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("building task tracker schema: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	t := &MemDBTaskTracker{
		db:         db,
		logger:     logger.Named("tracker"),
		persist:    nullPersister{},
		maxHist:    10,
		shutAppIDs: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// CheckStagedTasks returns every task observed staging longer than timeout.
func (t *MemDBTaskTracker) CheckStagedTasks(timeout time.Duration) ([]*scheduler.Task, error) {
	txn := t.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableTasks, "id")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var stale []*scheduler.Task
	for raw := it.Next(); raw != nil; raw = it.Next() {
		task := raw.(*scheduler.Task)
		if task.State == scheduler.TaskStaging && !task.StagedAt.IsZero() && now.Sub(task.StagedAt) > timeout {
			stale = append(stale, task.Copy())
		}
	}
	return stale, nil
}

// Created records a newly launched task.
func (t *MemDBTaskTracker) Created(ctx context.Context, appID string, task *scheduler.Task) error {
	stored := task.Copy()
	stored.AppID = appID
	stored.State = scheduler.TaskStaging
	stored.StagedAt = time.Now()
	stored.History = append(stored.History, scheduler.StatusObservation{
		State: scheduler.TaskStaging,
		At:    stored.StagedAt,
	})

	txn := t.db.Txn(true)
	if err := txn.Insert(tableTasks, stored); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()

	metrics.IncrCounter([]string{"tracker", "created"}, 1)
	return t.persist.PersistTask(stored)
}

// Running marks the task in status.TaskID as running and returns the
// updated record.
func (t *MemDBTaskTracker) Running(ctx context.Context, appID string, status scheduler.Status) (*scheduler.Task, error) {
	updated, found, err := t.update(appID, status, scheduler.TaskRunning)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("tracker: no such task %q for app %q", status.TaskID, appID)
	}
	metrics.IncrCounter([]string{"tracker", "running"}, 1)
	return updated, t.persist.PersistTask(updated)
}

// Terminated removes the task record for a terminal status and returns it,
// if one existed.
func (t *MemDBTaskTracker) Terminated(ctx context.Context, appID string, status scheduler.Status) (*scheduler.Task, bool, error) {
	txn := t.db.Txn(true)
	raw, err := txn.First(tableTasks, "id", status.TaskID)
	if err != nil {
		txn.Abort()
		return nil, false, err
	}
	if raw == nil {
		txn.Abort()
		return nil, false, nil
	}
	task := raw.(*scheduler.Task)
	if err := txn.Delete(tableTasks, task); err != nil {
		txn.Abort()
		return nil, false, err
	}
	txn.Commit()

	metrics.IncrCounter([]string{"tracker", "terminated"}, 1)
	return task.Copy(), true, nil
}

// StatusUpdate records an arbitrary (non-terminal, non-running) status
// observation for a task.
func (t *MemDBTaskTracker) StatusUpdate(ctx context.Context, appID string, status scheduler.Status) (*scheduler.Task, bool, error) {
	updated, found, err := t.update(appID, status, status.State)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return updated, true, t.persist.PersistTask(updated)
}

func (t *MemDBTaskTracker) update(appID string, status scheduler.Status, newState scheduler.TaskState) (*scheduler.Task, bool, error) {
	txn := t.db.Txn(true)
	raw, err := txn.First(tableTasks, "id", status.TaskID)
	if err != nil {
		txn.Abort()
		return nil, false, err
	}
	if raw == nil {
		txn.Abort()
		return nil, false, nil
	}
	existing := raw.(*scheduler.Task)
	updated := existing.Copy()
	updated.State = newState
	updated.History = append(updated.History, scheduler.StatusObservation{
		State:   status.State,
		Message: status.Message,
		At:      time.Now(),
	})
	if max := t.maxHist; max > 0 && len(updated.History) > max {
		updated.History = updated.History[len(updated.History)-max:]
	}

	if err := txn.Insert(tableTasks, updated); err != nil {
		txn.Abort()
		return nil, false, err
	}
	txn.Commit()
	return updated, true, nil
}

// Contains reports whether the tracker holds any task for appID.
func (t *MemDBTaskTracker) Contains(appID string) bool {
	return t.Count(appID) > 0
}

// Count reports how many tasks the tracker holds for appID.
func (t *MemDBTaskTracker) Count(appID string) int {
	txn := t.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableTasks, "app", appID)
	if err != nil {
		return 0
	}
	n := 0
	for raw := it.Next(); raw != nil; raw = it.Next() {
		n++
	}
	return n
}

// Get returns every task currently tracked for appID.
func (t *MemDBTaskTracker) Get(appID string) []*scheduler.Task {
	txn := t.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableTasks, "app", appID)
	if err != nil {
		return nil
	}
	var out []*scheduler.Task
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*scheduler.Task).Copy())
	}
	return out
}

// List returns every tracked task, grouped by app id.
func (t *MemDBTaskTracker) List() map[string][]*scheduler.Task {
	txn := t.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableTasks, "id")
	if err != nil {
		return nil
	}
	out := make(map[string][]*scheduler.Task)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		task := raw.(*scheduler.Task)
		out[task.AppID] = append(out[task.AppID], task.Copy())
	}
	return out
}

// Take selects up to n live tasks for appID to kill, newest-first, and
// returns them without removing them (removal happens when their terminal
// status arrives).
func (t *MemDBTaskTracker) Take(appID string, n int) ([]*scheduler.Task, error) {
	if n <= 0 {
		return nil, nil
	}
	tasks := t.Get(appID)
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StagedAt.After(tasks[j].StagedAt)
	})
	if n > len(tasks) {
		n = len(tasks)
	}
	return tasks[:n], nil
}

// ShutDown tears down the tracker's slot for appID, removing every task
// record it holds without issuing kills (the caller is responsible for
// killing tasks before calling ShutDown).
func (t *MemDBTaskTracker) ShutDown(appID string) {
	txn := t.db.Txn(true)
	defer txn.Commit()
	if _, err := txn.DeleteAll(tableTasks, "app", appID); err != nil {
		t.logger.Warn("shutdown: failed to clear task records", "app_id", appID, "error", err)
	}
}
