// Package queue implements scheduler.TaskQueue: an in-memory multiset of
// apps awaiting placement, FIFO-ish but allowing bulk drain and refill.
package queue

import (
	"sync"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/marathon-go/appsched/scheduler"
)

// entry snapshots the app at enqueue time so a concurrent update to the app
// doesn't silently relabel an already-queued launch intent: a queued entry
// always launches at the version it was queued under.
type entry struct {
	app *scheduler.App
}

// Queue is a concurrency-safe, ordered multiset of apps.
type Queue struct {
	mu      sync.Mutex
	entries []entry
	logger  hclog.Logger
}

// New constructs an empty Queue.
func New(logger hclog.Logger) *Queue {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Queue{logger: logger.Named("queue")}
}

// Add enqueues one copy of app at the tail.
func (q *Queue) Add(app *scheduler.App) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry{app: app.Copy()})
	metrics.IncrCounter([]string{"queue", "add"}, 1)
}

// AddAll enqueues every app in apps, in order, at the tail.
func (q *Queue) AddAll(apps []*scheduler.App) {
	if len(apps) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, app := range apps {
		q.entries = append(q.entries, entry{app: app.Copy()})
	}
	metrics.IncrCounter([]string{"queue", "add"}, float32(len(apps)))
}

// RemoveAll drains the entire queue and returns it as an ordered slice,
// leaving the queue empty.
func (q *Queue) RemoveAll() []*scheduler.App {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]*scheduler.App, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.app
	}
	q.entries = nil
	return out
}

// Count reports how many queued entries belong to appID.
func (q *Queue) Count(appID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		if e.app.ID == appID {
			n++
		}
	}
	return n
}

// Purge removes every queued entry for appID, preserving the relative order
// of the remaining entries.
func (q *Queue) Purge(appID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return
	}
	kept := q.entries[:0:0]
	for _, e := range q.entries {
		if e.app.ID != appID {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}
