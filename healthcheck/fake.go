// Package healthcheck provides a recording scheduler.HealthCheckHook used
// by tests and by cmd/schedulerd's dry-run mode. Health-check *probing* is
// out of scope for this module; only the reconcile/remove call-out points
// are.
package healthcheck

import (
	"sync"

	"github.com/marathon-go/appsched/scheduler"
)

// Recorder records Reconcile/Remove calls without doing anything else.
type Recorder struct {
	mu         sync.Mutex
	reconciled []string
	removed    []string
}

// New constructs an empty Recorder.
func New() *Recorder { return &Recorder{} }

// Reconcile implements scheduler.HealthCheckHook.
func (r *Recorder) Reconcile(app *scheduler.App) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled = append(r.reconciled, app.ID)
}

// Remove implements scheduler.HealthCheckHook.
func (r *Recorder) Remove(appID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, appID)
}

// Reconciled returns every app id Reconcile has been called with.
func (r *Recorder) Reconciled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reconciled...)
}

// Removed returns every app id Remove has been called with.
func (r *Recorder) Removed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}
