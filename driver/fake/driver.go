// Package fake provides an in-memory, recording scheduler.Driver, used by
// engine tests and by cmd/schedulerd's dry-run mode. It never speaks a real
// cluster master's wire protocol — that binding is out of scope for this
// core.
package fake

import (
	"sync"

	"github.com/marathon-go/appsched/scheduler"
)

// LaunchCall records one LaunchTasks invocation.
type LaunchCall struct {
	OfferID string
	Tasks   []scheduler.TaskDescriptor
}

// Driver records every call made to it, optionally returning injected
// errors so tests can exercise the engine's error-handling paths.
type Driver struct {
	mu sync.Mutex

	Launches   []LaunchCall
	Declines   []string
	Kills      []string
	Reconciles [][]scheduler.Status

	LaunchErr    error
	DeclineErr   error
	KillErr      error
	ReconcileErr error
}

// New constructs an empty Driver.
func New() *Driver { return &Driver{} }

func (d *Driver) LaunchTasks(offerID string, tasks []scheduler.TaskDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Launches = append(d.Launches, LaunchCall{OfferID: offerID, Tasks: append([]scheduler.TaskDescriptor(nil), tasks...)})
	return d.LaunchErr
}

func (d *Driver) DeclineOffer(offerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Declines = append(d.Declines, offerID)
	return d.DeclineErr
}

func (d *Driver) KillTask(taskID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Kills = append(d.Kills, taskID)
	return d.KillErr
}

func (d *Driver) ReconcileTasks(statuses []scheduler.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Reconciles = append(d.Reconciles, append([]scheduler.Status(nil), statuses...))
	return d.ReconcileErr
}

// LaunchCount returns how many LaunchTasks calls have been made.
func (d *Driver) LaunchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Launches)
}

// DeclineCount returns how many DeclineOffer calls have been made.
func (d *Driver) DeclineCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Declines)
}

// KillCount returns how many KillTask calls have been made.
func (d *Driver) KillCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Kills)
}

// KilledIDs returns every task id KillTask has been called with, in order.
func (d *Driver) KilledIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Kills...)
}
