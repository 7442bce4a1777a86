// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"context"
	"fmt"

	metrics "github.com/hashicorp/go-metrics"
)

// ResourceOffers handles a batch of resource offers. It never
// suspends on persistence: TaskTracker.CheckStagedTasks, TaskQueue, and
// TaskBuilder are all in-memory collaborators, so offer latency stays
// bounded.
func (e *Engine) ResourceOffers(offers []*Offer) {
	e.killStagedTasks()

	for _, offer := range offers {
		e.handleOneOffer(offer)
	}
}

// killStagedTasks is the pre-step that runs on every offer batch: it is the
// only garbage-collection path for tasks stuck in staging.
func (e *Engine) killStagedTasks() {
	stale, err := e.tracker.CheckStagedTasks(e.config.StagedTaskTimeout)
	if err != nil {
		e.logger.Warn("failed to check staged tasks", "error", err)
		return
	}
	for _, task := range stale {
		e.logger.Warn("killing task stuck in staging", "task_id", task.ID, "app_id", task.AppID)
		if err := e.driver.KillTask(task.ID); err != nil {
			e.logger.Warn("failed to kill staged task", "task_id", task.ID, "error", err)
		}
		metrics.IncrCounter([]string{"scheduler", "staged_timeout_kill"}, 1)
	}
}

// handleOneOffer walks the drained queue against a single offer, launching
// at most one task, and always ends in exactly one of launchTasks or
// declineOffer — including on a collaborator panic or error.
func (e *Engine) handleOneOffer(offer *Offer) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while processing offer, declining", "offer_id", offer.ID, "recover", r)
			if err := e.driver.DeclineOffer(offer.ID); err != nil {
				e.logger.Warn("failed to decline offer after panic", "offer_id", offer.ID, "error", err)
			}
		}
	}()

	apps := e.queue.RemoveAll()

	for i, app := range apps {
		descriptor, matched, err := e.safeBuild(app, offer)
		if err != nil {
			e.logger.Warn("task builder failed, declining offer", "offer_id", offer.ID, "app_id", app.ID, "error", err)
			// apps[0:i] were already re-queued individually as the walk
			// passed over them; only the untried remainder (this one
			// included) still needs to go back.
			e.queue.AddAll(apps[i:])
			e.decline(offer.ID)
			return
		}
		if !matched {
			e.queue.Add(app)
			continue
		}

		task := &Task{
			ID:         descriptor.TaskID,
			AppID:      app.ID,
			Host:       descriptor.Host,
			Ports:      descriptor.Ports,
			Attributes: descriptor.Attrs,
			AppVersion: app.Version,
		}
		if err := e.tracker.Created(context.Background(), app.ID, task); err != nil {
			e.logger.Warn("failed to record launched task, declining offer", "offer_id", offer.ID, "app_id", app.ID, "error", err)
			e.queue.AddAll(apps[i:])
			e.decline(offer.ID)
			return
		}

		if err := e.driver.LaunchTasks(offer.ID, []TaskDescriptor{*descriptor}); err != nil {
			e.logger.Warn("driver failed to launch task", "offer_id", offer.ID, "task_id", descriptor.TaskID, "error", err)
		}
		metrics.IncrCounter([]string{"scheduler", "launch"}, 1)

		// Requeue the apps that never got a shot at this offer, in order.
		e.queue.AddAll(apps[i+1:])
		return
	}

	// No match: every app was already re-queued individually as the walk
	// passed over it; nothing further to add back here.
	e.decline(offer.ID)
}

// safeBuild calls the TaskBuilder, converting a panic into an error so a
// single misbehaving collaborator can't skip the decline/requeue bookkeeping
// handleOneOffer depends on to keep every app accounted for.
func (e *Engine) safeBuild(app *App, offer *Offer) (descriptor *TaskDescriptor, matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task builder panicked: %v", r)
		}
	}()
	return e.builder.Build(app, offer)
}

func (e *Engine) decline(offerID string) {
	if err := e.driver.DeclineOffer(offerID); err != nil {
		e.logger.Warn("failed to decline offer", "offer_id", offerID, "error", err)
	}
	metrics.IncrCounter([]string{"scheduler", "decline"}, 1)
}
