// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import "context"

type noopCallbacks struct{}

func (noopCallbacks) Disconnected() {}

type noopHealthCheck struct{}

func (noopHealthCheck) Reconcile(*App) {}
func (noopHealthCheck) Remove(string)  {}

type noopUpdateHook struct{}

func (noopUpdateHook) Update(context.Context, *App, *App) error { return nil }
