// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

// StatusUpdateEvent is published whenever a task's tracked status changes in
// a way observers care about (reached running, or was removed on terminal).
type StatusUpdateEvent struct {
	AppID  string
	TaskID string
	State  TaskState
}

func (StatusUpdateEvent) isEvent() {}

// FrameworkMessageEvent is published verbatim on frameworkMessage; the
// engine holds no state for it.
type FrameworkMessageEvent struct {
	ExecutorID string
	SlaveID    string
	Data       []byte
}

func (FrameworkMessageEvent) isEvent() {}
