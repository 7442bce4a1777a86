// Package idutil generates task ids and derives the owning app id from them,
// and persists the single framework id the engine reuses across reconnects.
package idutil

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// taskIDSep separates an app id from the random suffix in a generated task
// id. Task ids look like "<appId>.<uuid>"; app ids themselves never contain
// the separator (enforced by ValidateAppID in the scheduler package).
const taskIDSep = "."

// NewTaskID builds a globally unique task id for appID.
func NewTaskID(appID string) (string, error) {
	suffix, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("generating task id suffix: %w", err)
	}
	return appID + taskIDSep + suffix, nil
}

// AppIDFromTaskID derives the owning app id from a task id produced by
// NewTaskID. It never fails on malformed input; callers that receive a
// status update for a task id with no embedded app id treat the app as
// unknown, which is already the safe (kill-it) behavior for that path.
func AppIDFromTaskID(taskID string) string {
	idx := strings.LastIndex(taskID, taskIDSep)
	if idx < 0 {
		return ""
	}
	return taskID[:idx]
}

// Store persists the single opaque framework id across process restarts.
// The core never encodes the on-disk/wire representation itself (persistence
// encoding is out of scope); it only calls through this narrow interface.
type Store interface {
	Save(frameworkID string) error
	Load() (string, bool, error)
}
