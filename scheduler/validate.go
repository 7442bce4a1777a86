// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"fmt"
	"strings"
)

// ValidateAppID rejects app ids that would collide with the task id
// encoding idutil.NewTaskID uses ("<appId>.<uuid>"); without this, an app id
// containing a "." could cause AppIDFromTaskID to derive the wrong owner.
func ValidateAppID(id string) error {
	if id == "" {
		return fmt.Errorf("app id must not be empty")
	}
	if strings.Contains(id, ".") {
		return fmt.Errorf("app id %q must not contain %q", id, ".")
	}
	return nil
}
