// Package ci provides small test helpers shared across the module's test
// suites, mirroring the marker Nomad's own test suite uses to opt individual
// tests into parallel execution.
package ci

import "testing"

// Parallel marks t as safe to run in parallel with its siblings. Centralized
// so a future CI flag (e.g. disabling parallelism on a slow runner) only
// needs to change in one place.
func Parallel(t *testing.T) {
	t.Helper()
	t.Parallel()
}
