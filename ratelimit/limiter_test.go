// Copyright (c) The marathon-go authors
// SPDX-License-Identifier: MPL-2.0

package ratelimit_test

import (
	"testing"

	"github.com/shoenig/test/must"

	"github.com/marathon-go/appsched/internal/ci"
	"github.com/marathon-go/appsched/ratelimit"
)

func TestLimiter_TryAcquire_UnconfiguredAppDenied(t *testing.T) {
	ci.Parallel(t)
	l := ratelimit.New()

	must.False(t, l.TryAcquire("x"))
}

func TestLimiter_TryAcquire_ConfiguredAppAllowsBurst(t *testing.T) {
	ci.Parallel(t)
	l := ratelimit.New()

	l.SetPermits("x", 1000)
	must.True(t, l.TryAcquire("x"))
}

func TestLimiter_SetPermits_ZeroDisablesBucket(t *testing.T) {
	ci.Parallel(t)
	l := ratelimit.New()

	l.SetPermits("x", 1000)
	must.True(t, l.TryAcquire("x"))

	l.SetPermits("x", 0)
	must.False(t, l.TryAcquire("x"))
}

func TestLimiter_TryAcquire_ExhaustsBurstOfOne(t *testing.T) {
	ci.Parallel(t)
	l := ratelimit.New()

	l.SetPermits("x", 0.001) // effectively never refills within the test
	must.True(t, l.TryAcquire("x"))
	must.False(t, l.TryAcquire("x"))
}
