// Package builder provides a minimal, intentionally simple
// scheduler.TaskBuilder: given (app, offer), it either constructs a task
// descriptor and reserves ports, or reports no match. The matching policy
// itself is left to operators to replace; SimpleBuilder exists only so the
// engine has something runnable to exercise in tests and in a dry-run
// cmd/schedulerd.
package builder

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/marathon-go/appsched/internal/idutil"
	"github.com/marathon-go/appsched/scheduler"
)

// Params keys SimpleBuilder understands on App.Params. Any other keys are
// opaque to it, matching the engine's "opaque resource/launch parameters"
// contract.
const (
	ParamCPU      = "cpu"
	ParamMemoryMB = "memory_mb"
	ParamPorts    = "ports" // number of ports the task needs, decimal
)

// SimpleBuilder matches an app's declared cpu/memory/port-count requirement
// against an offer's resources.
type SimpleBuilder struct{}

// New constructs a SimpleBuilder.
func New() *SimpleBuilder { return &SimpleBuilder{} }

// Build implements scheduler.TaskBuilder.
func (b *SimpleBuilder) Build(app *scheduler.App, offer *scheduler.Offer) (*scheduler.TaskDescriptor, bool, error) {
	wantCPU, err := floatParam(app, ParamCPU, 0.1)
	if err != nil {
		return nil, false, err
	}
	wantMem, err := floatParam(app, ParamMemoryMB, 32)
	if err != nil {
		return nil, false, err
	}
	wantPorts, err := intParam(app, ParamPorts, 0)
	if err != nil {
		return nil, false, err
	}

	if offer.Resources.CPU < wantCPU || offer.Resources.MemoryMB < wantMem {
		return nil, false, nil
	}

	ports, ok := reservePorts(offer, wantPorts)
	if !ok {
		return nil, false, nil
	}

	taskID, err := idutil.NewTaskID(app.ID)
	if err != nil {
		return nil, false, fmt.Errorf("builder: %w", err)
	}

	return &scheduler.TaskDescriptor{
		TaskID: taskID,
		AppID:  app.ID,
		Host:   offer.Host,
		Ports:  ports,
		Attrs:  offer.Attributes,
	}, true, nil
}

// reservePorts scans an offer's port ranges for `want` ports; a contiguous
// run is not required, since each wanted port is drawn independently.
func reservePorts(offer *scheduler.Offer, want int) ([]int, bool) {
	if want == 0 {
		return nil, true
	}

	available := make([]int, 0, want*2)
	for _, r := range offer.Resources.Ports {
		available = append(available, expandRange(r)...)
	}

	if len(available) < want {
		return nil, false
	}
	sort.Ints(available)
	return available[:want], true
}

func expandRange(r scheduler.PortRange) []int {
	if r.End < r.Begin {
		return nil
	}
	ports := make([]int, 0, r.End-r.Begin+1)
	for p := r.Begin; p <= r.End; p++ {
		ports = append(ports, p)
	}
	return ports
}

func floatParam(app *scheduler.App, key string, def float64) (float64, error) {
	v, ok := app.Params[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("builder: parsing app param %q: %w", key, err)
	}
	return f, nil
}

func intParam(app *scheduler.App, key string, def int) (int, error) {
	v, ok := app.Params[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("builder: parsing app param %q: %w", key, err)
	}
	return n, nil
}
