package compute

import (
	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

// Backend advances a store by one frame: Substeps iterations of
// integration immediately followed by collision resolution, strictly in
// order. Backends hold no buffer ownership between calls; it is taken
// through state.Store.Dispatch for the duration of one Step only.
type Backend interface {
	Name() string
	Available() bool
	Step(st *state.Store, gp sway.GlobalParams) error
	Cleanup()
}

// AutoSelect returns the WebGPU backend when it is compiled in and a
// device is reachable, otherwise the CPU backend.
func AutoSelect() Backend {
	gpu := NewWebGPUBackend()
	if gpu.Available() {
		return gpu
	}
	gpu.Cleanup()
	return NewCPUBackend()
}
