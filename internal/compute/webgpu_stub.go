//go:build !webgpu

package compute

import (
	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

type WebGPUBackend struct{}

func NewWebGPUBackend() *WebGPUBackend {
	return &WebGPUBackend{}
}

func (g *WebGPUBackend) Name() string    { return "webgpu (not compiled in)" }
func (g *WebGPUBackend) Available() bool { return false }
func (g *WebGPUBackend) Cleanup()        {}

func (g *WebGPUBackend) Step(st *state.Store, gp sway.GlobalParams) error {
	return NewCPUBackend().Step(st, gp)
}
