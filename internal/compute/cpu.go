package compute

import (
	"runtime"
	"sync"

	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

// Below this bone count the goroutine fan-out costs more than it saves.
const parallelThreshold = 64

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

// Step runs Substeps iterations of integrate-then-collide. The integration
// pass reads the committed prev/cur pair and writes the scratch pair, so a
// bone always sees its parent's prior-substep position regardless of worker
// scheduling; the swap commits the substep before collision runs.
func (c *CPUBackend) Step(st *state.Store, gp sway.GlobalParams) error {
	return st.Dispatch(func(b *state.Buffers) error {
		steps := int(gp.Substeps)
		if steps < 1 {
			steps = 1
		}
		for s := 0; s < steps; s++ {
			c.integrate(b, gp)
			b.Swap()
			c.collide(b)
		}
		return nil
	})
}

func (c *CPUBackend) integrate(b *state.Buffers, gp sway.GlobalParams) {
	c.each(len(b.Params), func(start, end int) {
		for i := start; i < end; i++ {
			p := b.Params[i]
			if p.IsRoot() {
				// Kinematically driven; copy through untouched.
				b.ScratchPrev[i] = b.Cur[i]
				b.ScratchCur[i] = b.Cur[i]
				continue
			}
			b.ScratchPrev[i], b.ScratchCur[i] = sway.IntegrateBone(
				b.Prev[i], b.Cur[i], b.Cur[p.ParentIndex],
				p, b.Rest[i], b.BindDirs[i], gp)
		}
	})
}

func (c *CPUBackend) collide(b *state.Buffers) {
	if len(b.Spheres)+len(b.Capsules)+len(b.Planes) == 0 {
		return
	}
	c.each(len(b.Params), func(start, end int) {
		for i := start; i < end; i++ {
			p := b.Params[i]
			if p.IsRoot() || p.ColliderGroupMask == 0 {
				continue
			}
			b.Cur[i] = sway.ResolveColliders(b.Cur[i], p.Radius, p.ColliderGroupMask,
				b.Spheres, b.Capsules, b.Planes)
		}
	})
}

// each runs fn over [0,n) in contiguous worker chunks. Serial under the
// threshold. Chunks never overlap and bones never read each other's slots
// within a pass, so the split is race-free.
func (c *CPUBackend) each(n int, fn func(start, end int)) {
	if n < parallelThreshold || c.workers <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + c.workers - 1) / c.workers

	for w := 0; w < c.workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}

	wg.Wait()
}
