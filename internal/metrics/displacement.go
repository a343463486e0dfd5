package metrics

import (
	"github.com/san-kum/swaysim/internal/sway"
)

// Displacement tracks the largest single-frame movement of any bone across
// the run.
type Displacement struct {
	name string
	last []sway.Vec3
	max  float64
}

func NewDisplacement() *Displacement {
	return &Displacement{
		name: "displacement",
	}
}

func (d *Displacement) Name() string { return d.name }

func (d *Displacement) Observe(positions []sway.Vec3, t float64) {
	if d.last != nil && len(d.last) == len(positions) {
		for i, p := range positions {
			if step := float64(p.Sub(d.last[i]).Len()); step > d.max {
				d.max = step
			}
		}
	}
	d.last = append(d.last[:0], positions...)
}

func (d *Displacement) Value() float64 {
	return d.max
}

func (d *Displacement) Reset() {
	d.last = nil
	d.max = 0
}
