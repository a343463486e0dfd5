// Package metrics accumulates per-frame observations of the simulated pose.
package metrics

import "github.com/san-kum/swaysim/internal/sway"

// Metric observes one pose snapshot per frame and reduces the run to a
// single value.
type Metric interface {
	Name() string
	Observe(positions []sway.Vec3, t float64)
	Value() float64
	Reset()
}
