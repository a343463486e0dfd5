package metrics

import (
	"github.com/san-kum/swaysim/internal/sway"
)

// Stretch tracks the worst observed parent-distance to rest-length ratio, a
// direct read on how hard the chains are being pulled apart. A value that
// stays modest means the divergence safety nets never had to fire.
type Stretch struct {
	name   string
	params []sway.BoneParams
	rest   []float32
	max    float64
}

func NewStretch(params []sway.BoneParams, rest []float32) *Stretch {
	return &Stretch{
		name:   "stretch",
		params: params,
		rest:   rest,
	}
}

func (s *Stretch) Name() string { return s.name }

func (s *Stretch) Observe(positions []sway.Vec3, t float64) {
	if len(positions) != len(s.params) {
		return
	}
	for i, p := range s.params {
		if p.IsRoot() || s.rest[i] <= 0 {
			continue
		}
		dist := positions[i].Sub(positions[p.ParentIndex]).Len()
		ratio := float64(dist / s.rest[i])
		if ratio > s.max {
			s.max = ratio
		}
	}
}

func (s *Stretch) Value() float64 {
	return s.max
}

func (s *Stretch) Reset() {
	s.max = 0
}
