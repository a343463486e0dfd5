package metrics

import (
	"github.com/san-kum/swaysim/internal/sway"
)

// Motion reports the largest per-bone movement of the most recent frame, so
// a run that has come to rest reads near zero regardless of its history.
type Motion struct {
	name    string
	last    []sway.Vec3
	current float64
}

func NewMotion() *Motion {
	return &Motion{
		name: "motion",
	}
}

func (m *Motion) Name() string { return m.name }

func (m *Motion) Observe(positions []sway.Vec3, t float64) {
	m.current = 0
	if m.last != nil && len(m.last) == len(positions) {
		for i, p := range positions {
			if step := float64(p.Sub(m.last[i]).Len()); step > m.current {
				m.current = step
			}
		}
	}
	m.last = append(m.last[:0], positions...)
}

func (m *Motion) Value() float64 {
	return m.current
}

func (m *Motion) Reset() {
	m.last = nil
	m.current = 0
}
