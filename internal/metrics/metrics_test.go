package metrics

import (
	"testing"

	"github.com/san-kum/swaysim/internal/sway"
)

func TestDisplacementTracksMax(t *testing.T) {
	m := NewDisplacement()

	m.Observe([]sway.Vec3{{0, 0, 0}}, 0)
	m.Observe([]sway.Vec3{{0.1, 0, 0}}, 1)
	m.Observe([]sway.Vec3{{0.1, 0.3, 0}}, 2)
	m.Observe([]sway.Vec3{{0.1, 0.35, 0}}, 3)

	if v := m.Value(); v < 0.299 || v > 0.301 {
		t.Errorf("expected max displacement 0.3, got %f", v)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestMotionReflectsLatestFrame(t *testing.T) {
	m := NewMotion()

	m.Observe([]sway.Vec3{{0, 0, 0}}, 0)
	m.Observe([]sway.Vec3{{0.5, 0, 0}}, 1)
	m.Observe([]sway.Vec3{{0.5, 0, 0}}, 2)

	if m.Value() != 0 {
		t.Errorf("expected zero motion for a still frame, got %f", m.Value())
	}
}

func TestStretchRatio(t *testing.T) {
	params := []sway.BoneParams{
		{ParentIndex: sway.RootParent},
		{ParentIndex: 0},
	}
	rest := []float32{0, 1}
	m := NewStretch(params, rest)

	m.Observe([]sway.Vec3{{0, 0, 0}, {0, -2, 0}}, 0)
	if v := m.Value(); v < 1.99 || v > 2.01 {
		t.Errorf("expected stretch 2, got %f", v)
	}

	m.Observe([]sway.Vec3{{0, 0, 0}, {0, -1, 0}}, 1)
	if v := m.Value(); v < 1.99 {
		t.Error("stretch should keep the worst observed ratio")
	}
}
