package export

import (
	"strings"
	"testing"

	"github.com/san-kum/swaysim/internal/sway"
)

func TestFramesToSVG(t *testing.T) {
	parents := []uint32{sway.RootParent, 0, 1}
	frames := [][]sway.Vec3{
		{{0, 2, 0}, {0, 1.9, 0}, {0, 1.8, 0}},
		{{0, 2, 0}, {0.05, 1.89, 0}, {0.1, 1.78, 0}},
	}

	svg := FramesToSVG(frames, parents)
	if !strings.HasPrefix(svg, `<?xml`) || !strings.Contains(svg, "</svg>") {
		t.Fatal("output is not a complete svg document")
	}
	if strings.Count(svg, "<line") != 2 {
		t.Errorf("expected 2 chain links, got %d", strings.Count(svg, "<line"))
	}
	if strings.Count(svg, "<circle") != 3 {
		t.Errorf("expected 3 joints, got %d", strings.Count(svg, "<circle"))
	}
	if strings.Count(svg, "<polyline") != 1 {
		t.Errorf("expected 1 tip trail, got %d", strings.Count(svg, "<polyline"))
	}
}

func TestFramesToSVGEmpty(t *testing.T) {
	if FramesToSVG(nil, nil) != "" {
		t.Error("no frames should render nothing")
	}
	if FramesToSVG([][]sway.Vec3{{}}, nil) != "" {
		t.Error("empty frames should render nothing")
	}
}

func TestTipIndices(t *testing.T) {
	// Two chains of three bones each.
	parents := []uint32{sway.RootParent, 0, 1, sway.RootParent, 3, 4}
	tips := tipIndices(parents)
	if len(tips) != 2 || tips[0] != 2 || tips[1] != 5 {
		t.Errorf("tips = %v, want [2 5]", tips)
	}

	// A lone root has no tip.
	if tips := tipIndices([]uint32{sway.RootParent}); len(tips) != 0 {
		t.Errorf("lone root should yield no tips, got %v", tips)
	}
}
