package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/swaysim/internal/sway"
)

const (
	width       = 70
	height      = 22
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws the chains as a terminal side view (x right, y up),
// one frame per OnFrame call, throttled to the requested rate. It implements
// sim.Observer.
type LiveRenderer struct {
	name      string
	parents   []uint32
	frameRate int
	lastFrame time.Time
	canvas    [][]rune

	// View window in world units, fixed so the camera does not chase bones.
	centerX, centerY float32
	scale            float32
}

func NewLiveRenderer(name string, parents []uint32, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		name:      name,
		parents:   parents,
		frameRate: frameRate,
		canvas:    canvas,
		centerY:   1.0,
		scale:     12,
	}
}

// SetView recenters the window. Scale is cells per world unit.
func (r *LiveRenderer) SetView(centerX, centerY, scale float32) {
	r.centerX, r.centerY, r.scale = centerX, centerY, scale
}

func (r *LiveRenderer) OnFrame(positions []sway.Vec3, t float64) {
	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.clear()
	r.drawChains(positions)
	r.render(positions, t)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) project(p sway.Vec3) (int, int) {
	cx := width/2 + int((p.X()-r.centerX)*r.scale)
	cy := height/2 - int((p.Y()-r.centerY)*r.scale/2)
	return cx, cy
}

func (r *LiveRenderer) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *LiveRenderer) drawChains(positions []sway.Vec3) {
	for i, p := range positions {
		if i >= len(r.parents) {
			break
		}
		x, y := r.project(p)
		parent := r.parents[i]
		if parent == sway.RootParent {
			r.set(x, y, '+')
			continue
		}
		px, py := r.project(positions[parent])
		r.line(px, py, x, y, '.')
		r.set(x, y, 'o')
	}
	// Tips overdraw links.
	for i, p := range positions {
		if i >= len(r.parents) || r.parents[i] == sway.RootParent {
			continue
		}
		if i == len(positions)-1 || (i+1 < len(r.parents) && r.parents[i+1] == sway.RootParent) {
			x, y := r.project(p)
			r.set(x, y, 'O')
		}
	}
}

func (r *LiveRenderer) render(positions []sway.Vec3, t float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs  bones=%d\n", r.name, t, len(positions)))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	if len(positions) > 0 {
		tip := positions[len(positions)-1]
		b.WriteString(fmt.Sprintf("  tip=(%.2f, %.2f, %.2f)\n", tip.X(), tip.Y(), tip.Z()))
	}

	fmt.Print(b.String())
}

func (r *LiveRenderer) Start() { fmt.Print(hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Print(showCursor) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
