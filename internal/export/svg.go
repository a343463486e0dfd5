// Package export renders recorded runs to shareable artifacts.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/swaysim/internal/sway"
)

const (
	svgWidth  = 800
	svgHeight = 600
	svgMargin = 40
)

// FramesToSVG renders a recorded run as a side view (x right, y up): faint
// tip trails across the whole run, chain links of the final frame on top.
// parents carries the per-bone parent indices; trails are drawn for every
// chain tip.
func FramesToSVG(frames [][]sway.Vec3, parents []uint32) string {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return ""
	}

	minX, maxX, minY, maxY := bounds(frames)
	spanX := maxX - minX
	spanY := maxY - minY
	if spanX < 1e-3 {
		spanX = 1
	}
	if spanY < 1e-3 {
		spanY = 1
	}
	scale := min32((svgWidth-2*svgMargin)/spanX, (svgHeight-2*svgMargin)/spanY)

	project := func(p sway.Vec3) (float32, float32) {
		x := svgMargin + (p.X()-minX)*scale
		y := svgHeight - svgMargin - (p.Y()-minY)*scale
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, svgWidth, svgHeight, svgWidth, svgHeight))

	// Tip trails, one polyline per chain tip.
	for _, tip := range tipIndices(parents) {
		sb.WriteString(`<polyline fill="none" stroke="#1d5c2a" stroke-width="1" points="`)
		for _, frame := range frames {
			if tip >= len(frame) {
				continue
			}
			x, y := project(frame[tip])
			sb.WriteString(fmt.Sprintf("%.1f,%.1f ", x, y))
		}
		sb.WriteString("\"/>\n")
	}

	// Final pose: links then joints.
	last := frames[len(frames)-1]
	for i, p := range last {
		if i >= len(parents) || parents[i] == sway.RootParent {
			continue
		}
		x1, y1 := project(last[parents[i]])
		x2, y2 := project(p)
		sb.WriteString(fmt.Sprintf(
			`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#00ff00" stroke-width="2"/>
`, x1, y1, x2, y2))
	}
	for i, p := range last {
		x, y := project(p)
		fill := "#00ff00"
		r := float32(3)
		if i < len(parents) && parents[i] == sway.RootParent {
			fill = "#ffffff"
			r = 4
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, r, fill))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// tipIndices returns the last bone of each chain: a bone whose successor is
// a root, or the final bone.
func tipIndices(parents []uint32) []int {
	tips := make([]int, 0)
	for i := range parents {
		if parents[i] == sway.RootParent {
			continue
		}
		if i == len(parents)-1 || parents[i+1] == sway.RootParent {
			tips = append(tips, i)
		}
	}
	return tips
}

func bounds(frames [][]sway.Vec3) (minX, maxX, minY, maxY float32) {
	first := frames[0][0]
	minX, maxX = first.X(), first.X()
	minY, maxY = first.Y(), first.Y()
	for _, frame := range frames {
		for _, p := range frame {
			minX = min32(minX, p.X())
			maxX = max32(maxX, p.X())
			minY = min32(minY, p.Y())
			maxY = max32(maxY, p.Y())
		}
	}
	return
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
