package sway

import "math"

// Gust returns the wind strength for the current phase. The magnitude is a
// product of two offset sinusoids, each biased above zero, so the result is
// smooth, strictly positive for any phase, and gusts rather than ticks.
// Direction is constant within a frame; only the strength varies, so wind
// never reverses mid-frame.
func Gust(amplitude, phase float32) float32 {
	if amplitude <= 0 || !finite(amplitude) || !finite(phase) {
		return 0
	}
	p := float64(phase)
	slow := 0.65 + 0.35*math.Sin(p)
	fast := 0.80 + 0.20*math.Sin(2.33*p+0.97)
	return amplitude * float32(slow*fast)
}

// WindReceptivity scales wind influence by the bone's drag coefficient.
// High-drag bones (hair-like) catch wind; low-drag bones (rigid-like)
// ignore it. The threshold is smooth so receptivity never jumps between
// adjacent bones of a chain.
func WindReceptivity(drag float32) float32 {
	return smoothstep(0.25, 0.65, drag)
}

// smoothstep is the cubic Hermite ramp, clamped to [0,1] outside the edges.
func smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
