// Package analysis provides frequency analysis of recorded motion tracks.
//
// The main use is characterizing sway oscillation: feed a per-frame scalar
// series (tip height, lateral deflection) through a Hann window and
// [PowerSpectrum] to find the dominant swing frequency and check that wind
// gusting shows up as a broad band rather than a single tick rate.
package analysis
