package sway

// SettleRampFrames is the reference window for the settling ramps. Counters
// larger than the window saturate the bias at full strength; as the counter
// runs down the biases ease smoothly into their steady-state values, so the
// Settling -> Steady transition has no discontinuity.
const SettleRampFrames = 60

// settleBias maps the settling countdown to [0,1]: 1 right after a reset,
// 0 once steady.
func settleBias(settlingFrames uint32) float32 {
	f := settlingFrames
	if f > SettleRampFrames {
		f = SettleRampFrames
	}
	return smoothstep(0, SettleRampFrames, float32(f))
}

// StiffnessScale suppresses the bind-pose pull during early settling so
// bones fall freely into a natural hanging pose, then ramps it back to 1.
// Non-decreasing as the counter runs down; exactly 1 in steady state.
func StiffnessScale(settlingFrames uint32) float32 {
	return 1 - settleBias(settlingFrames)
}

// GravityBoost strengthens gravity during settling for faster convergence
// to rest. Decays smoothly to 1 as the counter reaches zero.
func GravityBoost(settlingFrames uint32) float32 {
	return 1 + 2*settleBias(settlingFrames)
}

// DragScale reduces effective drag during settling so bones keep enough
// velocity to reach their hanging pose quickly.
func DragScale(settlingFrames uint32) float32 {
	return 1 - 0.6*settleBias(settlingFrames)
}
