package sway

// Tuning constants of the integration kernel.
//
// The ceilings are absolute, not scaled by forces: a single bad substep may
// never inject unbounded energy, teleport a bone, or detach it from its
// chain, no matter what the upstream skeletal data looks like.
const (
	// MaxVelocityPerStep caps the implicit Verlet velocity magnitude
	// derived from two consecutive positions, in units per substep.
	MaxVelocityPerStep float32 = 0.5

	// MaxStepDistance caps the displacement committed by one substep.
	MaxStepDistance float32 = 0.25

	// MaxParentDistance is the catastrophic-divergence threshold: a bone
	// ending a substep farther than this from its parent is relocated to
	// the safe hanging position.
	MaxParentDistance float32 = 4.0

	// stiffnessGain converts the [0,1] stiffness coefficient into a
	// per-substep positional blend factor. Deliberately not proportional
	// to the timestep: force-based springs become numerically negligible
	// at high substep rates, positional blending does not.
	stiffnessGain float32 = 0.85

	// inertiaScale damps the pseudo-force opposing character root motion,
	// so dangling bones trail rapid movement without overshooting.
	inertiaScale float32 = 0.25

	// maxDragLoss caps how much velocity drag may remove per substep.
	// Residual motion is never fully zeroed.
	maxDragLoss float32 = 0.98
)

// hangPosition is the recovery pose: rest length below the parent, along
// the bone's gravity direction.
func hangPosition(parentCur Vec3, p BoneParams, restLength float32) Vec3 {
	return parentCur.Add(safeNormalize(p.GravityDir, Down).Mul(restLength))
}

// EffectiveStiffness is the per-substep positional blend factor toward the
// bind-pose target, after settling suppression. Exposed for the settling
// controller's monotonicity contract.
func EffectiveStiffness(stiffness float32, settlingFrames uint32) float32 {
	return clamp01(stiffness * stiffnessGain * StiffnessScale(settlingFrames))
}

// IntegrateBone advances one non-root bone by one substep and returns the
// new (previous, current) position pair. parentCur is the parent's position
// as of the start of the substep; dirFromParent is the unit direction from
// the parent to this bone in bind pose; restLength their bind-pose distance.
//
// The function is total: for any input, including non-finite positions and
// arbitrarily large global forces, both returned positions are finite and,
// when restLength is positive and the parent finite, the current position
// ends exactly restLength from the parent.
func IntegrateBone(prev, cur, parentCur Vec3, p BoneParams, restLength float32, dirFromParent Vec3, gp GlobalParams) (Vec3, Vec3) {
	// Corruption triage. A corrupt current position loses its history too:
	// resetting only one of the pair would fabricate a velocity spike.
	if !Finite(cur) {
		reset := hangPosition(parentCur, p, restLength)
		if !Finite(reset) {
			reset = Vec3{}
		}
		return reset, reset
	}
	if !Finite(prev) {
		prev = cur
	}

	// Implicit Verlet velocity, clamped before it can carry energy forward.
	vel := cur.Sub(prev)
	if speed := vel.Len(); speed > MaxVelocityPerStep {
		vel = vel.Mul(MaxVelocityPerStep / speed)
	}
	if !Finite(vel) {
		vel = Vec3{}
	}

	// History commit: after velocity derivation, before the new position.
	newPrev := cur

	settle := gp.SettlingFrames
	dt := gp.DtSub

	wind := safeNormalize(gp.WindDirection, Vec3{}).Mul(
		Gust(gp.WindAmplitude, gp.WindPhase) * WindReceptivity(p.Drag))

	gravDir := safeNormalize(p.GravityDir, safeNormalize(gp.Gravity, Down))
	gravity := gravDir.Mul(gp.Gravity.Len() * clamp01(p.GravityPower) * GravityBoost(settle))

	var inertial Vec3
	if dt > 0 {
		inertial = gp.ExternalVelocity.Mul(-inertiaScale / dt)
	}

	dragLoss := p.Drag * gp.DragMultiplier * DragScale(settle)
	if dragLoss < 0 {
		dragLoss = 0
	}
	if dragLoss > maxDragLoss {
		dragLoss = maxDragLoss
	}

	newCur := cur.
		Add(vel.Mul(1 - dragLoss)).
		Add(gravity.Add(wind).Add(inertial).Mul(dt * dt))

	// Positional stiffness toward the bind-pose target.
	target := parentCur.Add(safeNormalize(dirFromParent, Down).Mul(restLength))
	newCur = newCur.Add(target.Sub(newCur).Mul(EffectiveStiffness(p.Stiffness, settle)))

	// Step clamp: no single-substep teleportation.
	step := newCur.Sub(cur)
	if d := step.Len(); d > MaxStepDistance {
		newCur = cur.Add(step.Mul(MaxStepDistance / d))
	}

	// Distance-from-parent safety net. Fires before the length projection so
	// a teleported bone also loses its stale history instead of carrying a
	// huge implicit velocity into the next substep.
	if newCur.Sub(parentCur).Len() > MaxParentDistance {
		newCur = hangPosition(parentCur, p, restLength)
		newPrev = newCur
	}

	// Rest-length projection: the link is inextensible. Forces and stiffness
	// shape the direction of motion, the projection fixes the distance, so a
	// zero-stiffness chain still hangs at rest length instead of sinking.
	if restLength > 0 {
		offset := newCur.Sub(parentCur)
		if dist := offset.Len(); dist > 1e-6 && finite(dist) {
			newCur = parentCur.Add(offset.Mul(restLength / dist))
		} else {
			newCur = hangPosition(parentCur, p, restLength)
		}
	}

	// Final sanity check. Prefer a bind-relative reset off the parent; fall
	// back to the last known-good position when the parent is corrupt too.
	if !Finite(newCur) {
		if Finite(parentCur) {
			newCur = hangPosition(parentCur, p, restLength)
		} else {
			newCur = newPrev
		}
		newPrev = newCur
	}

	return newPrev, newCur
}
