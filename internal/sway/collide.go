package sway

// GroupHits reports whether a collider group index is selected by a bone's
// collision mask. Group indices beyond the mask width never hit.
func GroupHits(mask, group uint32) bool {
	if group >= 32 {
		return false
	}
	return mask&(1<<group) != 0
}

// pushOut projects pos to the surface of a sphere of radius minDist around
// center when it penetrates. Only the position moves; the caller leaves the
// previous position untouched, so the next substep's implicit velocity
// reflects the correction and contact slides instead of sticking.
func pushOut(pos, center Vec3, minDist float32) (Vec3, bool) {
	delta := pos.Sub(center)
	dist := delta.Len()
	if dist >= minDist {
		return pos, false
	}
	if dist < 1e-6 {
		// Dead center: push along a fixed axis rather than divide by zero.
		return center.Add(Vec3{0, minDist, 0}), true
	}
	return center.Add(delta.Mul(minDist / dist)), true
}

// ResolveSphere pushes a bone of the given radius out of s.
func ResolveSphere(pos Vec3, radius float32, s Sphere) (Vec3, bool) {
	return pushOut(pos, s.Center, s.Radius+radius)
}

// ResolveCapsule pushes a bone out of c by resolving against the closest
// point on the capsule's core segment.
func ResolveCapsule(pos Vec3, radius float32, c Capsule) (Vec3, bool) {
	axis := c.P1.Sub(c.P0)
	lenSq := axis.Dot(axis)
	t := float32(0)
	if lenSq > 1e-12 {
		t = clamp01(pos.Sub(c.P0).Dot(axis) / lenSq)
	}
	closest := c.P0.Add(axis.Mul(t))
	return pushOut(pos, closest, c.Radius+radius)
}

// ResolvePlane pushes a bone out of the half-space behind p.
func ResolvePlane(pos Vec3, radius float32, p Plane) (Vec3, bool) {
	n := safeNormalize(p.Normal, Vec3{0, 1, 0})
	depth := pos.Sub(p.Point).Dot(n) - radius
	if depth >= 0 {
		return pos, false
	}
	return pos.Sub(n.Mul(depth)), true
}

// ResolveColliders resolves one bone position against every collider whose
// group is selected by the bone's mask. The mask test is an integer AND and
// runs before any distance math.
func ResolveColliders(pos Vec3, radius float32, mask uint32, spheres []Sphere, capsules []Capsule, planes []Plane) Vec3 {
	for _, s := range spheres {
		if !GroupHits(mask, s.Group) {
			continue
		}
		pos, _ = ResolveSphere(pos, radius, s)
	}
	for _, c := range capsules {
		if !GroupHits(mask, c.Group) {
			continue
		}
		pos, _ = ResolveCapsule(pos, radius, c)
	}
	for _, p := range planes {
		if !GroupHits(mask, p.Group) {
			continue
		}
		pos, _ = ResolvePlane(pos, radius, p)
	}
	return pos
}
