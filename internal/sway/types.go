package sway

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is the simulation's position/direction type. float32 throughout,
// matching the device-shared buffer layout.
type Vec3 = mgl32.Vec3

// RootParent marks a kinematically driven root bone in ParentIndex.
// Roots are never simulated; their positions are written externally
// once per frame.
const RootParent uint32 = 0xFFFFFFFF

// Down is the fallback hang direction when a bone carries no usable
// gravity or bind direction.
var Down = Vec3{0, -1, 0}

// BoneParams are the static per-bone simulation parameters. Field order is
// the wire order shared with the accelerator (see layout.go).
type BoneParams struct {
	Stiffness         float32 // [0,1] pull-back strength toward bind pose
	Drag              float32 // [0,1] velocity damping; also wind receptivity
	Radius            float32 // interaction radius against colliders
	ParentIndex       uint32  // RootParent for kinematic roots
	GravityPower      float32 // [0,1] multiplier on global gravity
	ColliderGroupMask uint32  // bit i selects collider group i
	GravityDir        Vec3    // per-bone unit override; zero means global
}

// IsRoot reports whether the bone is kinematically driven.
func (p BoneParams) IsRoot() bool { return p.ParentIndex == RootParent }

// Sphere is a spherical collision volume.
type Sphere struct {
	Center Vec3
	Radius float32
	Group  uint32
}

// Capsule is a collision volume swept between two segment endpoints.
type Capsule struct {
	P0, P1 Vec3
	Radius float32
	Group  uint32
}

// Plane is an infinite half-space collider. Normal points out of the solid.
type Plane struct {
	Point  Vec3
	Normal Vec3
	Group  uint32
}

// GlobalParams is the per-frame parameter block recomputed by the host and
// read-only to the kernels. Field order is the wire order (see layout.go).
type GlobalParams struct {
	Gravity          Vec3
	DtSub            float32 // substep delta-time, seconds
	WindAmplitude    float32
	WindFrequency    float32
	WindPhase        float32
	WindDirection    Vec3
	Substeps         uint32
	NumBones         uint32
	NumSpheres       uint32
	NumCapsules      uint32
	NumPlanes        uint32
	SettlingFrames   uint32 // settling countdown; 0 means steady state
	DragMultiplier   float32
	ExternalVelocity Vec3
}

func finite(f float32) bool {
	f64 := float64(f)
	return !math.IsNaN(f64) && !math.IsInf(f64, 0)
}

// Finite reports whether every component of v is a real number.
func Finite(v Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

// safeNormalize returns v scaled to unit length, or fallback when v is
// degenerate or non-finite.
func safeNormalize(v Vec3, fallback Vec3) Vec3 {
	if !Finite(v) {
		return fallback
	}
	l := v.Len()
	if l < 1e-6 || !finite(l) {
		return fallback
	}
	return v.Mul(1 / l)
}

// Normalized returns v at unit length, falling back to Down for degenerate
// or non-finite input.
func Normalized(v Vec3) Vec3 { return safeNormalize(v, Down) }

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ValidateTopology checks that every non-root bone references a parent with
// a strictly smaller simulation index, so chains stay acyclic and a parent
// is always available before its child within a substep.
func ValidateTopology(params []BoneParams) error {
	for i, p := range params {
		if p.IsRoot() {
			continue
		}
		if int(p.ParentIndex) >= i {
			return ErrBadTopology
		}
	}
	return nil
}
