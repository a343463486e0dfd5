// Package rig builds simulation-ready bone chains. A rig is a set of named
// chains (hair strands, cloth strips, tails); building it flattens every
// chain into the parent-before-child bone order the kernels require and
// derives the bind pose the store is seeded with.
package rig

import (
	"fmt"

	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

// Chain describes one dangling strand. Bone 0 is the kinematic root pinned
// at Root; the remaining Bones-1 bones are simulated, laid out along
// Direction at equal spacing. Per-bone coefficients interpolate linearly
// from the root value to the tip value, so strands go soft toward the end
// the way hair does.
type Chain struct {
	Name string

	Root      sway.Vec3
	Direction sway.Vec3 // bind-pose layout direction; normalized at build
	Bones     int       // total bones including the root, minimum 2
	Length    float32   // root-to-tip distance

	Stiffness    float32
	TipStiffness float32 // 0 means same as Stiffness
	Drag         float32
	TipDrag      float32 // 0 means same as Drag
	Radius       float32
	GravityPower float32

	ColliderGroupMask uint32
	GravityDir        sway.Vec3 // zero means global gravity direction
}

// Rig is an ordered set of chains sharing one store.
type Rig struct {
	Chains []Chain
}

// Bones returns the total bone count across all chains.
func (r *Rig) Bones() int {
	n := 0
	for _, c := range r.Chains {
		n += c.Bones
	}
	return n
}

// Validate checks every chain for buildability.
func (r *Rig) Validate() error {
	if len(r.Chains) == 0 {
		return fmt.Errorf("rig: no chains")
	}
	for i, c := range r.Chains {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("chain %d", i)
		}
		if c.Bones < 2 {
			return fmt.Errorf("rig: %s: need a root and at least one simulated bone, got %d", name, c.Bones)
		}
		if c.Length <= 0 || !sway.Finite(sway.Vec3{c.Length, 0, 0}) {
			return fmt.Errorf("rig: %s: length must be positive and finite", name)
		}
		if !sway.Finite(c.Root) || !sway.Finite(c.Direction) {
			return fmt.Errorf("rig: %s: non-finite geometry", name)
		}
	}
	return nil
}

// Build flattens the rig into the store's bulk-upload arrays. Bone order is
// chain by chain, root first within each chain, so every parent index is
// strictly smaller than its child's.
func (r *Rig) Build() (params []sway.BoneParams, rest []float32, pose []sway.Vec3, err error) {
	if err := r.Validate(); err != nil {
		return nil, nil, nil, err
	}

	total := r.Bones()
	params = make([]sway.BoneParams, 0, total)
	rest = make([]float32, 0, total)
	pose = make([]sway.Vec3, 0, total)

	for _, c := range r.Chains {
		dir := sway.Normalized(c.Direction)
		segments := c.Bones - 1
		spacing := c.Length / float32(segments)

		tipStiffness := c.TipStiffness
		if tipStiffness == 0 {
			tipStiffness = c.Stiffness
		}
		tipDrag := c.TipDrag
		if tipDrag == 0 {
			tipDrag = c.Drag
		}

		base := len(params)
		for b := 0; b < c.Bones; b++ {
			t := float32(b) / float32(segments)
			p := sway.BoneParams{
				Stiffness:         lerp(c.Stiffness, tipStiffness, t),
				Drag:              lerp(c.Drag, tipDrag, t),
				Radius:            c.Radius,
				ParentIndex:       uint32(base + b - 1),
				GravityPower:      c.GravityPower,
				ColliderGroupMask: c.ColliderGroupMask,
				GravityDir:        c.GravityDir,
			}
			length := spacing
			if b == 0 {
				p.ParentIndex = sway.RootParent
				length = 0
			}
			params = append(params, p)
			rest = append(rest, length)
			pose = append(pose, c.Root.Add(dir.Mul(spacing*float32(b))))
		}
	}
	return params, rest, pose, nil
}

// NewStore allocates and fully seeds a store for the rig plus the given
// collider budget.
func (r *Rig) NewStore(spheres, capsules, planes int) (*state.Store, error) {
	params, rest, pose, err := r.Build()
	if err != nil {
		return nil, err
	}

	st := state.New()
	if err := st.Allocate(len(params), spheres, capsules, planes); err != nil {
		return nil, err
	}
	if err := st.SetBoneParameters(params); err != nil {
		return nil, err
	}
	if err := st.SetRestLengths(rest); err != nil {
		return nil, err
	}
	if err := st.SetBindPose(pose); err != nil {
		return nil, err
	}
	return st, nil
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
