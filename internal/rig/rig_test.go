package rig

import (
	"testing"

	"github.com/san-kum/swaysim/internal/sway"
)

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func twoChainRig() *Rig {
	return &Rig{Chains: []Chain{
		{
			Name:         "left",
			Root:         sway.Vec3{-0.1, 1.7, 0},
			Direction:    sway.Vec3{0, -1, 0},
			Bones:        4,
			Length:       0.3,
			Stiffness:    0.4,
			TipStiffness: 0.1,
			Drag:         0.3,
			TipDrag:      0.6,
			Radius:       0.02,
			GravityPower: 1,
		},
		{
			Name:         "right",
			Root:         sway.Vec3{0.1, 1.7, 0},
			Direction:    sway.Vec3{0, -2, 0}, // normalized at build
			Bones:        3,
			Length:       0.2,
			Stiffness:    0.4,
			Drag:         0.3,
			Radius:       0.02,
			GravityPower: 1,
		},
	}}
}

func TestBuildParentOrdering(t *testing.T) {
	params, _, _, err := twoChainRig().Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 7 {
		t.Fatalf("bone count %d, want 7", len(params))
	}

	if err := sway.ValidateTopology(params); err != nil {
		t.Fatalf("built topology invalid: %v", err)
	}
	if !params[0].IsRoot() || !params[4].IsRoot() {
		t.Error("each chain should start with a root")
	}
	if params[1].ParentIndex != 0 || params[5].ParentIndex != 4 {
		t.Error("chain-local parents misindexed")
	}
}

func TestBuildPoseAndRestLengths(t *testing.T) {
	_, rest, pose, err := twoChainRig().Build()
	if err != nil {
		t.Fatal(err)
	}

	if rest[0] != 0 {
		t.Error("root rest length should be 0")
	}
	if abs32(rest[1]-0.1) > 1e-6 {
		t.Errorf("segment rest = %f, want 0.1", rest[1])
	}

	// Tip of the 4-bone chain sits Length below the root.
	tip := pose[3]
	want := sway.Vec3{-0.1, 1.4, 0}
	if tip.Sub(want).Len() > 1e-5 {
		t.Errorf("tip pose %v, want %v", tip, want)
	}

	// Second chain's direction is normalized before layout.
	if pose[5].Sub(sway.Vec3{0.1, 1.6, 0}).Len() > 1e-5 {
		t.Errorf("second chain bone misplaced: %v", pose[5])
	}
}

func TestBuildTapersCoefficients(t *testing.T) {
	params, _, _, err := twoChainRig().Build()
	if err != nil {
		t.Fatal(err)
	}

	if params[0].Stiffness != 0.4 {
		t.Errorf("root stiffness %f, want 0.4", params[0].Stiffness)
	}
	if abs32(params[3].Stiffness-0.1) > 1e-6 {
		t.Errorf("tip stiffness %f, want 0.1", params[3].Stiffness)
	}
	if !(params[1].Stiffness > params[2].Stiffness) {
		t.Error("stiffness should taper toward the tip")
	}
	if !(params[1].Drag < params[2].Drag) {
		t.Error("drag should grow toward the tip")
	}

	// Zero tip values inherit the base coefficient along the whole chain.
	if params[6].Stiffness != 0.4 || params[6].Drag != 0.3 {
		t.Error("unset tip coefficients should not taper")
	}
}

func TestValidateRejectsBadChains(t *testing.T) {
	cases := []struct {
		name string
		rig  Rig
	}{
		{"empty", Rig{}},
		{"one bone", Rig{Chains: []Chain{{Bones: 1, Length: 1}}}},
		{"zero length", Rig{Chains: []Chain{{Bones: 3, Length: 0}}}},
		{"negative length", Rig{Chains: []Chain{{Bones: 3, Length: -1}}}},
	}
	for _, c := range cases {
		if err := c.rig.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestNewStoreSeedsEverything(t *testing.T) {
	r := twoChainRig()
	st, err := r.NewStore(1, 0, 2)
	if err != nil {
		t.Fatal(err)
	}

	if st.Bones() != r.Bones() {
		t.Errorf("store bones %d, want %d", st.Bones(), r.Bones())
	}
	sp, ca, pl := st.ColliderCounts()
	if sp != 1 || ca != 0 || pl != 2 {
		t.Errorf("collider counts %d/%d/%d, want 1/0/2", sp, ca, pl)
	}

	// Seeded pose reads back as bind pose.
	pos := st.Positions()
	if pos[0] != (sway.Vec3{-0.1, 1.7, 0}) {
		t.Errorf("root pose %v", pos[0])
	}
	bind := st.BindPose()
	for i := range pos {
		if pos[i] != bind[i] {
			t.Errorf("bone %d: positions %v differ from bind pose %v", i, pos[i], bind[i])
		}
	}
}
