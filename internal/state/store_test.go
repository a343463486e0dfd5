package state

import (
	"errors"
	"testing"

	"github.com/san-kum/swaysim/internal/sway"
)

func newChainStore(t *testing.T, bones int) *Store {
	t.Helper()

	s := New()
	if err := s.Allocate(bones, 0, 0, 0); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	params := make([]sway.BoneParams, bones)
	pose := make([]sway.Vec3, bones)
	rest := make([]float32, bones)
	for i := range params {
		if i == 0 {
			params[i].ParentIndex = sway.RootParent
		} else {
			params[i].ParentIndex = uint32(i - 1)
			rest[i] = 0.1
		}
		params[i].Stiffness = 0.3
		params[i].Drag = 0.4
		pose[i] = sway.Vec3{0, 2 - 0.1*float32(i), 0}
	}
	if err := s.SetBoneParameters(params); err != nil {
		t.Fatalf("set params: %v", err)
	}
	if err := s.SetRestLengths(rest); err != nil {
		t.Fatalf("set rest: %v", err)
	}
	if err := s.SetBindPose(pose); err != nil {
		t.Fatalf("set bind pose: %v", err)
	}
	return s
}

func TestAllocateOnce(t *testing.T) {
	s := New()
	if err := s.Allocate(4, 1, 1, 1); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := s.Allocate(4, 1, 1, 1); !errors.Is(err, sway.ErrAlreadyAllocated) {
		t.Errorf("second allocate: got %v, want ErrAlreadyAllocated", err)
	}
	if !s.Allocated() {
		t.Error("store should report allocated")
	}
	if s.Bones() != 4 {
		t.Errorf("bones = %d, want 4", s.Bones())
	}
	sp, ca, pl := s.ColliderCounts()
	if sp != 1 || ca != 1 || pl != 1 {
		t.Errorf("collider counts = %d/%d/%d, want 1/1/1", sp, ca, pl)
	}
}

func TestAllocateRejectsBadCounts(t *testing.T) {
	if err := New().Allocate(0, 0, 0, 0); err == nil {
		t.Error("zero bones should be rejected")
	}
	if err := New().Allocate(1, -1, 0, 0); err == nil {
		t.Error("negative collider count should be rejected")
	}
}

func TestOperationsBeforeAllocate(t *testing.T) {
	s := New()
	if err := s.SetBoneParameters(nil); !errors.Is(err, sway.ErrNotAllocated) {
		t.Errorf("SetBoneParameters: got %v", err)
	}
	if err := s.SetBindPose(nil); !errors.Is(err, sway.ErrNotAllocated) {
		t.Errorf("SetBindPose: got %v", err)
	}
	if err := s.Dispatch(func(*Buffers) error { return nil }); !errors.Is(err, sway.ErrNotAllocated) {
		t.Errorf("Dispatch: got %v", err)
	}
}

func TestCountMismatchRejected(t *testing.T) {
	s := New()
	if err := s.Allocate(3, 1, 0, 0); err != nil {
		t.Fatal(err)
	}

	if err := s.SetBoneParameters(make([]sway.BoneParams, 2)); !errors.Is(err, sway.ErrCountMismatch) {
		t.Errorf("short params: got %v", err)
	}
	if err := s.SetRestLengths(make([]float32, 4)); !errors.Is(err, sway.ErrCountMismatch) {
		t.Errorf("long rest lengths: got %v", err)
	}
	if err := s.SetColliders(nil, nil, nil); !errors.Is(err, sway.ErrCountMismatch) {
		t.Errorf("missing spheres: got %v", err)
	}
}

func TestCountMismatchLeavesStateUnchanged(t *testing.T) {
	s := newChainStore(t, 3)

	bad := make([]sway.BoneParams, 2)
	if err := s.SetBoneParameters(bad); !errors.Is(err, sway.ErrCountMismatch) {
		t.Fatalf("got %v", err)
	}

	// The earlier pose still reads back intact.
	pos := s.Positions()
	if len(pos) != 3 || pos[0] != (sway.Vec3{0, 2, 0}) {
		t.Errorf("rejected write disturbed state: %v", pos)
	}
}

func TestSetBoneParametersValidatesTopology(t *testing.T) {
	s := New()
	if err := s.Allocate(2, 0, 0, 0); err != nil {
		t.Fatal(err)
	}

	bad := []sway.BoneParams{{ParentIndex: sway.RootParent}, {ParentIndex: 1}}
	if err := s.SetBoneParameters(bad); !errors.Is(err, sway.ErrBadTopology) {
		t.Errorf("got %v, want ErrBadTopology", err)
	}
}

func TestSetBindPoseRequiresParameters(t *testing.T) {
	s := New()
	if err := s.Allocate(2, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBindPose(make([]sway.Vec3, 2)); err == nil {
		t.Error("bind pose before parameters should be rejected")
	}
}

func TestSetBindPoseDerivesDirections(t *testing.T) {
	s := newChainStore(t, 3)

	err := s.Dispatch(func(b *Buffers) error {
		if b.BindDirs[0] != sway.Down {
			t.Errorf("root direction should default down, got %v", b.BindDirs[0])
		}
		want := sway.Vec3{0, -1, 0}
		if b.BindDirs[1].Sub(want).Len() > 1e-5 {
			t.Errorf("child direction = %v, want %v", b.BindDirs[1], want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSetRootPosition(t *testing.T) {
	s := newChainStore(t, 3)

	if err := s.SetRootPosition(0, sway.Vec3{1, 2, 3}); err != nil {
		t.Fatalf("root write: %v", err)
	}
	if got := s.Positions()[0]; got != (sway.Vec3{1, 2, 3}) {
		t.Errorf("root position = %v", got)
	}

	if err := s.SetRootPosition(1, sway.Vec3{}); !errors.Is(err, sway.ErrNotRoot) {
		t.Errorf("simulated bone write: got %v, want ErrNotRoot", err)
	}
	if err := s.SetRootPosition(7, sway.Vec3{}); !errors.Is(err, sway.ErrIndexRange) {
		t.Errorf("out of range write: got %v, want ErrIndexRange", err)
	}
}

func TestPositionsSnapshotIsCopy(t *testing.T) {
	s := newChainStore(t, 2)

	snap := s.Positions()
	snap[0] = sway.Vec3{99, 99, 99}

	if got := s.Positions()[0]; got == (sway.Vec3{99, 99, 99}) {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestSwapCommitsScratchPair(t *testing.T) {
	s := newChainStore(t, 2)

	err := s.Dispatch(func(b *Buffers) error {
		b.ScratchPrev[1] = sway.Vec3{1, 1, 1}
		b.ScratchCur[1] = sway.Vec3{2, 2, 2}
		b.Swap()

		if b.Cur[1] != (sway.Vec3{2, 2, 2}) || b.Prev[1] != (sway.Vec3{1, 1, 1}) {
			t.Error("swap did not promote the scratch pair")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Positions()[1]; got != (sway.Vec3{2, 2, 2}) {
		t.Errorf("committed position = %v, want {2 2 2}", got)
	}
}

func TestZeroVelocity(t *testing.T) {
	s := newChainStore(t, 2)

	err := s.Dispatch(func(b *Buffers) error {
		b.Prev[1] = sway.Vec3{5, 5, 5}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	s.ZeroVelocity()
	err = s.Dispatch(func(b *Buffers) error {
		if b.Prev[1] != b.Cur[1] {
			t.Error("previous should match current after ZeroVelocity")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSetCollidersRoundTrip(t *testing.T) {
	s := New()
	if err := s.Allocate(1, 1, 1, 1); err != nil {
		t.Fatal(err)
	}
	params := []sway.BoneParams{{ParentIndex: sway.RootParent}}
	if err := s.SetBoneParameters(params); err != nil {
		t.Fatal(err)
	}

	sphere := sway.Sphere{Center: sway.Vec3{0, 1, 0}, Radius: 0.5, Group: 1}
	capsule := sway.Capsule{P0: sway.Vec3{0, 0, 0}, P1: sway.Vec3{0, 1, 0}, Radius: 0.2}
	plane := sway.Plane{Normal: sway.Vec3{0, 1, 0}}
	if err := s.SetColliders([]sway.Sphere{sphere}, []sway.Capsule{capsule}, []sway.Plane{plane}); err != nil {
		t.Fatal(err)
	}

	err := s.Dispatch(func(b *Buffers) error {
		if b.Spheres[0] != sphere || b.Capsules[0] != capsule || b.Planes[0] != plane {
			t.Error("collider round trip mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
