// Package state owns the simulation's only mutable physical state: the
// structure-of-arrays position buffers shared between the host and the
// compute backend, plus the static parameter and collider buffers.
package state

import (
	"fmt"
	"sync"

	"github.com/san-kum/swaysim/internal/sway"
)

// Store holds all per-bone and per-collider buffers for one character.
// Buffer sizes are fixed at Allocate; topology changes require tearing the
// store down and creating a new one.
//
// Exactly one writer owns the buffers during a frame's dispatch window
// (Dispatch takes the write lock); host reads snapshot under the read lock
// and therefore always observe a whole frame, never a torn substep.
type Store struct {
	mu sync.RWMutex

	allocated bool
	hasParams bool

	params   []sway.BoneParams
	rest     []float32
	bindDirs []sway.Vec3 // unit direction parent -> bone in bind pose
	bindPose []sway.Vec3

	prev, cur []sway.Vec3
	// Scratch pair written by the integration pass and swapped in after
	// each substep, so parallel bone updates never read a half-written
	// neighbour. Parent reads see the prior substep's committed value.
	scratchPrev, scratchCur []sway.Vec3

	spheres  []sway.Sphere
	capsules []sway.Capsule
	planes   []sway.Plane
}

// New returns an unallocated store.
func New() *Store { return &Store{} }

// Allocate sizes every buffer. It may be called once per store.
func (s *Store) Allocate(bones, spheres, capsules, planes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocated {
		return sway.ErrAlreadyAllocated
	}
	if bones <= 0 {
		return fmt.Errorf("sway: allocate: need at least one bone, got %d", bones)
	}
	if spheres < 0 || capsules < 0 || planes < 0 {
		return fmt.Errorf("sway: allocate: negative collider count")
	}

	s.params = make([]sway.BoneParams, bones)
	s.rest = make([]float32, bones)
	s.bindDirs = make([]sway.Vec3, bones)
	s.bindPose = make([]sway.Vec3, bones)
	s.prev = make([]sway.Vec3, bones)
	s.cur = make([]sway.Vec3, bones)
	s.scratchPrev = make([]sway.Vec3, bones)
	s.scratchCur = make([]sway.Vec3, bones)
	s.spheres = make([]sway.Sphere, spheres)
	s.capsules = make([]sway.Capsule, capsules)
	s.planes = make([]sway.Plane, planes)
	s.allocated = true
	return nil
}

// Allocated reports whether Allocate has succeeded.
func (s *Store) Allocated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocated
}

// Bones returns the allocated bone count.
func (s *Store) Bones() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.params)
}

// ColliderCounts returns the allocated sphere, capsule and plane counts.
func (s *Store) ColliderCounts() (int, int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spheres), len(s.capsules), len(s.planes)
}

// SetBoneParameters bulk-overwrites the static bone parameters. The input
// length must exactly match the allocated bone count and the topology must
// order parents before children; otherwise the call is rejected and state
// is left unchanged.
func (s *Store) SetBoneParameters(params []sway.BoneParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated {
		return sway.ErrNotAllocated
	}
	if len(params) != len(s.params) {
		return sway.ErrCountMismatch
	}
	if err := sway.ValidateTopology(params); err != nil {
		return err
	}
	copy(s.params, params)
	s.hasParams = true
	return nil
}

// SetRestLengths bulk-overwrites the bind-pose parent distances.
func (s *Store) SetRestLengths(lengths []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated {
		return sway.ErrNotAllocated
	}
	if len(lengths) != len(s.rest) {
		return sway.ErrCountMismatch
	}
	copy(s.rest, lengths)
	return nil
}

// SetColliders bulk-overwrites the collider set. All three lengths must
// match their allocated counts or nothing is written. Legal between frames
// whenever no dispatch is in flight; colliders are immutable during one.
func (s *Store) SetColliders(spheres []sway.Sphere, capsules []sway.Capsule, planes []sway.Plane) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated {
		return sway.ErrNotAllocated
	}
	if len(spheres) != len(s.spheres) || len(capsules) != len(s.capsules) || len(planes) != len(s.planes) {
		return sway.ErrCountMismatch
	}
	copy(s.spheres, spheres)
	copy(s.capsules, capsules)
	copy(s.planes, planes)
	return nil
}

// SetBindPose seeds both position buffers with the rest configuration and
// derives each bone's bind direction from its parent. Until the first step
// runs, position reads return exactly this pose. Requires bone parameters
// to be set first, since directions follow the parent links.
func (s *Store) SetBindPose(pose []sway.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated {
		return sway.ErrNotAllocated
	}
	if !s.hasParams {
		return fmt.Errorf("sway: bind pose requires bone parameters: %w", sway.ErrNotAllocated)
	}
	if len(pose) != len(s.bindPose) {
		return sway.ErrCountMismatch
	}

	copy(s.bindPose, pose)
	copy(s.prev, pose)
	copy(s.cur, pose)
	for i, p := range s.params {
		if p.IsRoot() {
			s.bindDirs[i] = sway.Down
			continue
		}
		s.bindDirs[i] = sway.Normalized(pose[i].Sub(pose[p.ParentIndex]))
	}
	return nil
}

// SetRootPosition kinematically drives one root bone. Rejected for
// simulated bones; only the retargeting collaborator moves those, one
// substep at a time.
func (s *Store) SetRootPosition(i int, pos sway.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated {
		return sway.ErrNotAllocated
	}
	if i < 0 || i >= len(s.params) {
		return sway.ErrIndexRange
	}
	if !s.params[i].IsRoot() {
		return sway.ErrNotRoot
	}
	s.prev[i] = pos
	s.cur[i] = pos
	return nil
}

// Positions returns a snapshot copy of the current pose. Never torn: the
// snapshot is taken under the read lock, between dispatches.
func (s *Store) Positions() []sway.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sway.Vec3, len(s.cur))
	copy(out, s.cur)
	return out
}

// BindPose returns a snapshot copy of the rest configuration.
func (s *Store) BindPose() []sway.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sway.Vec3, len(s.bindPose))
	copy(out, s.bindPose)
	return out
}

// ZeroVelocity collapses the implicit velocity of every bone by matching
// the previous buffer to the current one. Used on reset.
func (s *Store) ZeroVelocity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.prev, s.cur)
}

// Buffers is the kernel-facing view of the store, valid only inside a
// Dispatch callback. The integration pass reads Prev/Cur and writes
// ScratchPrev/ScratchCur, then calls Swap to commit the substep; the
// collision pass mutates Cur in place, one bone per slot.
type Buffers struct {
	Params   []sway.BoneParams
	Rest     []float32
	BindDirs []sway.Vec3

	Prev, Cur               []sway.Vec3
	ScratchPrev, ScratchCur []sway.Vec3

	Spheres  []sway.Sphere
	Capsules []sway.Capsule
	Planes   []sway.Plane

	store *Store
}

// Swap commits a substep by promoting the scratch pair to prev/cur.
func (b *Buffers) Swap() {
	s := b.store
	s.prev, s.scratchPrev = s.scratchPrev, s.prev
	s.cur, s.scratchCur = s.scratchCur, s.cur
	b.Prev, b.ScratchPrev = s.prev, s.scratchPrev
	b.Cur, b.ScratchCur = s.cur, s.scratchCur
}

// Dispatch hands exclusive buffer ownership to the kernel pipeline for one
// frame. Host snapshot reads block until fn returns, so they never observe
// a partially advanced frame.
func (s *Store) Dispatch(fn func(*Buffers) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated {
		return sway.ErrNotAllocated
	}
	b := &Buffers{
		Params:      s.params,
		Rest:        s.rest,
		BindDirs:    s.bindDirs,
		Prev:        s.prev,
		Cur:         s.cur,
		ScratchPrev: s.scratchPrev,
		ScratchCur:  s.scratchCur,
		Spheres:     s.spheres,
		Capsules:    s.capsules,
		Planes:      s.planes,
		store:       s,
	}
	return fn(b)
}
