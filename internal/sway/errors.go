package sway

import "errors"

// Configuration errors. Surfaced synchronously to the caller and fatal to
// that call only; numerical faults are never reported, they self-heal
// inside the kernel.
var (
	// ErrCountMismatch indicates a bulk setter received a slice whose length
	// does not match the allocated count. State is left unchanged.
	ErrCountMismatch = errors.New("sway: input length does not match allocated count")

	// ErrAlreadyAllocated indicates a second Allocate on a live store.
	// Topology changes require tearing the store down and recreating it.
	ErrAlreadyAllocated = errors.New("sway: store already allocated")

	// ErrNotAllocated indicates an operation on a store before Allocate.
	ErrNotAllocated = errors.New("sway: store not allocated")

	// ErrBadTopology indicates a non-root bone whose parent index does not
	// strictly precede it in simulation order.
	ErrBadTopology = errors.New("sway: parent index must precede child in simulation order")

	// ErrIndexRange indicates a bone index outside the allocated buffer.
	ErrIndexRange = errors.New("sway: bone index out of range")

	// ErrNotRoot indicates a kinematic write to a simulated (non-root) bone.
	ErrNotRoot = errors.New("sway: bone is not kinematically driven")
)
