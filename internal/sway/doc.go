// Package sway holds the core types and per-bone kernels of the
// secondary-motion simulation: dangling bone chains (hair, cloth,
// accessories) advanced by Verlet integration with position-based
// stiffness, pushed out of colliders, and biased toward their rest
// pose during settling.
//
// Everything in this package is branch-heavy but loop-free and
// allocation-free per bone, so the same logic runs unchanged on the
// CPU worker pool and mirrors the WGSL compute kernel.
package sway
