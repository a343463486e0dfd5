// Package compute dispatches the integration and collision kernels over a
// simulation store.
//
// Two backends exist:
//
//   - CPU: chunked worker-pool execution, always available. Each substep's
//     integration pass fully completes before its collision pass, and each
//     substep before the next.
//   - WebGPU: compute-shader execution of the same kernels, built with
//
//     go build -tags webgpu
//
// Without the tag the WebGPU backend reports unavailable and delegates to
// the CPU. AutoSelect picks the best backend that is actually usable.
package compute
