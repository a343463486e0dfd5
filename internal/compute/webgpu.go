//go:build webgpu

package compute

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

//go:embed kernel.wgsl
var kernelWGSL string

const workgroupSize = 64

// WebGPUBackend runs the integration and collision kernels as compute
// shaders. Positions live in two ping-pong buffer pairs; each substep reads
// one pair and writes the other, which is the device-side equivalent of the
// CPU backend's scratch-and-swap protocol.
type WebGPUBackend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	integrate *wgpu.ComputePipeline
	collide   *wgpu.ComputePipeline
	layout    *wgpu.BindGroupLayout

	res *gpuResources
	err error
}

// gpuResources is the per-geometry buffer set, rebuilt whenever the bone or
// collider allocation changes.
type gpuResources struct {
	bones         int
	colliderBytes int

	globals   *wgpu.Buffer
	params    *wgpu.Buffer
	rest      *wgpu.Buffer
	dirs      *wgpu.Buffer
	posPrev   [2]*wgpu.Buffer
	posCur    [2]*wgpu.Buffer
	colliders *wgpu.Buffer
	staging   *wgpu.Buffer

	bindGroups [2]*wgpu.BindGroup
}

func NewWebGPUBackend() *WebGPUBackend {
	g := &WebGPUBackend{}
	g.err = g.init()
	if g.err != nil {
		g.Cleanup()
	}
	return g
}

func (g *WebGPUBackend) init() error {
	g.instance = wgpu.CreateInstance(nil)
	if g.instance == nil {
		return fmt.Errorf("webgpu: no instance")
	}

	adapter, err := g.instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil {
		return fmt.Errorf("webgpu: request adapter: %w", err)
	}
	g.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "sway device",
	})
	if err != nil {
		return fmt.Errorf("webgpu: request device: %w", err)
	}
	g.device = device
	g.queue = device.GetQueue()

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "sway kernels",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: kernelWGSL,
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: compile kernels: %w", err)
	}

	entries := make([]wgpu.BindGroupLayoutEntry, 9)
	for i := range entries {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageCompute,
		}
		entries[i].Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	}
	// Bindings 6 and 7 are the output position pair; everything else is
	// read-only to the kernels.
	entries[6].Buffer.Type = wgpu.BufferBindingTypeStorage
	entries[7].Buffer.Type = wgpu.BufferBindingTypeStorage

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "sway bind group layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("webgpu: bind group layout: %w", err)
	}
	g.layout = layout

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "sway pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return fmt.Errorf("webgpu: pipeline layout: %w", err)
	}

	for _, entry := range []struct {
		name string
		dst  **wgpu.ComputePipeline
	}{
		{"integrate", &g.integrate},
		{"collide", &g.collide},
	} {
		p, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  "sway " + entry.name,
			Layout: pipelineLayout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: entry.name,
			},
		})
		if err != nil {
			return fmt.Errorf("webgpu: %s pipeline: %w", entry.name, err)
		}
		*entry.dst = p
	}

	return nil
}

func (g *WebGPUBackend) Name() string    { return "webgpu" }
func (g *WebGPUBackend) Available() bool { return g.err == nil && g.device != nil }

func (g *WebGPUBackend) Cleanup() {
	if g.res != nil {
		g.res.release()
		g.res = nil
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}

func (g *WebGPUBackend) Step(st *state.Store, gp sway.GlobalParams) error {
	if !g.Available() {
		return NewCPUBackend().Step(st, gp)
	}
	return st.Dispatch(func(b *state.Buffers) error {
		return g.step(b, gp)
	})
}

func (g *WebGPUBackend) step(b *state.Buffers, gp sway.GlobalParams) error {
	n := len(b.Params)
	if n == 0 {
		return nil
	}

	colliderData := packColliders(b.Spheres, b.Capsules, b.Planes)
	if err := g.ensureResources(n, len(colliderData)); err != nil {
		return err
	}
	res := g.res

	g.queue.WriteBuffer(res.globals, 0, gp.Marshal())
	g.queue.WriteBuffer(res.params, 0, sway.PackBoneParams(b.Params))
	g.queue.WriteBuffer(res.rest, 0, packF32(b.Rest))
	g.queue.WriteBuffer(res.dirs, 0, sway.PackPositions(b.BindDirs))
	g.queue.WriteBuffer(res.posPrev[0], 0, sway.PackPositions(b.Prev))
	g.queue.WriteBuffer(res.posCur[0], 0, sway.PackPositions(b.Cur))
	if len(colliderData) > 0 {
		g.queue.WriteBuffer(res.colliders, 0, colliderData)
	}

	steps := int(gp.Substeps)
	if steps < 1 {
		steps = 1
	}
	groups := uint32((n + workgroupSize - 1) / workgroupSize)

	encoder, err := g.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: command encoder: %w", err)
	}

	for s := 0; s < steps; s++ {
		bg := res.bindGroups[s%2]

		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(g.integrate)
		pass.SetBindGroup(0, bg, nil)
		pass.DispatchWorkgroups(groups, 1, 1)
		pass.End()

		// Collision mutates the pair the integration pass just wrote, so
		// it runs in its own pass with the same bindings.
		pass = encoder.BeginComputePass(nil)
		pass.SetPipeline(g.collide)
		pass.SetBindGroup(0, bg, nil)
		pass.DispatchWorkgroups(groups, 1, 1)
		pass.End()
	}

	// bindGroups[0] writes pair 1 and bindGroups[1] writes pair 0, so the
	// committed pair after the last substep is steps mod 2.
	final := steps % 2
	posBytes := uint64(n * sway.PositionSize)
	encoder.CopyBufferToBuffer(res.posPrev[final], 0, res.staging, 0, posBytes)
	encoder.CopyBufferToBuffer(res.posCur[final], 0, res.staging, posBytes, posBytes)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: encode: %w", err)
	}
	g.queue.Submit(cmd)

	var mapErr error
	err = res.staging.MapAsync(wgpu.MapModeRead, 0, 2*posBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("webgpu: readback map status %v", status)
		}
	})
	if err != nil {
		return fmt.Errorf("webgpu: readback map: %w", err)
	}
	g.device.Poll(true, nil)
	if mapErr != nil {
		return mapErr
	}

	data := res.staging.GetMappedRange(0, uint(2*posBytes))
	sway.UnpackPositions(data[:posBytes], b.Prev)
	sway.UnpackPositions(data[posBytes:], b.Cur)
	res.staging.Unmap()

	return nil
}

// ensureResources (re)builds the buffer set when the bone count or collider
// byte size changes. Bind groups reference buffer identity, so they are
// rebuilt alongside.
func (g *WebGPUBackend) ensureResources(bones, colliderBytes int) error {
	if g.res != nil && g.res.bones == bones && g.res.colliderBytes == colliderBytes {
		return nil
	}
	if g.res != nil {
		g.res.release()
		g.res = nil
	}

	res := &gpuResources{bones: bones, colliderBytes: colliderBytes}
	posBytes := uint64(bones * sway.PositionSize)

	mk := func(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
		if size == 0 {
			size = 4
		}
		return g.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  size,
			Usage: usage,
		})
	}

	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	var err error
	if res.globals, err = mk("sway globals", sway.GlobalParamsSize, storage); err == nil {
		if res.params, err = mk("sway bone params", uint64(bones*sway.BoneParamsSize), storage); err == nil {
			if res.rest, err = mk("sway rest lengths", uint64(bones*4), storage); err == nil {
				res.dirs, err = mk("sway bind dirs", posBytes, storage)
			}
		}
	}
	if err == nil {
		res.colliders, err = mk("sway colliders", uint64(colliderBytes), storage)
	}
	for i := 0; i < 2 && err == nil; i++ {
		if res.posPrev[i], err = mk(fmt.Sprintf("sway prev %d", i), posBytes, storage|wgpu.BufferUsageCopySrc); err == nil {
			res.posCur[i], err = mk(fmt.Sprintf("sway cur %d", i), posBytes, storage|wgpu.BufferUsageCopySrc)
		}
	}
	if err == nil {
		res.staging, err = mk("sway staging", 2*posBytes, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	}
	if err != nil {
		res.release()
		return fmt.Errorf("webgpu: allocate buffers: %w", err)
	}

	for i := 0; i < 2; i++ {
		in, out := i, 1-i
		bg, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("sway bind group %d", i),
			Layout: g.layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: res.globals, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: res.params, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: res.rest, Size: wgpu.WholeSize},
				{Binding: 3, Buffer: res.dirs, Size: wgpu.WholeSize},
				{Binding: 4, Buffer: res.posPrev[in], Size: wgpu.WholeSize},
				{Binding: 5, Buffer: res.posCur[in], Size: wgpu.WholeSize},
				{Binding: 6, Buffer: res.posPrev[out], Size: wgpu.WholeSize},
				{Binding: 7, Buffer: res.posCur[out], Size: wgpu.WholeSize},
				{Binding: 8, Buffer: res.colliders, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			res.release()
			return fmt.Errorf("webgpu: bind group %d: %w", i, err)
		}
		res.bindGroups[i] = bg
	}

	g.res = res
	return nil
}

func (r *gpuResources) release() {
	for _, bg := range r.bindGroups {
		if bg != nil {
			bg.Release()
		}
	}
	for _, buf := range []*wgpu.Buffer{
		r.globals, r.params, r.rest, r.dirs,
		r.posPrev[0], r.posPrev[1], r.posCur[0], r.posCur[1],
		r.colliders, r.staging,
	} {
		if buf != nil {
			buf.Release()
		}
	}
}

func packF32(vals []float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, f := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// packColliders concatenates the three collider arrays in the order the
// kernel indexes them: spheres, then capsules, then planes. Counts travel in
// the globals block.
func packColliders(spheres []sway.Sphere, capsules []sway.Capsule, planes []sway.Plane) []byte {
	size := len(spheres)*sway.SphereSize + len(capsules)*sway.CapsuleSize + len(planes)*sway.PlaneSize
	buf := make([]byte, 0, size)
	for _, s := range spheres {
		buf = append(buf, s.Marshal()...)
	}
	for _, c := range capsules {
		buf = append(buf, c.Marshal()...)
	}
	for _, p := range planes {
		buf = append(buf, p.Marshal()...)
	}
	return buf
}
