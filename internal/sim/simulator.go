// Package sim owns the frame lifecycle around the kernels: global parameter
// assembly, wind phase accumulation, the settling countdown, and the
// per-frame observer and metric fan-out.
package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/swaysim/internal/compute"
	"github.com/san-kum/swaysim/internal/metrics"
	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

type Wind struct {
	Amplitude float32
	Frequency float32
	Direction sway.Vec3
}

type Options struct {
	FrameRate      float64
	Substeps       int
	Gravity        sway.Vec3
	Wind           Wind
	SettlingFrames uint32
	DragMultiplier float32 // 0 means 1
}

// Observer receives one whole-frame pose snapshot after every step.
type Observer interface {
	OnFrame(positions []sway.Vec3, t float64)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(positions []sway.Vec3, t float64)

func (f ObserverFunc) OnFrame(positions []sway.Vec3, t float64) { f(positions, t) }

type Simulator struct {
	store   *state.Store
	backend compute.Backend
	opts    Options

	windPhase float32
	settling  uint32
	time      float64
	frame     int

	// Root positions as of the previous frame, for deriving the external
	// velocity the inertial pseudo-force opposes.
	lastRoots []sway.Vec3
	rootIdx   []int

	metrics   []metrics.Metric
	observers []Observer
}

func New(store *state.Store, backend compute.Backend, opts Options) (*Simulator, error) {
	if opts.FrameRate <= 0 {
		return nil, fmt.Errorf("sim: frame rate must be positive, got %g", opts.FrameRate)
	}
	if opts.Substeps < 1 {
		return nil, fmt.Errorf("sim: substeps must be at least 1, got %d", opts.Substeps)
	}
	if !store.Allocated() {
		return nil, sway.ErrNotAllocated
	}
	if opts.DragMultiplier == 0 {
		opts.DragMultiplier = 1
	}

	s := &Simulator{
		store:    store,
		backend:  backend,
		opts:     opts,
		settling: opts.SettlingFrames,
	}
	s.lastRoots = store.Positions()
	store.Dispatch(func(b *state.Buffers) error {
		for i, p := range b.Params {
			if p.IsRoot() {
				s.rootIdx = append(s.rootIdx, i)
			}
		}
		return nil
	})
	return s, nil
}

func (s *Simulator) AddMetric(m metrics.Metric)  { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)      { s.observers = append(s.observers, o) }
func (s *Simulator) Backend() compute.Backend    { return s.backend }
func (s *Simulator) Store() *state.Store         { return s.store }
func (s *Simulator) Time() float64               { return s.time }
func (s *Simulator) Frame() int                  { return s.frame }
func (s *Simulator) SettlingFrames() uint32      { return s.settling }
func (s *Simulator) Settling() bool              { return s.settling > 0 }

// MoveRoot kinematically drives a root bone for the coming frame.
func (s *Simulator) MoveRoot(i int, pos sway.Vec3) error {
	return s.store.SetRootPosition(i, pos)
}

// SetWind swaps the wind field between frames. The phase accumulator is kept
// so the gust waveform stays continuous through the change.
func (s *Simulator) SetWind(w Wind) { s.opts.Wind = w }

// Reset reseeds the pose from the bind pose, zeroes all implicit velocity
// and restarts the settling countdown with the given frame budget. Budgets
// beyond the ramp window saturate the settling bias at full strength.
func (s *Simulator) Reset(settlingFrames uint32) error {
	if err := s.store.SetBindPose(s.store.BindPose()); err != nil {
		return err
	}
	s.settling = settlingFrames
	s.windPhase = 0
	s.time = 0
	s.frame = 0
	s.lastRoots = s.store.Positions()
	for _, m := range s.metrics {
		m.Reset()
	}
	return nil
}

// Step advances one frame. Wind phase and the settling countdown advance
// exactly once per frame regardless of substep count.
func (s *Simulator) Step(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	frameDt := 1 / s.opts.FrameRate
	gp := s.globalParams(float32(frameDt))

	if err := s.backend.Step(s.store, gp); err != nil {
		return err
	}

	s.windPhase += s.opts.Wind.Frequency * float32(frameDt)
	if s.settling > 0 {
		s.settling--
	}
	s.time += frameDt
	s.frame++

	positions := s.store.Positions()
	s.rememberRoots(positions)
	for _, m := range s.metrics {
		m.Observe(positions, s.time)
	}
	for _, o := range s.observers {
		o.OnFrame(positions, s.time)
	}
	return nil
}

// Run steps until the duration elapses or the context is cancelled, then
// reduces the metrics.
func (s *Simulator) Run(ctx context.Context, duration float64) (*Result, error) {
	frames := int(duration * s.opts.FrameRate)
	result := &Result{Metrics: make(map[string]float64)}

	for i := 0; i < frames; i++ {
		if err := s.Step(ctx); err != nil {
			return result, err
		}
		result.Frames++
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Duration = s.time
	return result, nil
}

type Result struct {
	Frames   int
	Duration float64
	Metrics  map[string]float64
}

func (s *Simulator) globalParams(frameDt float32) sway.GlobalParams {
	spheres, capsules, planes := s.store.ColliderCounts()
	return sway.GlobalParams{
		Gravity:          s.opts.Gravity,
		DtSub:            frameDt / float32(s.opts.Substeps),
		WindAmplitude:    s.opts.Wind.Amplitude,
		WindFrequency:    s.opts.Wind.Frequency,
		WindPhase:        s.windPhase,
		WindDirection:    s.opts.Wind.Direction,
		Substeps:         uint32(s.opts.Substeps),
		NumBones:         uint32(s.store.Bones()),
		NumSpheres:       uint32(spheres),
		NumCapsules:      uint32(capsules),
		NumPlanes:        uint32(planes),
		SettlingFrames:   s.settling,
		DragMultiplier:   s.opts.DragMultiplier,
		ExternalVelocity: s.externalVelocity(frameDt),
	}
}

// externalVelocity is the average root velocity over the last frame. Only
// kinematic roots contribute; a character standing still yields zero.
func (s *Simulator) externalVelocity(frameDt float32) sway.Vec3 {
	if frameDt <= 0 || s.lastRoots == nil || len(s.rootIdx) == 0 {
		return sway.Vec3{}
	}

	cur := s.store.Positions()
	var sum sway.Vec3
	for _, i := range s.rootIdx {
		if i >= len(s.lastRoots) || i >= len(cur) {
			continue
		}
		sum = sum.Add(cur[i].Sub(s.lastRoots[i]))
	}
	v := sum.Mul(1 / (float32(len(s.rootIdx)) * frameDt))
	if !sway.Finite(v) {
		return sway.Vec3{}
	}
	return v
}

func (s *Simulator) rememberRoots(positions []sway.Vec3) {
	s.lastRoots = append(s.lastRoots[:0], positions...)
}
