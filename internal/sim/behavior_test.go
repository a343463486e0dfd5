package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/swaysim/internal/compute"
	"github.com/san-kum/swaysim/internal/metrics"
	"github.com/san-kum/swaysim/internal/rig"
	"github.com/san-kum/swaysim/internal/sim"
	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

func hangingChain(direction sway.Vec3, stiffness float32) *rig.Rig {
	return &rig.Rig{Chains: []rig.Chain{{
		Name:         "strand",
		Root:         sway.Vec3{0, 2, 0},
		Direction:    direction,
		Bones:        6,
		Length:       0.5,
		Stiffness:    stiffness,
		Drag:         0.4,
		Radius:       0.02,
		GravityPower: 1,
	}}}
}

func newSimulator(r *rig.Rig, opts sim.Options) (*sim.Simulator, *state.Store) {
	st, err := r.NewStore(0, 0, 0)
	Expect(err).NotTo(HaveOccurred())
	s, err := sim.New(st, compute.NewCPUBackend(), opts)
	Expect(err).NotTo(HaveOccurred())
	return s, st
}

func defaultOpts() sim.Options {
	return sim.Options{
		FrameRate:      60,
		Substeps:       4,
		Gravity:        sway.Vec3{0, -9.8, 0},
		SettlingFrames: 60,
	}
}

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("stepping", func() {
		It("keeps every position finite through a long run", func() {
			s, st := newSimulator(hangingChain(sway.Vec3{1, 0, 0}, 0.2), defaultOpts())

			_, err := s.Run(ctx, 5.0)
			Expect(err).NotTo(HaveOccurred())

			for _, p := range st.Positions() {
				Expect(sway.Finite(p)).To(BeTrue())
			}
		})

		It("never moves a kinematic root", func() {
			s, st := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			_, err := s.Run(ctx, 2.0)
			Expect(err).NotTo(HaveOccurred())

			root := st.Positions()[0]
			Expect(root.ApproxEqual(sway.Vec3{0, 2, 0})).To(BeTrue())
		})

		It("bounds per-frame displacement by the substep step clamp", func() {
			opts := defaultOpts()
			opts.Wind = sim.Wind{Amplitude: 10, Frequency: 2, Direction: sway.Vec3{1, 0, 0}}
			s, _ := newSimulator(hangingChain(sway.Vec3{1, 0, 0}, 0.2), opts)

			disp := metrics.NewDisplacement()
			s.AddMetric(disp)

			_, err := s.Run(ctx, 3.0)
			Expect(err).NotTo(HaveOccurred())

			limit := float64(opts.Substeps) * float64(sway.MaxStepDistance)
			Expect(disp.Value()).To(BeNumerically("<=", limit+1e-3))
		})

		It("stops when the context is cancelled", func() {
			s, _ := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			Expect(s.Step(cancelled)).To(MatchError(context.Canceled))
		})
	})

	Describe("settling", func() {
		It("counts the settling window down to steady state", func() {
			s, _ := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			Expect(s.Settling()).To(BeTrue())
			for i := 0; i < 60; i++ {
				Expect(s.Step(ctx)).To(Succeed())
			}
			Expect(s.Settling()).To(BeFalse())
			Expect(s.SettlingFrames()).To(Equal(uint32(0)))
		})

		It("converges a zero-stiffness horizontal chain to a free hang", func() {
			s, st := newSimulator(hangingChain(sway.Vec3{1, 0, 0}, 0), defaultOpts())

			_, err := s.Run(ctx, 8.0)
			Expect(err).NotTo(HaveOccurred())

			positions := st.Positions()
			root := positions[0]
			tip := positions[len(positions)-1]

			// Nothing pulls toward the horizontal bind pose at stiffness 0,
			// so the chain must end hanging straight below the root.
			want := root.Add(sway.Vec3{0, -0.5, 0})
			Expect(tip.Sub(want).Len()).To(BeNumerically("<", 0.1))
			for i := 1; i < len(positions); i++ {
				link := positions[i].Sub(positions[i-1]).Len()
				Expect(link).To(BeNumerically("~", 0.1, 1e-4))
			}
		})

		It("comes to near rest in still air", func() {
			s, _ := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			motion := metrics.NewMotion()
			s.AddMetric(motion)

			_, err := s.Run(ctx, 5.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(motion.Value()).To(BeNumerically("<", 0.01))
		})

		It("restarts the countdown on reset", func() {
			s, _ := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			_, err := s.Run(ctx, 2.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Settling()).To(BeFalse())

			Expect(s.Reset(30)).To(Succeed())
			Expect(s.Settling()).To(BeTrue())
			Expect(s.SettlingFrames()).To(Equal(uint32(30)))
			Expect(s.Frame()).To(BeZero())
		})
	})

	Describe("root teleportation", func() {
		It("recovers every bone after the root jumps far away", func() {
			s, st := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			_, err := s.Run(ctx, 1.0)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.MoveRoot(0, sway.Vec3{50, 2, 0})).To(Succeed())
			_, err = s.Run(ctx, 2.0)
			Expect(err).NotTo(HaveOccurred())

			positions := st.Positions()
			for i, p := range positions {
				Expect(sway.Finite(p)).To(BeTrue())
				if i > 0 {
					dist := p.Sub(positions[i-1]).Len()
					Expect(dist).To(BeNumerically("<=", sway.MaxParentDistance+1e-3))
				}
			}
		})

		It("rejects driving a simulated bone", func() {
			s, _ := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())
			Expect(s.MoveRoot(2, sway.Vec3{})).To(MatchError(sway.ErrNotRoot))
		})
	})

	Describe("wind", func() {
		It("deflects a receptive chain along the wind direction", func() {
			still, stillStore := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.1), defaultOpts())
			_, err := still.Run(ctx, 4.0)
			Expect(err).NotTo(HaveOccurred())

			windy := defaultOpts()
			windy.Wind = sim.Wind{Amplitude: 15, Frequency: 1, Direction: sway.Vec3{1, 0, 0}}
			blown, blownStore := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.1), windy)
			_, err = blown.Run(ctx, 4.0)
			Expect(err).NotTo(HaveOccurred())

			stillTip := stillStore.Positions()[5]
			blownTip := blownStore.Positions()[5]
			Expect(blownTip.X()).To(BeNumerically(">", stillTip.X()))
		})
	})

	Describe("observers", func() {
		It("delivers one snapshot per frame", func() {
			s, _ := newSimulator(hangingChain(sway.Vec3{0, -1, 0}, 0.3), defaultOpts())

			frames := 0
			s.AddObserver(sim.ObserverFunc(func(positions []sway.Vec3, t float64) {
				frames++
				Expect(positions).To(HaveLen(6))
			}))

			result, err := s.Run(ctx, 1.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal(result.Frames))
		})
	})
})
