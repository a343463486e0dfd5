package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/swaysim/internal/analysis"
	"github.com/san-kum/swaysim/internal/compute"
	"github.com/san-kum/swaysim/internal/config"
	"github.com/san-kum/swaysim/internal/export"
	"github.com/san-kum/swaysim/internal/metrics"
	"github.com/san-kum/swaysim/internal/rig"
	"github.com/san-kum/swaysim/internal/sim"
	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/storage"
	"github.com/san-kum/swaysim/internal/stream"
	"github.com/san-kum/swaysim/internal/sway"
	"github.com/san-kum/swaysim/internal/tui"
)

var (
	dataDir    string
	configFile string
	duration   float64
	frameRate  int
	substeps   int
	backend    string
	windAmp    float64
	addr       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swaysim",
		Short: "secondary motion simulation for bone chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".swaysim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene and record the pose track",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	runCmd.Flags().Float64Var(&duration, "time", 0, "duration override (seconds)")
	runCmd.Flags().IntVar(&substeps, "substeps", 0, "substep override")
	runCmd.Flags().StringVar(&backend, "backend", "", "compute backend: auto, cpu, webgpu")
	runCmd.Flags().Float64Var(&windAmp, "wind", -1, "wind amplitude override")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scene with live terminal visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	liveCmd.Flags().Float64Var(&duration, "time", 0, "duration override (seconds)")
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "render frame rate")
	liveCmd.Flags().StringVar(&backend, "backend", "", "compute backend: auto, cpu, webgpu")

	serveCmd := &cobra.Command{
		Use:   "serve [preset]",
		Short: "stream pose frames to websocket viewers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&backend, "backend", "", "compute backend: auto, cpu, webgpu")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a recorded run to svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the kernels across chain sizes",
		RunE:  benchScenes,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scene presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHAINS\tBONES\tWIND\tCOLLIDERS")
			for _, name := range names {
				cfg := config.GetPreset(name)
				colliders := len(cfg.Spheres) + len(cfg.Capsules) + len(cfg.Planes)
				fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%d\n",
					name, len(cfg.Chains), cfg.Rig().Bones(), cfg.Wind.Amplitude, colliders)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, listCmd, plotCmd, exportCmd, analyzeCmd, exportSVGCmd, benchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadScene resolves the scene from --config or a preset name, applying the
// command-line overrides on top.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	name := "ponytail"
	if len(args) > 0 {
		name = args[0]
	}

	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load scene: %w", err)
		}
		cfg = loaded
		name = configFile
	} else {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("substeps") {
		cfg.Substeps = substeps
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend = backend
	}
	if cmd.Flags().Changed("wind") {
		cfg.Wind.Amplitude = float32(windAmp)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func selectBackend(name string) compute.Backend {
	switch name {
	case "cpu":
		return compute.NewCPUBackend()
	case "webgpu":
		return compute.NewWebGPUBackend()
	default:
		return compute.AutoSelect()
	}
}

type scene struct {
	cfg       *config.Config
	simulator *sim.Simulator
	store     *state.Store
	parents   []uint32
}

func buildScene(cfg *config.Config, be compute.Backend) (*scene, error) {
	r := cfg.Rig()
	st, err := r.NewStore(len(cfg.Spheres), len(cfg.Capsules), len(cfg.Planes))
	if err != nil {
		return nil, err
	}
	if err := st.SetColliders(cfg.Colliders()); err != nil {
		return nil, err
	}

	params, _, _, err := r.Build()
	if err != nil {
		return nil, err
	}
	parents := make([]uint32, len(params))
	for i, p := range params {
		parents[i] = p.ParentIndex
	}

	s, err := sim.New(st, be, sim.Options{
		FrameRate: cfg.FrameRate,
		Substeps:  cfg.Substeps,
		Gravity:   sway.Vec3{cfg.Gravity[0], cfg.Gravity[1], cfg.Gravity[2]},
		Wind: sim.Wind{
			Amplitude: cfg.Wind.Amplitude,
			Frequency: cfg.Wind.Frequency,
			Direction: sway.Vec3{cfg.Wind.Direction[0], cfg.Wind.Direction[1], cfg.Wind.Direction[2]},
		},
		SettlingFrames: uint32(cfg.SettlingFrames),
	})
	if err != nil {
		return nil, err
	}

	return &scene{cfg: cfg, simulator: s, store: st, parents: parents}, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	be := selectBackend(cfg.Backend)
	defer be.Cleanup()

	sc, err := buildScene(cfg, be)
	if err != nil {
		return err
	}

	rec := &storage.Recording{}
	sc.simulator.AddObserver(sim.ObserverFunc(rec.Observe))
	sc.simulator.AddMetric(metrics.NewDisplacement())
	sc.simulator.AddMetric(metrics.NewMotion())

	params, rest, _, err := cfg.Rig().Build()
	if err != nil {
		return err
	}
	sc.simulator.AddMetric(metrics.NewStretch(params, rest))

	fmt.Printf("running %s on %s backend...\n", name, be.Name())
	start := time.Now()

	result, err := sc.simulator.Run(context.Background(), cfg.Duration)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(name, cfg.FrameRate, cfg.Substeps, cfg.Duration, be.Name(), sc.parents, rec, result.Metrics)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", result.Frames)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	be := selectBackend(cfg.Backend)
	defer be.Cleanup()

	sc, err := buildScene(cfg, be)
	if err != nil {
		return err
	}

	renderer := tui.NewLiveRenderer(name, sc.parents, frameRate)
	sc.simulator.AddObserver(renderer)

	renderer.Start()
	defer renderer.Stop()

	frames := int(cfg.Duration * cfg.FrameRate)
	frameTime := time.Duration(float64(time.Second) / cfg.FrameRate)
	for i := 0; i < frames; i++ {
		frameStart := time.Now()
		if err := sc.simulator.Step(context.Background()); err != nil {
			return err
		}
		if sleep := frameTime - time.Since(frameStart); sleep > 0 {
			time.Sleep(sleep)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	be := selectBackend(cfg.Backend)
	defer be.Cleanup()

	sc, err := buildScene(cfg, be)
	if err != nil {
		return err
	}

	srv := stream.NewServer(sc.parents)
	sc.simulator.AddObserver(srv)

	go func() {
		frameTime := time.Duration(float64(time.Second) / cfg.FrameRate)
		for {
			frameStart := time.Now()
			if err := sc.simulator.Step(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "step error: %v\n", err)
				return
			}
			if sleep := frameTime - time.Since(frameStart); sleep > 0 {
				time.Sleep(sleep)
			}
		}
	}()

	fmt.Printf("serving %s on %s (websocket at /ws)\n", name, addr)
	return srv.ListenAndServe(addr)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tFPS\tSUBSTEPS\tBONES\tBACKEND")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.0f\t%d\t%d\t%s\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.FrameRate,
			run.Substeps,
			run.Bones,
			run.Backend,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	frames, _, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", len(frames))

	tip := len(frames[0]) - 1
	tipHeight := make([]float64, len(frames))
	motion := make([]float64, len(frames))
	for i, frame := range frames {
		if tip < len(frame) {
			tipHeight[i] = float64(frame[tip].Y())
		}
		if i > 0 {
			worst := 0.0
			for b := range frame {
				if b < len(frames[i-1]) {
					if step := float64(frame[b].Sub(frames[i-1][b]).Len()); step > worst {
						worst = step
					}
				}
			}
			motion[i] = worst
		}
	}

	graph := asciigraph.Plot(tipHeight,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("tip height"),
	)
	fmt.Println(graph)
	fmt.Println()

	graph = asciigraph.Plot(motion,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("max per-frame motion"),
	)
	fmt.Println(graph)

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	frames, _, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) < 4 || len(frames[0]) == 0 {
		return fmt.Errorf("not enough data to analyze")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	// Lateral tip deflection carries the swing signal.
	tip := len(frames[0]) - 1
	data := make([]float64, len(frames))
	for i, frame := range frames {
		if tip < len(frame) {
			data[i] = float64(frame[tip].X())
		}
	}

	series := make([]float64, len(data))
	copy(series, data)
	ps := analysis.PowerSpectrum(analysis.PadPow2(analysis.HannWindow(series)))

	plotData := ps[:len(ps)/4]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (tip x)"),
	)
	fmt.Println(graph)
	fmt.Println()

	freq := analysis.DominantFrequency(data, meta.FrameRate)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	frames, _, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(meta.Parents) == 0 {
		return fmt.Errorf("run has no topology metadata")
	}

	svg := export.FramesToSVG(frames, meta.Parents)
	if svg == "" {
		return fmt.Errorf("no data to render")
	}
	fmt.Print(svg)
	return nil
}

func benchScenes(cmd *cobra.Command, args []string) error {
	boneCounts := []int{32, 256, 2048}
	substepCounts := []int{2, 4, 8}
	frames := 300

	fmt.Println("benchmarking cpu backend")
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BONES\tSUBSTEPS\tFRAMES\tTIME\tFRAMES/SEC")

	for _, bones := range boneCounts {
		for _, subs := range substepCounts {
			r := benchRig(bones)
			st, err := r.NewStore(1, 1, 1)
			if err != nil {
				return err
			}
			if err := st.SetColliders(
				[]sway.Sphere{{Center: sway.Vec3{0, 1, 0}, Radius: 0.2}},
				[]sway.Capsule{{P0: sway.Vec3{0, 0, 0}, P1: sway.Vec3{0, 1, 0}, Radius: 0.15}},
				[]sway.Plane{{Normal: sway.Vec3{0, 1, 0}}},
			); err != nil {
				return err
			}

			s, err := sim.New(st, compute.NewCPUBackend(), sim.Options{
				FrameRate:      60,
				Substeps:       subs,
				Gravity:        sway.Vec3{0, -9.8, 0},
				SettlingFrames: 60,
			})
			if err != nil {
				return err
			}

			start := time.Now()
			for i := 0; i < frames; i++ {
				if err := s.Step(context.Background()); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%.0f\n",
				bones, subs, frames, elapsed, float64(frames)/elapsed.Seconds())
		}
	}

	return w.Flush()
}

// benchRig splits the bone budget across 8-bone strands.
func benchRig(bones int) *rig.Rig {
	const perChain = 8
	chains := bones / perChain
	if chains < 1 {
		chains = 1
	}

	r := &rig.Rig{}
	for c := 0; c < chains; c++ {
		r.Chains = append(r.Chains, rig.Chain{
			Name:         fmt.Sprintf("strand_%d", c),
			Root:         sway.Vec3{float32(c) * 0.05, 1.6, 0},
			Direction:    sway.Vec3{0, -1, 0},
			Bones:        perChain,
			Length:       0.4,
			Stiffness:    0.3,
			Drag:         0.5,
			Radius:       0.02,
			GravityPower: 1,
			ColliderGroupMask: 1,
		})
	}
	return r
}
