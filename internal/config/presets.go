package config

var Presets = map[string]*Config{
	"ponytail": withDefaults(&Config{
		Chains: []ChainConfig{
			{
				Name: "ponytail", Root: [3]float32{0, 1.6, -0.1}, Direction: [3]float32{0, -1, -0.2},
				Bones: 8, Length: 0.45,
				Stiffness: 0.35, TipStiffness: 0.05,
				Drag: 0.55, TipDrag: 0.75,
				Radius: 0.02, GravityPower: 1.0, GroupMask: 1,
			},
		},
		Spheres: []SphereConfig{
			{Center: [3]float32{0, 1.55, 0}, Radius: 0.11, Group: 0},
		},
		Capsules: []CapsuleConfig{
			{P0: [3]float32{0, 1.1, 0}, P1: [3]float32{0, 1.45, 0}, Radius: 0.13, Group: 0},
		},
	}),
	"cape": withDefaults(&Config{
		Substeps: 6,
		Wind: WindConfig{
			Amplitude: 3.0, Frequency: 0.7, Direction: [3]float32{1, 0, 0.3},
		},
		Chains: []ChainConfig{
			{
				Name: "cape_left", Root: [3]float32{-0.15, 1.45, -0.12}, Direction: [3]float32{0, -1, 0},
				Bones: 10, Length: 0.9,
				Stiffness: 0.2, TipStiffness: 0.02,
				Drag: 0.7, TipDrag: 0.85,
				Radius: 0.03, GravityPower: 0.9, GroupMask: 1,
			},
			{
				Name: "cape_right", Root: [3]float32{0.15, 1.45, -0.12}, Direction: [3]float32{0, -1, 0},
				Bones: 10, Length: 0.9,
				Stiffness: 0.2, TipStiffness: 0.02,
				Drag: 0.7, TipDrag: 0.85,
				Radius: 0.03, GravityPower: 0.9, GroupMask: 1,
			},
		},
		Capsules: []CapsuleConfig{
			{P0: [3]float32{0, 0.9, 0}, P1: [3]float32{0, 1.4, 0}, Radius: 0.16, Group: 0},
		},
		Planes: []PlaneConfig{
			{Point: [3]float32{0, 0, 0}, Normal: [3]float32{0, 1, 0}, Group: 0},
		},
	}),
	"antenna": withDefaults(&Config{
		Chains: []ChainConfig{
			{
				Name: "antenna", Root: [3]float32{0, 1.8, 0}, Direction: [3]float32{0.2, 1, 0},
				Bones: 5, Length: 0.25,
				Stiffness: 0.8, TipStiffness: 0.5,
				Drag: 0.15,
				Radius: 0.01, GravityPower: 0.3,
				GravityDir: [3]float32{0.2, 1, 0},
			},
		},
	}),
	"windy": withDefaults(&Config{
		Duration: 20.0,
		Wind: WindConfig{
			Amplitude: 8.0, Frequency: 1.3, Direction: [3]float32{1, 0.1, 0},
		},
		Chains: []ChainConfig{
			{
				Name: "streamer", Root: [3]float32{0, 2.0, 0}, Direction: [3]float32{0, -1, 0},
				Bones: 12, Length: 1.2,
				Stiffness: 0.1, TipStiffness: 0.01,
				Drag: 0.8, TipDrag: 0.9,
				Radius: 0.015, GravityPower: 0.6, GroupMask: 1,
			},
		},
		Planes: []PlaneConfig{
			{Point: [3]float32{0, 0, 0}, Normal: [3]float32{0, 1, 0}, Group: 0},
		},
	}),
}

// withDefaults fills the zero scalar fields a preset leaves out so every
// preset is runnable as-is.
func withDefaults(cfg *Config) *Config {
	if cfg.FrameRate == 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.Substeps == 0 {
		cfg.Substeps = DefaultSubsteps
	}
	if cfg.Duration == 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Backend == "" {
		cfg.Backend = "auto"
	}
	if cfg.Gravity == ([3]float32{}) {
		cfg.Gravity = [3]float32{0, DefaultGravity, 0}
	}
	if cfg.SettlingFrames == 0 {
		cfg.SettlingFrames = DefaultSettlingFrames
	}
	if cfg.Wind.Frequency == 0 {
		cfg.Wind.Frequency = 1.0
	}
	if cfg.Wind.Direction == ([3]float32{}) {
		cfg.Wind.Direction = [3]float32{1, 0, 0}
	}
	return cfg
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
