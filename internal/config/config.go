package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/swaysim/internal/rig"
	"github.com/san-kum/swaysim/internal/sway"
)

const (
	DefaultFrameRate      = 60.0
	DefaultSubsteps       = 4
	DefaultDuration       = 10.0
	DefaultGravity        = -9.8
	DefaultSettlingFrames = 60
)

type Config struct {
	FrameRate float64 `yaml:"frame_rate"`
	Substeps  int     `yaml:"substeps"`
	Duration  float64 `yaml:"duration"`
	Backend   string  `yaml:"backend"`

	Gravity        [3]float32 `yaml:"gravity"`
	Wind           WindConfig `yaml:"wind"`
	SettlingFrames int        `yaml:"settling_frames"`

	Chains   []ChainConfig   `yaml:"chains"`
	Spheres  []SphereConfig  `yaml:"spheres"`
	Capsules []CapsuleConfig `yaml:"capsules"`
	Planes   []PlaneConfig   `yaml:"planes"`
}

type WindConfig struct {
	Amplitude float32    `yaml:"amplitude"`
	Frequency float32    `yaml:"frequency"`
	Direction [3]float32 `yaml:"direction"`
}

type ChainConfig struct {
	Name         string     `yaml:"name"`
	Root         [3]float32 `yaml:"root"`
	Direction    [3]float32 `yaml:"direction"`
	Bones        int        `yaml:"bones"`
	Length       float32    `yaml:"length"`
	Stiffness    float32    `yaml:"stiffness"`
	TipStiffness float32    `yaml:"tip_stiffness"`
	Drag         float32    `yaml:"drag"`
	TipDrag      float32    `yaml:"tip_drag"`
	Radius       float32    `yaml:"radius"`
	GravityPower float32    `yaml:"gravity_power"`
	GroupMask    uint32     `yaml:"group_mask"`
	GravityDir   [3]float32 `yaml:"gravity_dir"`
}

type SphereConfig struct {
	Center [3]float32 `yaml:"center"`
	Radius float32    `yaml:"radius"`
	Group  uint32     `yaml:"group"`
}

type CapsuleConfig struct {
	P0     [3]float32 `yaml:"p0"`
	P1     [3]float32 `yaml:"p1"`
	Radius float32    `yaml:"radius"`
	Group  uint32     `yaml:"group"`
}

type PlaneConfig struct {
	Point  [3]float32 `yaml:"point"`
	Normal [3]float32 `yaml:"normal"`
	Group  uint32     `yaml:"group"`
}

func DefaultConfig() *Config {
	return &Config{
		FrameRate:      DefaultFrameRate,
		Substeps:       DefaultSubsteps,
		Duration:       DefaultDuration,
		Backend:        "auto",
		Gravity:        [3]float32{0, DefaultGravity, 0},
		SettlingFrames: DefaultSettlingFrames,
		Wind: WindConfig{
			Frequency: 1.0,
			Direction: [3]float32{1, 0, 0},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("config: frame_rate must be positive, got %g", c.FrameRate)
	}
	if c.Substeps < 1 {
		return fmt.Errorf("config: substeps must be at least 1, got %d", c.Substeps)
	}
	if c.SettlingFrames < 0 {
		return fmt.Errorf("config: settling_frames must not be negative, got %d", c.SettlingFrames)
	}
	if len(c.Chains) == 0 {
		return fmt.Errorf("config: no chains")
	}
	return c.Rig().Validate()
}

func (c *Config) Rig() *rig.Rig {
	r := &rig.Rig{Chains: make([]rig.Chain, len(c.Chains))}
	for i, ch := range c.Chains {
		r.Chains[i] = rig.Chain{
			Name:              ch.Name,
			Root:              vec3(ch.Root),
			Direction:         vec3(ch.Direction),
			Bones:             ch.Bones,
			Length:            ch.Length,
			Stiffness:         ch.Stiffness,
			TipStiffness:      ch.TipStiffness,
			Drag:              ch.Drag,
			TipDrag:           ch.TipDrag,
			Radius:            ch.Radius,
			GravityPower:      ch.GravityPower,
			ColliderGroupMask: ch.GroupMask,
			GravityDir:        vec3(ch.GravityDir),
		}
	}
	return r
}

func (c *Config) Colliders() ([]sway.Sphere, []sway.Capsule, []sway.Plane) {
	spheres := make([]sway.Sphere, len(c.Spheres))
	for i, s := range c.Spheres {
		spheres[i] = sway.Sphere{Center: vec3(s.Center), Radius: s.Radius, Group: s.Group}
	}
	capsules := make([]sway.Capsule, len(c.Capsules))
	for i, cp := range c.Capsules {
		capsules[i] = sway.Capsule{P0: vec3(cp.P0), P1: vec3(cp.P1), Radius: cp.Radius, Group: cp.Group}
	}
	planes := make([]sway.Plane, len(c.Planes))
	for i, p := range c.Planes {
		planes[i] = sway.Plane{Point: vec3(p.Point), Normal: vec3(p.Normal), Group: p.Group}
	}
	return spheres, capsules, planes
}

func vec3(a [3]float32) sway.Vec3 { return sway.Vec3{a[0], a[1], a[2]} }
