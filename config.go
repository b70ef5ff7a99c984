package anvil

import (
	"fmt"
	"math"
	"os"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkers  = 2
	DefaultSubsteps = 1

	BroadPhaseSweepAndPrune = "sap"
	BroadPhaseGrid          = "grid"
)

// Config holds the world tuning. Lengths are in meters, speeds in m/s.
type Config struct {
	Gravity  mgl64.Vec3 `yaml:"gravity,flow"`
	Substeps int        `yaml:"substeps"`
	Workers  int        `yaml:"workers"`

	VelocityIterations int `yaml:"velocity_iterations"`
	PositionIterations int `yaml:"position_iterations"`

	BroadPhase   string  `yaml:"broad_phase"`
	GridCellSize float64 `yaml:"grid_cell_size"`
	GridCells    int     `yaml:"grid_cells"`

	Tolerances Tolerances `yaml:"tolerances"`

	ContactOffset         float64 `yaml:"contact_offset"`
	LinearSlop            float64 `yaml:"linear_slop"`
	Baumgarte             float64 `yaml:"baumgarte"`
	JointBaumgarte        float64 `yaml:"joint_baumgarte"`
	MaxCorrection         float64 `yaml:"max_correction"`
	RestitutionThreshold  float64 `yaml:"restitution_threshold"`
	FrictionSlipThreshold float64 `yaml:"friction_slip_threshold"`
	WarmStarting          bool    `yaml:"warm_starting"`

	Sleep   SleepConfig   `yaml:"sleep"`
	Damping DampingConfig `yaml:"damping"`

	DefaultMaterial MaterialConfig `yaml:"default_material"`
}

// Tolerances give the typical length and speed of the scene. The derived
// defaults scale with them.
type Tolerances struct {
	Length float64 `yaml:"length"`
	Speed  float64 `yaml:"speed"`
}

type SleepConfig struct {
	LinearThreshold  float64 `yaml:"linear_threshold"`
	AngularThreshold float64 `yaml:"angular_threshold"`
	// Time a whole island must stay below both thresholds before sleeping, 0 disables sleeping
	Time float64 `yaml:"time"`
}

// DampingConfig is given to new dynamic actors
type DampingConfig struct {
	Linear  float64 `yaml:"linear"`
	Angular float64 `yaml:"angular"`
}

type MaterialConfig struct {
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
	Restitution     float64 `yaml:"restitution"`
}

// DefaultTolerances is a scene of meter sized objects moving at about 10 m/s
func DefaultTolerances() Tolerances {
	return Tolerances{Length: 1, Speed: 10}
}

func DefaultConfig() Config {
	return ScaledConfig(DefaultTolerances())
}

// ScaledConfig derives the length and speed dependent defaults from tolerances
func ScaledConfig(tol Tolerances) Config {
	solver := constraint.DefaultSettings()
	return Config{
		Gravity:               mgl64.Vec3{0, -9.81, 0},
		Substeps:              DefaultSubsteps,
		Workers:               DefaultWorkers,
		VelocityIterations:    solver.VelocityIterations,
		PositionIterations:    solver.PositionIterations,
		BroadPhase:            BroadPhaseSweepAndPrune,
		GridCellSize:          4 * tol.Length,
		GridCells:             4096,
		Tolerances:            tol,
		ContactOffset:         0.02 * tol.Length,
		LinearSlop:            0.005 * tol.Length,
		Baumgarte:             solver.Baumgarte,
		JointBaumgarte:        solver.JointBaumgarte,
		MaxCorrection:         0.2 * tol.Length,
		RestitutionThreshold:  0.1 * tol.Speed,
		FrictionSlipThreshold: 0.005 * tol.Speed,
		WarmStarting:          true,
		Sleep: SleepConfig{
			LinearThreshold:  0.01 * tol.Speed,
			AngularThreshold: 0.05,
			Time:             0.5,
		},
		Damping: DampingConfig{Linear: 0, Angular: 0.05},
		DefaultMaterial: MaterialConfig{
			StaticFriction:  0.5,
			DynamicFriction: 0.5,
			Restitution:     0.6,
		},
	}
}

// LoadConfig reads a YAML file over the defaults, so partial files are valid
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid setting as a constraint violation
func (c Config) Validate() error {
	finite := func(values ...float64) bool {
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	}

	switch {
	case !finite(c.Gravity[0], c.Gravity[1], c.Gravity[2]):
		return violation("gravity %v", c.Gravity)
	case c.Substeps < 1:
		return violation("substeps %d < 1", c.Substeps)
	case c.Workers < 1:
		return violation("workers %d < 1", c.Workers)
	case c.VelocityIterations < 1:
		return violation("velocity iterations %d < 1", c.VelocityIterations)
	case c.PositionIterations < 0:
		return violation("position iterations %d < 0", c.PositionIterations)
	case c.BroadPhase != BroadPhaseSweepAndPrune && c.BroadPhase != BroadPhaseGrid:
		return violation("unknown broad phase %q", c.BroadPhase)
	case c.BroadPhase == BroadPhaseGrid && (!finite(c.GridCellSize) || c.GridCellSize <= 0 || c.GridCells < 1):
		return violation("grid cell size %v, cells %d", c.GridCellSize, c.GridCells)
	case !finite(c.Tolerances.Length, c.Tolerances.Speed) || c.Tolerances.Length <= 0 || c.Tolerances.Speed <= 0:
		return violation("tolerances %+v", c.Tolerances)
	case !finite(c.ContactOffset, c.LinearSlop, c.MaxCorrection, c.RestitutionThreshold, c.FrictionSlipThreshold):
		return violation("non finite tolerance")
	case c.ContactOffset < 0 || c.LinearSlop < 0 || c.MaxCorrection <= 0:
		return violation("contact offset %v, slop %v, max correction %v", c.ContactOffset, c.LinearSlop, c.MaxCorrection)
	case c.RestitutionThreshold < 0 || c.FrictionSlipThreshold < 0:
		return violation("restitution threshold %v, friction slip threshold %v", c.RestitutionThreshold, c.FrictionSlipThreshold)
	case !(c.Baumgarte >= 0 && c.Baumgarte <= 1) || !(c.JointBaumgarte >= 0 && c.JointBaumgarte <= 1):
		return violation("baumgarte %v, joint baumgarte %v outside [0,1]", c.Baumgarte, c.JointBaumgarte)
	case !finite(c.Sleep.LinearThreshold, c.Sleep.AngularThreshold, c.Sleep.Time) ||
		c.Sleep.LinearThreshold < 0 || c.Sleep.AngularThreshold < 0 || c.Sleep.Time < 0:
		return violation("sleep %+v", c.Sleep)
	case !finite(c.Damping.Linear, c.Damping.Angular) || c.Damping.Linear < 0 || c.Damping.Angular < 0:
		return violation("damping %+v", c.Damping)
	}

	if err := c.material().Validate(); err != nil {
		return classify(err)
	}
	return nil
}

func (c Config) material() *actor.Material {
	return &actor.Material{
		StaticFriction:  c.DefaultMaterial.StaticFriction,
		DynamicFriction: c.DefaultMaterial.DynamicFriction,
		Restitution:     c.DefaultMaterial.Restitution,
	}
}

// settings converts the config into solver settings
func (c Config) settings() constraint.Settings {
	s := constraint.DefaultSettings()
	s.VelocityIterations = c.VelocityIterations
	s.PositionIterations = c.PositionIterations
	s.Baumgarte = c.Baumgarte
	s.JointBaumgarte = c.JointBaumgarte
	s.LinearSlop = c.LinearSlop
	s.MaxCorrection = c.MaxCorrection
	s.SpeculativeDistance = c.ContactOffset
	s.RestitutionThreshold = c.RestitutionThreshold
	s.FrictionSlipThreshold = c.FrictionSlipThreshold
	s.WarmStarting = c.WarmStarting
	s.WarmStartDistance = s.WarmStartDistance * c.Tolerances.Length
	return s
}
