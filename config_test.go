package anvil

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Gravity != (mgl64.Vec3{0, -9.81, 0}) {
		t.Errorf("Gravity = %v", cfg.Gravity)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	want := MaterialConfig{StaticFriction: 0.5, DynamicFriction: 0.5, Restitution: 0.6}
	if diff := cmp.Diff(want, cfg.DefaultMaterial); diff != "" {
		t.Errorf("DefaultMaterial mismatch (-want +got):\n%s", diff)
	}
}

func TestScaledConfig(t *testing.T) {
	base := DefaultConfig()
	scaled := ScaledConfig(Tolerances{Length: 100, Speed: 1000})

	tests := []struct {
		name      string
		got, want float64
	}{
		{"contact offset", scaled.ContactOffset, base.ContactOffset * 100},
		{"linear slop", scaled.LinearSlop, base.LinearSlop * 100},
		{"max correction", scaled.MaxCorrection, base.MaxCorrection * 100},
		{"restitution threshold", scaled.RestitutionThreshold, base.RestitutionThreshold * 100},
		{"sleep threshold", scaled.Sleep.LinearThreshold, base.Sleep.LinearThreshold * 100},
		{"warm start distance", scaled.settings().WarmStartDistance, base.settings().WarmStartDistance * 100},
	}
	for _, tt := range tests {
		if !almostEqual(tt.got, tt.want, 1e-9) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"nan gravity", func(c *Config) { c.Gravity[1] = math.NaN() }},
		{"no substep", func(c *Config) { c.Substeps = 0 }},
		{"no worker", func(c *Config) { c.Workers = 0 }},
		{"no velocity iteration", func(c *Config) { c.VelocityIterations = 0 }},
		{"unknown broad phase", func(c *Config) { c.BroadPhase = "octree" }},
		{"empty grid", func(c *Config) { c.BroadPhase = BroadPhaseGrid; c.GridCellSize = 0 }},
		{"negative slop", func(c *Config) { c.LinearSlop = -1 }},
		{"baumgarte above one", func(c *Config) { c.Baumgarte = 1.5 }},
		{"negative sleep time", func(c *Config) { c.Sleep.Time = -1 }},
		{"negative damping", func(c *Config) { c.Damping.Angular = -0.1 }},
		{"restitution above one", func(c *Config) { c.DefaultMaterial.Restitution = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConstraintViolation) {
				t.Errorf("Validate() = %v, want ErrConstraintViolation", err)
			}
		})
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anvil.yaml")

	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{0, -1.62, 0}
	cfg.Substeps = 4
	cfg.BroadPhase = BroadPhaseGrid
	cfg.Sleep.Time = 1.5

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anvil.yaml")
	data := []byte("substeps: 8\ngravity: [0, 0, 0]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Substeps = 8
	want.Gravity = mgl64.Vec3{}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anvil.yaml")
	if err := os.WriteFile(path, []byte("workers: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("LoadConfig() = %v, want ErrConstraintViolation", err)
	}
}
