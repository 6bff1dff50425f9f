package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"lod-spheres/internal/lod"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Duration is a time.Duration that reads and writes as "250ms" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// TierConfig is the file form of lod.Tier.
type TierConfig struct {
	Name         string     `toml:"name"`
	Subdivisions int        `toml:"subdivisions"`
	Every        int        `toml:"every"`
	Offset       int        `toml:"offset"`
	Translation  [3]float32 `toml:"translation"`
}

// Config drives one run of the sphere stream.
type Config struct {
	AppID    string `toml:"app_id"`
	Timeline string `toml:"timeline"`
	Frames   int    `toml:"frames"`
	// Radius grows linearly from RadiusMin on frame 0 towards RadiusMax.
	RadiusMin float32 `toml:"radius_min"`
	RadiusMax float32 `toml:"radius_max"`
	// Workers is the mesh worker count; 0 means one per CPU.
	Workers   int          `toml:"workers"`
	SlowFrame Duration     `toml:"slow_frame"`
	Tiers     []TierConfig `toml:"tiers"`
}

// Default mirrors the stock scene: 10k frames, radius 0.1 to 50.1, three tiers.
func Default() Config {
	tiers := lod.DefaultTiers()
	tc := make([]TierConfig, len(tiers))
	for i, t := range tiers {
		tc[i] = TierConfig{
			Name:         t.Name,
			Subdivisions: t.Subdivisions,
			Every:        t.Every,
			Offset:       t.Offset,
			Translation:  t.Translation,
		}
	}
	return Config{
		AppID:     "mesh_over_custom_time",
		Timeline:  "frame",
		Frames:    10000,
		RadiusMin: 0.1,
		RadiusMax: 50.1,
		SlowFrame: Duration{250 * time.Millisecond},
		Tiers:     tc,
	}
}

// Load reads a TOML file on top of Default. Unknown keys are rejected; a file
// that declares any tier replaces the default tier list.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes TOML bytes on top of Default and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	defaults := cfg.Tiers
	cfg.Tiers = nil

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = defaults
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks ranges and tier definitions.
func (c Config) Validate() error {
	switch {
	case c.AppID == "":
		return fmt.Errorf("%w: app_id is empty", ErrInvalidConfig)
	case c.Timeline == "":
		return fmt.Errorf("%w: timeline is empty", ErrInvalidConfig)
	case c.Frames < 1:
		return fmt.Errorf("%w: frames must be >= 1, got %d", ErrInvalidConfig, c.Frames)
	case c.RadiusMin < 0:
		return fmt.Errorf("%w: radius_min must be >= 0, got %v", ErrInvalidConfig, c.RadiusMin)
	case c.RadiusMax < c.RadiusMin:
		return fmt.Errorf("%w: radius_max %v below radius_min %v", ErrInvalidConfig, c.RadiusMax, c.RadiusMin)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	case c.SlowFrame.Duration < 0:
		return fmt.Errorf("%w: slow_frame must be >= 0", ErrInvalidConfig)
	case len(c.Tiers) == 0:
		return fmt.Errorf("%w: no tiers", ErrInvalidConfig)
	}
	if err := lod.ValidateTiers(c.LODTiers()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LODTiers converts the tier list for the scheduler.
func (c Config) LODTiers() []lod.Tier {
	out := make([]lod.Tier, len(c.Tiers))
	for i, t := range c.Tiers {
		out[i] = lod.Tier{
			Name:         t.Name,
			Subdivisions: t.Subdivisions,
			Every:        t.Every,
			Offset:       t.Offset,
			Translation:  mgl32.Vec3(t.Translation),
		}
	}
	return out
}

// WorkerCount resolves Workers, defaulting to one per CPU.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU(), 1)
}
