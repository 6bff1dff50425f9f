package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lod-spheres/internal/lod"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, lod.DefaultTiers(), cfg.LODTiers())
	assert.Equal(t, 10000, cfg.Frames)
	assert.Equal(t, float32(0.1), cfg.RadiusMin)
	assert.Equal(t, float32(50.1), cfg.RadiusMax)
	assert.GreaterOrEqual(t, cfg.WorkerCount(), 1)
}

func TestParseOverridesAndTiers(t *testing.T) {
	cfg, err := Parse([]byte(`
frames = 50
radius_max = 5.0
workers = 3
slow_frame = "1s"

[[tiers]]
name = "coarse"
subdivisions = 4
every = 2
translation = [1.0, 2.0, 3.0]

[[tiers]]
name = "fine"
subdivisions = 40
every = 5
offset = 1
`))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Frames)
	assert.Equal(t, float32(5), cfg.RadiusMax)
	assert.Equal(t, float32(0.1), cfg.RadiusMin, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.Equal(t, time.Second, cfg.SlowFrame.Duration)
	assert.Equal(t, []lod.Tier{
		{Name: "coarse", Subdivisions: 4, Every: 2, Translation: mgl32.Vec3{1, 2, 3}},
		{Name: "fine", Subdivisions: 40, Every: 5, Offset: 1},
	}, cfg.LODTiers())
}

func TestParseKeepsDefaultTiers(t *testing.T) {
	cfg, err := Parse([]byte(`frames = 10`))
	require.NoError(t, err)
	assert.Len(t, cfg.Tiers, 3)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":       `colour = "red"`,
		"zero subdivisions": "[[tiers]]\nname = \"a\"\nsubdivisions = 0\nevery = 1\n",
		"zero frames":       `frames = 0`,
		"inverted radius":   "radius_min = 5.0\nradius_max = 1.0\n",
		"negative workers":  `workers = -1`,
		"empty timeline":    `timeline = ""`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Parse([]byte(`slow_frame = "soon"`))
	assert.Error(t, err)
	_, err = Parse([]byte(`frames = [`))
	assert.Error(t, err)
}

func TestLoadAndEncode(t *testing.T) {
	cfg := Default()
	cfg.Frames = 77
	b, err := cfg.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "spheres.toml")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestViewerSettings(t *testing.T) {
	SetPlaybackFPS(0)
	assert.Equal(t, 1, GetPlaybackFPS())
	SetPlaybackFPS(5000)
	assert.Equal(t, 1000, GetPlaybackFPS())
	SetPlaybackFPS(60)

	w := GetWireframe()
	assert.Equal(t, !w, ToggleWireframe())
	assert.Equal(t, w, ToggleWireframe())
	p := GetPaused()
	assert.Equal(t, !p, TogglePaused())
	TogglePaused()
}
