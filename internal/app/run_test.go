package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"lod-spheres/internal/config"
	"lod-spheres/internal/lod"
	"lod-spheres/internal/meshing"
	"lod-spheres/internal/recording"
	"lod-spheres/internal/sphere"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// smallConfig keeps the stock cadences but shrinks the meshes.
func smallConfig(frames int) config.Config {
	cfg := config.Default()
	cfg.Frames = frames
	cfg.Workers = 2
	cfg.SlowFrame = config.Duration{}
	cfg.Tiers = []config.TierConfig{
		{Name: "LOD_10", Subdivisions: 2, Every: 1, Translation: [3]float32{-100, 0, 0}},
		{Name: "LOD_100", Subdivisions: 4, Every: 10},
		{Name: "LOD_1000", Subdivisions: 8, Every: 100, Translation: [3]float32{100, 0, 0}},
	}
	return cfg
}

func TestRadiusAt(t *testing.T) {
	assert.Equal(t, float32(0.1), RadiusAt(0, 10000, 0.1, 50.1))
	assert.InDelta(t, 25.1, RadiusAt(5000, 10000, 0.1, 50.1), 1e-4)
	assert.InDelta(t, 50.095, RadiusAt(9999, 10000, 0.1, 50.1), 1e-3)
	assert.Equal(t, float32(3), RadiusAt(7, 0, 3, 9))

	prev := RadiusAt(0, 100, 0.1, 50.1)
	for f := 1; f < 100; f++ {
		r := RadiusAt(f, 100, 0.1, 50.1)
		assert.Greater(t, r, prev)
		prev = r
	}
}

func TestRunEmitsTiersOnCadence(t *testing.T) {
	cfg := smallConfig(250)
	pool := meshing.NewWorkerPool(cfg.WorkerCount(), 8)
	defer pool.Shutdown()

	sink := recording.NewMemorySink()
	stream := recording.NewRecordingStream(cfg.AppID, sink)

	stats, err := Run(context.Background(), cfg, stream, pool, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 250, stats.Frames)
	assert.Equal(t, map[string]int{"LOD_10": 250, "LOD_100": 25, "LOD_1000": 3}, stats.PerTier)
	assert.Equal(t, 278, stats.Meshes)
	wantVerts := int64(250*sphere.VertexCount(2) + 25*sphere.VertexCount(4) + 3*sphere.VertexCount(8))
	assert.Equal(t, wantVerts, stats.Vertices)

	msgs := sink.Messages()
	require.Len(t, msgs, 3+278)

	// Static setup comes first.
	assert.Equal(t, recording.Message{Path: ViewCoordinatesPath, Static: true, Payload: recording.RightHandYUp}, msgs[0])
	assert.Equal(t, "LOD_10", msgs[1].Path)
	assert.Equal(t, recording.FromTranslation(mgl32.Vec3{-100, 0, 0}), msgs[1].Payload)
	assert.Equal(t, "LOD_1000", msgs[2].Path)
	assert.True(t, msgs[2].Static)

	// Frame 0 carries every tier, in tier order.
	assert.Equal(t, "LOD_10", msgs[3].Path)
	assert.Equal(t, "LOD_100", msgs[4].Path)
	assert.Equal(t, "LOD_1000", msgs[5].Path)

	var last int64 = -1
	for _, m := range msgs[3:] {
		require.False(t, m.Static)
		assert.Equal(t, "frame", m.Timeline)
		assert.GreaterOrEqual(t, m.Sequence, last, "time never goes backwards")
		last = m.Sequence

		mesh := m.Payload.(recording.Mesh3D)
		switch m.Path {
		case "LOD_100":
			assert.Zero(t, m.Sequence%10)
		case "LOD_1000":
			assert.Zero(t, m.Sequence%100)
		}

		// Every vertex sits on the sphere for this frame's radius.
		want := RadiusAt(int(m.Sequence), cfg.Frames, cfg.RadiusMin, cfg.RadiusMax)
		assert.InDelta(t, want, mesh.Vertices[0].Len(), 1e-3*float64(want)+1e-5)
		assert.Len(t, mesh.Normals, len(mesh.Vertices))
	}
}

func TestRunMatchesDirectGeneration(t *testing.T) {
	cfg := smallConfig(3)
	pool := meshing.NewWorkerPool(4, 0)
	defer pool.Shutdown()

	sink := recording.NewMemorySink()
	_, err := Run(context.Background(), cfg, recording.NewRecordingStream(cfg.AppID, sink), pool, quietLogger())
	require.NoError(t, err)

	for _, m := range sink.Messages() {
		if m.Static || m.Path != "LOD_10" {
			continue
		}
		r := RadiusAt(int(m.Sequence), cfg.Frames, cfg.RadiusMin, cfg.RadiusMax)
		want := sphere.Generate(r, 2)
		got := m.Payload.(recording.Mesh3D)
		assert.Equal(t, want.Vertices, got.Vertices)
		assert.Equal(t, want.Normals, got.Normals)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	cfg := smallConfig(1000)
	pool := meshing.NewWorkerPool(1, 0)
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := recording.NewMemorySink()
	stats, err := Run(ctx, cfg, recording.NewRecordingStream(cfg.AppID, sink), pool, quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Frames)
	// Static setup is logged before the first frame.
	assert.Len(t, sink.Messages(), 3)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig(10)
	cfg.Tiers[0].Subdivisions = 0
	pool := meshing.NewWorkerPool(1, 0)
	defer pool.Shutdown()

	_, err := Run(context.Background(), cfg, recording.NewRecordingStream("x", recording.NewMemorySink()), pool, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.ErrorIs(t, err, lod.ErrInvalidTier)
}

func TestRunStopsOnClosedStream(t *testing.T) {
	cfg := smallConfig(10)
	pool := meshing.NewWorkerPool(1, 0)
	defer pool.Shutdown()

	stream := recording.NewRecordingStream(cfg.AppID, recording.NewMemorySink())
	require.NoError(t, stream.Close())
	_, err := Run(context.Background(), cfg, stream, pool, quietLogger())
	assert.ErrorIs(t, err, recording.ErrStreamClosed)
}

func BenchmarkRunDefaultCadence(b *testing.B) {
	cfg := smallConfig(100)
	pool := meshing.NewWorkerPool(4, 8)
	defer pool.Shutdown()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stream := recording.NewRecordingStream(cfg.AppID, recording.NewMemorySink())
		if _, err := Run(context.Background(), cfg, stream, pool, quietLogger()); err != nil {
			b.Fatal(err)
		}
	}
}
