package meshing

import (
	"context"
	"testing"

	"lod-spheres/internal/lod"
	"lod-spheres/internal/sphere"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTiers() []lod.Tier {
	return []lod.Tier{
		{Name: "coarse", Subdivisions: 2, Every: 1},
		{Name: "mid", Subdivisions: 20, Every: 1},
		{Name: "fine", Subdivisions: 60, Every: 1},
	}
}

func TestGenerateFrameKeepsTierOrder(t *testing.T) {
	pool := NewWorkerPool(4, 8)
	defer pool.Shutdown()

	tiers := testTiers()
	for frame := int64(0); frame < 5; frame++ {
		res, err := pool.GenerateFrame(context.Background(), tiers, frame, 2.5)
		require.NoError(t, err)
		require.Len(t, res, len(tiers))
		for i, r := range res {
			assert.Equal(t, tiers[i].Name, r.Tier.Name)
			assert.Equal(t, frame, r.Frame)
			assert.Len(t, r.Mesh.Vertices, sphere.VertexCount(tiers[i].Subdivisions))
			assert.Equal(t, float32(2.5), r.Mesh.Radius)
		}
	}
}

func TestGenerateFrameMatchesDirectCall(t *testing.T) {
	pool := NewWorkerPool(2, 2)
	defer pool.Shutdown()

	res, err := pool.GenerateFrame(context.Background(), testTiers(), 0, 1)
	require.NoError(t, err)
	want := sphere.Generate(1, 20)
	assert.Equal(t, want.Vertices, res[1].Mesh.Vertices)
	assert.Equal(t, want.Normals, res[1].Mesh.Normals)
}

func TestGenerateFrameEmpty(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Shutdown()

	res, err := pool.GenerateFrame(context.Background(), nil, 0, 1)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestGenerateFrameCancelled(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.GenerateFrame(ctx, testTiers(), 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(2, 4)
	pool.Shutdown()

	assert.False(t, pool.SubmitJob(MeshJob{Tier: testTiers()[0]}))
	_, err := pool.GenerateFrame(context.Background(), testTiers(), 0, 1)
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Equal(t, 2, pool.Workers())
}

func BenchmarkGenerateFrameDefaultTiers(b *testing.B) {
	pool := NewWorkerPool(3, 3)
	defer pool.Shutdown()
	tiers := lod.DefaultTiers()[:2]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pool.GenerateFrame(context.Background(), tiers, int64(i), 10)
	}
}
