package profiling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(name string, d time.Duration) {
	mu.Lock()
	frameTotals[name] += d
	b := runTotals[name]
	b.total += d
	b.count++
	runTotals[name] = b
	mu.Unlock()
}

func TestTopNAndPrefix(t *testing.T) {
	ResetAll()
	record("meshing.Generate.LOD_10", 2*time.Millisecond)
	record("meshing.Generate.LOD_1000", 40*time.Millisecond+500*time.Microsecond)
	record("recording.Log", 1500*time.Microsecond)

	assert.Equal(t, "meshing.Generate.LOD_1000:40.5ms, meshing.Generate.LOD_10:2ms", TopN(2))
	assert.Equal(t, 42*time.Millisecond+500*time.Microsecond, SumWithPrefix("meshing."))
	assert.Len(t, Snapshot(), 3)
	assert.Equal(t, "", formatTop(nil, 3))
}

func TestResetFrameKeepsRunTotals(t *testing.T) {
	ResetAll()
	record("a", time.Millisecond)
	record("a", 3*time.Millisecond)
	ResetFrame()
	assert.Empty(t, Snapshot())

	stats := RunStats()
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 2*time.Millisecond, stats[0].Mean())
}

func TestTrack(t *testing.T) {
	ResetAll()
	stop := Track("x.y")
	time.Sleep(time.Millisecond)
	stop()
	assert.GreaterOrEqual(t, Snapshot()["x.y"], time.Millisecond)
	assert.Equal(t, 0*time.Second, Stat{}.Mean())
}
