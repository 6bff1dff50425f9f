package lod

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ts []Tier) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

func TestDefaultTiersMatchModuloCadence(t *testing.T) {
	s := NewScheduler(DefaultTiers())
	counts := map[string]int{}
	for frame := 0; frame < 1000; frame++ {
		var want []string
		want = append(want, "LOD_10")
		if frame%10 == 0 {
			want = append(want, "LOD_100")
		}
		if frame%100 == 0 {
			want = append(want, "LOD_1000")
		}
		got := names(s.Due())
		require.Equal(t, want, got, "frame %d", frame)
		for _, n := range got {
			counts[n]++
		}
	}
	assert.Equal(t, map[string]int{"LOD_10": 1000, "LOD_100": 100, "LOD_1000": 10}, counts)
	assert.EqualValues(t, 1000, s.Frame())
}

func TestSchedulerOffset(t *testing.T) {
	tier := Tier{Name: "late", Subdivisions: 4, Every: 5, Offset: 7}
	s := NewScheduler([]Tier{tier})
	var fired []int
	for frame := 0; frame < 30; frame++ {
		if len(s.Due()) > 0 {
			fired = append(fired, frame)
		}
	}
	assert.Equal(t, []int{7, 12, 17, 22, 27}, fired)
	assert.Equal(t, len(fired), EmissionsIn(tier, 30))
}

func TestSchedulerFirstAtOffsetThenEvery(t *testing.T) {
	for _, tier := range []Tier{
		{Name: "a", Subdivisions: 1, Every: 1, Offset: 0},
		{Name: "b", Subdivisions: 1, Every: 4, Offset: 2},
		{Name: "c", Subdivisions: 1, Every: 3, Offset: 3},
		{Name: "d", Subdivisions: 1, Every: 2, Offset: 9},
	} {
		s := NewScheduler([]Tier{tier})
		for frame := 0; frame < 60; frame++ {
			want := frame >= tier.Offset && (frame-tier.Offset)%tier.Every == 0
			assert.Equal(t, want, len(s.Due()) == 1, "tier %s frame %d", tier.Name, frame)
		}
	}
}

func TestSchedulerReset(t *testing.T) {
	s := NewScheduler([]Tier{{Name: "a", Subdivisions: 1, Every: 3}})
	assert.Len(t, s.Due(), 1)
	assert.Empty(t, s.Due())
	s.Reset()
	assert.EqualValues(t, 0, s.Frame())
	assert.Len(t, s.Due(), 1)
}

func TestEmissionsIn(t *testing.T) {
	tiers := DefaultTiers()
	assert.Equal(t, 10000, EmissionsIn(tiers[0], 10000))
	assert.Equal(t, 1000, EmissionsIn(tiers[1], 10000))
	assert.Equal(t, 100, EmissionsIn(tiers[2], 10000))
	assert.Equal(t, 1, EmissionsIn(tiers[2], 1))
	assert.Equal(t, 0, EmissionsIn(tiers[2], 0))
}

func TestTierValidate(t *testing.T) {
	cases := []struct {
		name string
		tier Tier
		ok   bool
	}{
		{"default", Tier{Name: "a", Subdivisions: 1, Every: 1}, true},
		{"no name", Tier{Subdivisions: 1, Every: 1}, false},
		{"zero subdivisions", Tier{Name: "a", Subdivisions: 0, Every: 1}, false},
		{"zero cadence", Tier{Name: "a", Subdivisions: 1, Every: 0}, false},
		{"negative offset", Tier{Name: "a", Subdivisions: 1, Every: 1, Offset: -1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tier.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTier)
			}
		})
	}
}

func TestValidateTiersRejectsDuplicates(t *testing.T) {
	tiers := []Tier{
		{Name: "a", Subdivisions: 1, Every: 1},
		{Name: "a", Subdivisions: 2, Every: 1},
	}
	assert.ErrorIs(t, ValidateTiers(tiers), ErrInvalidTier)
	assert.NoError(t, ValidateTiers(DefaultTiers()))
}

func TestTierHelpers(t *testing.T) {
	tiers := DefaultTiers()
	assert.Equal(t, 600, tiers[0].VerticesPerFrame())
	assert.Equal(t, 60000, tiers[1].VerticesPerFrame())
	assert.Equal(t, 6000000, tiers[2].VerticesPerFrame())
	assert.True(t, tiers[0].HasTransform())
	assert.False(t, tiers[1].HasTransform())
	assert.Equal(t, mgl32.Vec3{100, 0, 0}, tiers[2].Translation)
}
