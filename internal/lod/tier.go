package lod

import (
	"errors"
	"fmt"

	"lod-spheres/internal/sphere"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidTier is returned by Validate for tiers the scheduler cannot run.
var ErrInvalidTier = errors.New("invalid lod tier")

// Tier is one level of detail: an entity path, a sphere resolution and the
// cadence at which it is regenerated.
type Tier struct {
	Name         string
	Subdivisions int
	// Every is the number of frames between two emissions (1 = every frame).
	Every int
	// Offset delays the first emission by this many frames.
	Offset int
	// Translation places the tier in the scene; logged once as a static transform.
	Translation mgl32.Vec3
}

// DefaultTiers returns the three tiers of the stock scene:
// 600, 60k and 6M vertices per emitted frame.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "LOD_10", Subdivisions: 10, Every: 1, Translation: mgl32.Vec3{-100, 0, 0}},
		{Name: "LOD_100", Subdivisions: 100, Every: 10},
		{Name: "LOD_1000", Subdivisions: 1000, Every: 100, Translation: mgl32.Vec3{100, 0, 0}},
	}
}

// Validate checks the tier can be scheduled and generated.
func (t Tier) Validate() error {
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidTier)
	case t.Subdivisions < 1:
		return fmt.Errorf("%w: %s: subdivisions must be >= 1, got %d", ErrInvalidTier, t.Name, t.Subdivisions)
	case t.Every < 1:
		return fmt.Errorf("%w: %s: every must be >= 1, got %d", ErrInvalidTier, t.Name, t.Every)
	case t.Offset < 0:
		return fmt.Errorf("%w: %s: offset must be >= 0, got %d", ErrInvalidTier, t.Name, t.Offset)
	}
	return nil
}

// VerticesPerFrame is the vertex count of one emitted mesh of this tier.
func (t Tier) VerticesPerFrame() int {
	return sphere.VertexCount(t.Subdivisions)
}

// HasTransform reports whether the tier sits away from the scene origin.
func (t Tier) HasTransform() bool {
	return t.Translation != (mgl32.Vec3{})
}

// ValidateTiers validates each tier and rejects duplicate names.
func ValidateTiers(tiers []Tier) error {
	seen := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidTier, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}
