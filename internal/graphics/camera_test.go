package graphics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraLooksAtTarget(t *testing.T) {
	c := NewCamera(900, 600)
	c.Target = mgl32.Vec3{10, -5, 3}
	c.Orbit(37, -12)

	assert.InDelta(t, c.Distance, c.Position().Sub(c.Target).Len(), 1e-3)

	// The target lands on the view axis, Distance in front of the eye.
	p := mgl32.TransformCoordinate(c.Target, c.GetViewMatrix())
	assert.InDelta(t, 0, p.X(), 1e-3)
	assert.InDelta(t, 0, p.Y(), 1e-3)
	assert.InDelta(t, -c.Distance, p.Z(), 1e-2)
}

func TestCameraDefaultsAboveAndInFront(t *testing.T) {
	c := NewCamera(900, 600)
	pos := c.Position()
	assert.Greater(t, pos.Y(), float32(0))
	assert.Greater(t, pos.Z(), float32(0))
	assert.InDelta(t, 0, pos.X(), 1e-3)
	assert.InDelta(t, 1.5, c.AspectRatio, 1e-6)
}

func TestCameraOrbitClampsPitch(t *testing.T) {
	c := NewCamera(1, 1)
	c.Orbit(0, 500)
	assert.Equal(t, float32(maxPitch), c.Pitch)
	c.Orbit(0, -1000)
	assert.Equal(t, float32(minPitch), c.Pitch)
}

func TestCameraZoomAndViewport(t *testing.T) {
	c := NewCamera(800, 600)
	d := c.Distance
	c.Zoom(0.5)
	assert.InDelta(t, d/2, c.Distance, 1e-4)
	c.Zoom(0)
	assert.InDelta(t, d/2, c.Distance, 1e-4)
	c.Zoom(1e-9)
	assert.Equal(t, float32(minDistance), c.Distance)

	c.SetViewport(0, 0)
	assert.InDelta(t, 800.0/600.0, c.AspectRatio, 1e-6)
}

func TestCameraFrame(t *testing.T) {
	c := NewCamera(800, 600)
	c.Frame(mgl32.Vec3{1, 2, 3}, 150)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Target)
	// sin(30 deg) = 0.5
	assert.InDelta(t, 330, c.Distance, 1e-2)
	assert.GreaterOrEqual(t, c.FarPlane, c.Distance+300)

	c.Frame(mgl32.Vec3{}, 0)
	assert.InDelta(t, 330, c.Distance, 1e-2)
}
