package graphics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	minPitch    = -89.0
	maxPitch    = 89.0
	minDistance = 0.5
)

// Camera orbits a target point; yaw and pitch are in degrees.
type Camera struct {
	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32

	Target   mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Distance float32
}

func NewCamera(width, height int) *Camera {
	c := &Camera{
		FOV:       60.0,
		NearPlane: 0.1,
		FarPlane:  5000.0,
		Yaw:       90.0,
		Pitch:     20.0,
		Distance:  300.0,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio; zero sizes (minimized windows) are ignored.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

// Position returns the eye position in world space.
func (c *Camera) Position() mgl32.Vec3 {
	yaw := mgl32.DegToRad(c.Yaw)
	pitch := mgl32.DegToRad(c.Pitch)
	offset := mgl32.Vec3{
		math32.Cos(pitch) * math32.Cos(yaw),
		math32.Sin(pitch),
		math32.Cos(pitch) * math32.Sin(yaw),
	}
	return c.Target.Add(offset.Mul(c.Distance))
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

// Orbit rotates around the target by the given degrees.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch = mgl32.Clamp(c.Pitch+dPitch, minPitch, maxPitch)
}

// Zoom scales the distance to the target; factor < 1 moves closer.
func (c *Camera) Zoom(factor float32) {
	if factor <= 0 {
		return
	}
	c.Distance = max(c.Distance*factor, minDistance)
}

// Frame points the camera at a bounding sphere so it fills the view.
func (c *Camera) Frame(center mgl32.Vec3, radius float32) {
	c.Target = center
	if radius <= 0 {
		return
	}
	halfFOV := mgl32.DegToRad(c.FOV) / 2
	c.Distance = max(radius/math32.Sin(halfFOV)*1.1, minDistance)
	if c.FarPlane < c.Distance+radius*2 {
		c.FarPlane = c.Distance + radius*2
	}
}
