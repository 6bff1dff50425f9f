package viewer

import (
	"fmt"

	"lod-spheres/internal/config"
	"lod-spheres/internal/graphics"
	"lod-spheres/internal/input"
	"lod-spheres/internal/scene"

	"github.com/chewxy/math32"
)

const (
	orbitSpeed      = 90.0 // degrees per second
	zoomSpeed       = 1.5  // distance factor per second
	dragSensitivity = 0.3  // degrees per pixel
	scrollStep      = 0.9
)

// Command is a one-shot request raised by input for the loop to act on.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandStep
)

// applyControls moves the camera and flips playback settings from the
// current input state.
func applyControls(im *input.InputManager, cam *graphics.Camera, s *scene.Scene, dt float32) Command {
	var yaw, pitch float32
	if im.IsActive(input.ActionOrbitLeft) {
		yaw -= orbitSpeed * dt
	}
	if im.IsActive(input.ActionOrbitRight) {
		yaw += orbitSpeed * dt
	}
	if im.IsActive(input.ActionOrbitUp) {
		pitch += orbitSpeed * dt
	}
	if im.IsActive(input.ActionOrbitDown) {
		pitch -= orbitSpeed * dt
	}
	dx, dy := im.Drag()
	yaw += float32(dx) * dragSensitivity
	pitch += float32(dy) * dragSensitivity
	if yaw != 0 || pitch != 0 {
		cam.Orbit(yaw, pitch)
	}

	if im.IsActive(input.ActionZoomIn) {
		cam.Zoom(math32.Pow(zoomSpeed, -dt))
	}
	if im.IsActive(input.ActionZoomOut) {
		cam.Zoom(math32.Pow(zoomSpeed, dt))
	}
	if sc := im.Scroll(); sc != 0 {
		cam.Zoom(math32.Pow(scrollStep, float32(sc)))
	}

	if im.JustPressed(input.ActionFrameScene) && s != nil {
		cam.Frame(s.Bounds())
	}
	if im.JustPressed(input.ActionToggleWireframe) {
		config.ToggleWireframe()
	}
	if im.JustPressed(input.ActionTogglePause) {
		config.TogglePaused()
	}
	if im.JustPressed(input.ActionFaster) {
		config.SetPlaybackFPS(config.GetPlaybackFPS() * 2)
	}
	if im.JustPressed(input.ActionSlower) {
		config.SetPlaybackFPS(config.GetPlaybackFPS() / 2)
	}

	switch {
	case im.JustPressed(input.ActionQuit):
		return CommandQuit
	case im.JustPressed(input.ActionStepForward):
		return CommandStep
	}
	return CommandNone
}

// statusLines describes the playback state for the HUD.
func statusLines(pb *scene.Playback) []string {
	var lines []string
	switch {
	case pb.Live():
		lines = append(lines, "live")
	case config.GetPaused():
		lines = append(lines, fmt.Sprintf("paused at %d", pb.Playhead()))
	default:
		lines = append(lines, fmt.Sprintf("replay %d frames/s", config.GetPlaybackFPS()))
	}
	if pb.Drained() {
		lines = append(lines, "end of recording")
	}
	if config.GetWireframe() {
		lines = append(lines, "wireframe")
	}
	return lines
}
