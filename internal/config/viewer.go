package config

import "sync"

// ViewerSettings holds runtime viewer toggles shared between the input
// callbacks and the render loop.
type ViewerSettings struct {
	mu          sync.RWMutex
	playbackFPS int
	wireframe   bool
	paused      bool
}

var globalViewerSettings = &ViewerSettings{
	playbackFPS: 60, // default value
}

// GetPlaybackFPS returns how many recorded frames per second a replay advances
func GetPlaybackFPS() int {
	globalViewerSettings.mu.RLock()
	defer globalViewerSettings.mu.RUnlock()
	return globalViewerSettings.playbackFPS
}

// SetPlaybackFPS sets the replay speed
func SetPlaybackFPS(fps int) {
	globalViewerSettings.mu.Lock()
	defer globalViewerSettings.mu.Unlock()

	// Clamp to reasonable values
	if fps < 1 {
		fps = 1
	}
	if fps > 1000 {
		fps = 1000
	}

	globalViewerSettings.playbackFPS = fps
}

// GetWireframe returns whether meshes are drawn as lines
func GetWireframe() bool {
	globalViewerSettings.mu.RLock()
	defer globalViewerSettings.mu.RUnlock()
	return globalViewerSettings.wireframe
}

// ToggleWireframe flips wireframe mode and returns the new value
func ToggleWireframe() bool {
	globalViewerSettings.mu.Lock()
	defer globalViewerSettings.mu.Unlock()
	globalViewerSettings.wireframe = !globalViewerSettings.wireframe
	return globalViewerSettings.wireframe
}

// GetPaused returns whether replay is paused
func GetPaused() bool {
	globalViewerSettings.mu.RLock()
	defer globalViewerSettings.mu.RUnlock()
	return globalViewerSettings.paused
}

// TogglePaused flips the replay pause state and returns the new value
func TogglePaused() bool {
	globalViewerSettings.mu.Lock()
	defer globalViewerSettings.mu.Unlock()
	globalViewerSettings.paused = !globalViewerSettings.paused
	return globalViewerSettings.paused
}
