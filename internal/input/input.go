package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action represents a logical viewer action, not a physical key
type Action int

const (
	ActionOrbitLeft Action = iota
	ActionOrbitRight
	ActionOrbitUp
	ActionOrbitDown
	ActionZoomIn
	ActionZoomOut
	ActionTogglePause
	ActionStepForward
	ActionFaster
	ActionSlower
	ActionFrameScene
	ActionToggleWireframe
	ActionQuit
	ActionMouseLeft
	ActionCount // Sentinel value for array sizing
)

// InputManager maps physical keys and buttons to actions and accumulates
// mouse motion and scroll between frames
type InputManager struct {
	mu sync.RWMutex

	keyToActions         map[glfw.Key][]Action
	mouseButtonToActions map[glfw.MouseButton][]Action

	currentState [ActionCount]bool
	justPressed  [ActionCount]bool

	cursorX, cursorY float64
	hasCursor        bool
	dragX, dragY     float64
	scroll           float64
}

// NewInputManager creates a new InputManager with default key bindings
func NewInputManager() *InputManager {
	im := &InputManager{
		keyToActions:         make(map[glfw.Key][]Action),
		mouseButtonToActions: make(map[glfw.MouseButton][]Action),
	}

	im.BindKey(glfw.KeyA, ActionOrbitLeft)
	im.BindKey(glfw.KeyLeft, ActionOrbitLeft)
	im.BindKey(glfw.KeyD, ActionOrbitRight)
	im.BindKey(glfw.KeyRight, ActionOrbitRight)
	im.BindKey(glfw.KeyW, ActionOrbitUp)
	im.BindKey(glfw.KeyUp, ActionOrbitUp)
	im.BindKey(glfw.KeyS, ActionOrbitDown)
	im.BindKey(glfw.KeyDown, ActionOrbitDown)
	im.BindKey(glfw.KeyE, ActionZoomIn)
	im.BindKey(glfw.KeyQ, ActionZoomOut)
	im.BindKey(glfw.KeySpace, ActionTogglePause)
	im.BindKey(glfw.KeyPeriod, ActionStepForward)
	im.BindKey(glfw.KeyRightBracket, ActionFaster)
	im.BindKey(glfw.KeyLeftBracket, ActionSlower)
	im.BindKey(glfw.KeyF, ActionFrameScene)
	im.BindKey(glfw.KeyG, ActionToggleWireframe)
	im.BindKey(glfw.KeyEscape, ActionQuit)

	im.BindMouseButton(glfw.MouseButtonLeft, ActionMouseLeft)

	return im
}

// BindKey binds a physical key to a logical action
// Multiple keys can be bound to the same action (e.g., WASD and arrow keys)
func (im *InputManager) BindKey(key glfw.Key, action Action) {
	if action < 0 || action >= ActionCount {
		return
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	im.keyToActions[key] = append(im.keyToActions[key], action)
}

// BindMouseButton binds a mouse button to a logical action
func (im *InputManager) BindMouseButton(button glfw.MouseButton, action Action) {
	if action < 0 || action >= ActionCount {
		return
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	im.mouseButtonToActions[button] = append(im.mouseButtonToActions[button], action)
}

// HandleKeyEvent processes a key event and updates internal state
func (im *InputManager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.apply(im.keyToActions[key], action == glfw.Press || action == glfw.Repeat)
}

// HandleMouseButtonEvent processes a mouse button event and updates internal state
func (im *InputManager) HandleMouseButtonEvent(button glfw.MouseButton, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.apply(im.mouseButtonToActions[button], action == glfw.Press)
}

func (im *InputManager) apply(actions []Action, isPressed bool) {
	for _, act := range actions {
		// Detect edges immediately when event arrives
		if isPressed && !im.currentState[act] {
			im.justPressed[act] = true
		}
		im.currentState[act] = isPressed
	}
}

// HandleCursorEvent records cursor motion; motion while the left button is
// held accumulates as a drag
func (im *InputManager) HandleCursorEvent(x, y float64) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.hasCursor && im.currentState[ActionMouseLeft] {
		im.dragX += x - im.cursorX
		im.dragY += y - im.cursorY
	}
	im.cursorX, im.cursorY = x, y
	im.hasCursor = true
}

// HandleScrollEvent accumulates vertical scroll
func (im *InputManager) HandleScrollEvent(dy float64) {
	im.mu.Lock()
	im.scroll += dy
	im.mu.Unlock()
}

// SetCallbacks sets up the GLFW callbacks for this input manager
// This should be called once during initialization
func (im *InputManager) SetCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleKeyEvent(key, action)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleMouseButtonEvent(button, action)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		im.HandleCursorEvent(x, y)
	})
	window.SetScrollCallback(func(w *glfw.Window, dx, dy float64) {
		im.HandleScrollEvent(dy)
	})
}

// PostUpdate must be called at the end of each frame to reset edges and
// accumulated motion
func (im *InputManager) PostUpdate() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.justPressed = [ActionCount]bool{}
	im.dragX, im.dragY, im.scroll = 0, 0, 0
}

// IsActive returns true if the action is currently being held down
func (im *InputManager) IsActive(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.currentState[action]
}

// JustPressed returns true only if the action was pressed in the current frame
func (im *InputManager) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.justPressed[action]
}

// Drag returns the cursor motion accumulated while dragging this frame
func (im *InputManager) Drag() (dx, dy float64) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.dragX, im.dragY
}

// Scroll returns the scroll accumulated this frame
func (im *InputManager) Scroll() float64 {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.scroll
}
