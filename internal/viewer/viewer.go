// Package viewer renders a recording in a GLFW window: the latest mesh of
// every entity, placed by its static transform, with an orbit camera.
// Everything here except Pump runs on the locked main OS thread.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lod-spheres/internal/config"
	"lod-spheres/internal/graphics/renderables/hud"
	"lod-spheres/internal/graphics/renderables/meshes"
	renderer "lod-spheres/internal/graphics/renderer"
	"lod-spheres/internal/input"
	"lod-spheres/internal/profiling"
	"lod-spheres/internal/recording"
	"lod-spheres/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	WinWidth  = 1280
	WinHeight = 720

	renderFPS     = 60
	defaultBuffer = 64
)

// Options configures a viewer window.
type Options struct {
	Title string
	// Live applies messages as they arrive instead of pacing a replay.
	Live   bool
	Buffer int
	Logger *slog.Logger
}

// SetupWindow creates the window and GL context. glfw must be initialized.
func SetupWindow(title string) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(WinWidth, WinHeight, title, nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	// Initialize OpenGL bindings
	if err := gl.Init(); err != nil {
		window.Destroy()
		return nil, err
	}

	// Disable V-Sync; we'll use our own FPS limiter
	glfw.SwapInterval(0)
	return window, nil
}

// Run shows src until the window is closed or ctx is done. It must be called
// from the main goroutine with the OS thread locked. src is closed on return.
func Run(ctx context.Context, src Source, opts Options) (err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Title == "" {
		opts.Title = "spheres"
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}

	if err := glfw.Init(); err != nil {
		_ = src.Close()
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	window, err := SetupWindow(opts.Title)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	r, err := renderer.NewRenderer(WinWidth, WinHeight, meshes.NewMeshes(), hud.NewHUD())
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("init renderer: %w", err)
	}
	defer r.Dispose()

	fbw, fbh := window.GetFramebufferSize()
	r.UpdateViewport(fbw, fbh)
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		r.UpdateViewport(w, h)
	})

	im := input.NewInputManager()
	im.SetCallbacks(window)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan recording.Message, opts.Buffer)
	pumpDone := make(chan error, 1)
	go func() { pumpDone <- Pump(ctx, src, msgs) }()

	var streamErr error
	pumping := true
	defer func() {
		cancel()
		if cerr := src.Close(); cerr != nil {
			logger.Debug("close source", "err", cerr)
		}
		// Errors after we closed the source are expected.
		if pumping {
			<-pumpDone
		}
		if err == nil {
			err = streamErr
		}
	}()

	pb := scene.NewPlayback(scene.New(), msgs, opts.Live)
	limiter := NewFPSLimiter()
	framed := false
	last := time.Now()

	for !window.ShouldClose() && ctx.Err() == nil {
		profiling.ResetFrame()
		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		glfw.PollEvents()

		switch applyControls(im, r.GetCamera(), pb.Scene(), float32(dt)) {
		case CommandQuit:
			window.SetShouldClose(true)
		case CommandStep:
			if _, err := pb.Step(1); err != nil {
				logger.Warn("skipping message", "err", err)
			}
		}

		stop := profiling.Track("viewer.playback")
		if _, err := pb.Tick(dt, config.GetPlaybackFPS(), config.GetPaused()); err != nil {
			logger.Warn("skipping message", "err", err)
		}
		stop()

		if !framed && len(pb.Scene().Entities()) > 0 {
			r.GetCamera().Frame(pb.Scene().Bounds())
			framed = true
		}

		if pumping {
			select {
			case perr := <-pumpDone:
				// The pump finished on its own; keep showing what we have.
				pumping = false
				if perr != nil {
					logger.Error("recording stream failed", "err", perr)
					streamErr = perr
				}
			default:
			}
		}

		r.Render(pb.Scene(), statusLines(pb), dt)
		window.SwapBuffers()
		im.PostUpdate()

		if d := time.Since(now); d > 100*time.Millisecond {
			logger.Debug("slow frame", "took", d, "top", profiling.TopN(5))
		}
		limiter.Wait(renderFPS)
	}
	return nil
}
