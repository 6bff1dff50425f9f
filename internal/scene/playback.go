package scene

import (
	"lod-spheres/internal/recording"
)

// maxLivePerTick bounds how many live messages one tick applies so a fast
// producer cannot starve rendering.
const maxLivePerTick = 256

// Playback feeds messages from a channel into a Scene. Live playback applies
// whatever has arrived; replay advances a playhead at a fixed rate of frames
// per second and holds back messages stamped later than it.
type Playback struct {
	scene *Scene
	in    <-chan recording.Message
	live  bool

	playhead int64
	started  bool
	accum    float64
	peek     *recording.Message
	drained  bool
}

// NewPlayback creates a playback over in. The channel is closed by the
// producer at the end of the recording.
func NewPlayback(s *Scene, in <-chan recording.Message, live bool) *Playback {
	return &Playback{scene: s, in: in, live: live}
}

// Scene returns the scene being fed.
func (p *Playback) Scene() *Scene {
	return p.scene
}

// Live reports whether messages are applied on arrival.
func (p *Playback) Live() bool {
	return p.live
}

// Playhead returns the replay position; it is meaningless in live mode.
func (p *Playback) Playhead() int64 {
	return p.playhead
}

// Drained reports whether the input is closed and everything was applied.
func (p *Playback) Drained() bool {
	return p.drained && p.peek == nil
}

// Tick applies the messages due after dt seconds and returns how many were
// applied along with the first apply error.
func (p *Playback) Tick(dt float64, fps int, paused bool) (int, error) {
	if p.live {
		return p.drain(maxLivePerTick, func(recording.Message) bool { return true })
	}

	if p.started && !paused {
		p.accum += dt * float64(fps)
		step := int64(p.accum)
		p.accum -= float64(step)
		p.playhead += step
	}
	return p.drain(-1, func(msg recording.Message) bool {
		if msg.Static {
			return true
		}
		if !p.started {
			p.started = true
			p.playhead = msg.Sequence
		}
		return msg.Sequence <= p.playhead
	})
}

// Step moves the replay playhead by frames, ignoring pause.
func (p *Playback) Step(frames int64) (int, error) {
	if !p.live && p.started {
		p.playhead += frames
	}
	return p.Tick(0, 0, true)
}

func (p *Playback) drain(limit int, due func(recording.Message) bool) (int, error) {
	var firstErr error
	n := 0
	for limit < 0 || n < limit {
		msg, ok := p.next()
		if !ok {
			break
		}
		if !due(msg) {
			p.peek = &msg
			break
		}
		if err := p.scene.Apply(msg); err != nil && firstErr == nil {
			firstErr = err
		}
		n++
	}
	return n, firstErr
}

func (p *Playback) next() (recording.Message, bool) {
	if p.peek != nil {
		msg := *p.peek
		p.peek = nil
		return msg, true
	}
	if p.drained {
		return recording.Message{}, false
	}
	select {
	case msg, ok := <-p.in:
		if !ok {
			p.drained = true
			return recording.Message{}, false
		}
		return msg, true
	default:
		return recording.Message{}, false
	}
}
