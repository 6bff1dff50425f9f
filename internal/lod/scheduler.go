package lod

import "sync"

// Scheduler decides which tiers are due on each frame. Every tier keeps its
// own countdown, so cadences are independent of each other and of the
// absolute frame number.
type Scheduler struct {
	mu        sync.Mutex
	tiers     []Tier
	remaining []int
	frame     int64
}

// NewScheduler creates a scheduler positioned before frame 0.
func NewScheduler(tiers []Tier) *Scheduler {
	s := &Scheduler{
		tiers:     append([]Tier(nil), tiers...),
		remaining: make([]int, len(tiers)),
	}
	s.Reset()
	return s
}

// Reset rewinds every counter to frame 0.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tiers {
		s.remaining[i] = t.Offset
	}
	s.frame = 0
}

// Due returns the tiers to emit on the current frame, in declaration order,
// then advances to the next frame.
func (s *Scheduler) Due() []Tier {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Tier
	for i, t := range s.tiers {
		if s.remaining[i] == 0 {
			due = append(due, t)
			s.remaining[i] = max(t.Every, 1)
		}
		s.remaining[i]--
	}
	s.frame++
	return due
}

// Frame returns the index of the next frame Due will evaluate.
func (s *Scheduler) Frame() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Tiers returns a copy of the scheduled tiers.
func (s *Scheduler) Tiers() []Tier {
	return append([]Tier(nil), s.tiers...)
}

// EmissionsIn returns how many times tier t fires in the first frames frames.
func EmissionsIn(t Tier, frames int) int {
	if frames <= t.Offset || t.Every < 1 {
		return 0
	}
	return (frames-t.Offset-1)/t.Every + 1
}
