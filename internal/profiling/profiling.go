package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight per-frame CPU profiler. Buckets are named "subsystem.Operation"
// and accumulate until ResetFrame; run totals survive resets.

type bucket struct {
	total time.Duration
	count int
}

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
	runTotals   = make(map[string]bucket)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("subsystem.Operation")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		b := runTotals[name]
		b.total += d
		b.count++
		runTotals[name] = b
		mu.Unlock()
	}
}

// ResetFrame clears current per-frame totals. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(frameTotals)
	mu.Unlock()
}

// ResetAll clears frame and run totals.
func ResetAll() {
	mu.Lock()
	clear(frameTotals)
	clear(runTotals)
	mu.Unlock()
}

// Snapshot returns a copy of current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// SumWithPrefix adds up the current frame's buckets whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var sum time.Duration
	for k, v := range frameTotals {
		if strings.HasPrefix(k, prefix) {
			sum += v
		}
	}
	return sum
}

// TopN formats top N durations from the current frame totals.
// Example: "meshing.Generate.LOD_1000:412.3ms, recording.Log:8.1ms"
func TopN(n int) string {
	return formatTop(Snapshot(), n)
}

// Stat is the accumulated time of one bucket over the whole run.
type Stat struct {
	Name  string
	Total time.Duration
	Count int
}

// Mean is the average duration of one tracked call.
func (s Stat) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// RunStats returns run totals sorted by total time, largest first.
func RunStats() []Stat {
	mu.Lock()
	out := make([]Stat, 0, len(runTotals))
	for k, b := range runTotals {
		out = append(out, Stat{Name: k, Total: b.total, Count: b.count})
	}
	mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Name < out[j].Name
		}
		return out[i].Total > out[j].Total
	})
	return out
}

func formatTop(ss map[string]time.Duration, n int) string {
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur == list[j].dur {
			return list[i].name < list[j].name
		}
		return list[i].dur > list[j].dur
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, list[i].name+":"+formatMs(list[i].dur))
	}
	return strings.Join(parts, ", ")
}

// formatMs keeps one decimal and drops a trailing ".0".
func formatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("%.1f", ms)
	return strings.TrimSuffix(s, ".0") + "ms"
}
