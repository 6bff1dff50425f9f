// Package app drives the frame loop: it walks the time axis, regenerates the
// due sphere tiers and logs them to a recording stream.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lod-spheres/internal/config"
	"lod-spheres/internal/lod"
	"lod-spheres/internal/meshing"
	"lod-spheres/internal/profiling"
	"lod-spheres/internal/recording"
)

// ViewCoordinatesPath is the static entity carrying the scene's axis convention.
const ViewCoordinatesPath = "spheres"

// Stats summarizes a run.
type Stats struct {
	Frames     int
	Meshes     int
	Vertices   int64
	PerTier    map[string]int
	SlowFrames int
	Elapsed    time.Duration
}

// RadiusAt returns the sphere radius on frame of a run of frames frames,
// growing linearly from lo towards hi.
func RadiusAt(frame, frames int, lo, hi float32) float32 {
	if frames <= 0 {
		return lo
	}
	return float32(frame)/float32(frames)*(hi-lo) + lo
}

// Run logs the static scene setup, then one frame per step of cfg.Timeline.
// It stops early with ctx's error when ctx is cancelled between frames.
func Run(ctx context.Context, cfg config.Config, stream *recording.RecordingStream, pool *meshing.WorkerPool, logger *slog.Logger) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	tiers := cfg.LODTiers()
	stats := Stats{PerTier: make(map[string]int, len(tiers))}
	start := time.Now()

	if err := logStatic(stream, tiers); err != nil {
		return stats, err
	}

	sched := lod.NewScheduler(tiers)
	for frame := 0; frame < cfg.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}

		profiling.ResetFrame()
		frameStart := time.Now()

		stream.SetTimeSequence(cfg.Timeline, int64(frame))
		radius := RadiusAt(frame, cfg.Frames, cfg.RadiusMin, cfg.RadiusMax)

		due := sched.Due()
		results, err := pool.GenerateFrame(ctx, due, int64(frame), radius)
		if err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("frame %d: %w", frame, err)
		}

		stopLog := profiling.Track("recording.Log")
		for _, r := range results {
			m := recording.NewMesh3D(r.Mesh.Vertices).WithVertexNormals(r.Mesh.Normals)
			if err := stream.Log(r.Tier.Name, m); err != nil {
				stopLog()
				stats.Elapsed = time.Since(start)
				return stats, fmt.Errorf("frame %d: log %s: %w", frame, r.Tier.Name, err)
			}
			stats.Meshes++
			stats.PerTier[r.Tier.Name]++
			stats.Vertices += int64(r.Mesh.VertexCount())
		}
		stopLog()
		stats.Frames++

		if d := time.Since(frameStart); cfg.SlowFrame.Duration > 0 && d > cfg.SlowFrame.Duration {
			stats.SlowFrames++
			logger.Warn("slow frame", "frame", frame, "took", d, "top", profiling.TopN(5))
		} else if len(due) > 0 {
			logger.Debug("frame", "frame", frame, "radius", radius, "tiers", len(due), "took", d,
				"meshing", profiling.SumWithPrefix("meshing."))
		}
	}

	if err := stream.Flush(); err != nil {
		return stats, fmt.Errorf("flush: %w", err)
	}
	stats.Elapsed = time.Since(start)
	logger.Info("run finished", "frames", stats.Frames, "meshes", stats.Meshes,
		"vertices", stats.Vertices, "elapsed", stats.Elapsed)
	return stats, nil
}

func logStatic(stream *recording.RecordingStream, tiers []lod.Tier) error {
	if err := stream.LogStatic(ViewCoordinatesPath, recording.RightHandYUp); err != nil {
		return fmt.Errorf("log view coordinates: %w", err)
	}
	for _, t := range tiers {
		if !t.HasTransform() {
			continue
		}
		if err := stream.LogStatic(t.Name, recording.FromTranslation(t.Translation)); err != nil {
			return fmt.Errorf("log transform %s: %w", t.Name, err)
		}
	}
	return nil
}
