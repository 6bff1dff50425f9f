package meshing

import (
	"context"
	"errors"
	"sync"
	"time"

	"lod-spheres/internal/lod"
	"lod-spheres/internal/profiling"
	"lod-spheres/internal/sphere"
)

// ErrPoolClosed is returned when work is submitted after Shutdown.
var ErrPoolClosed = errors.New("mesh worker pool is shut down")

// MeshJob represents a sphere generation request for one tier on one frame
type MeshJob struct {
	Tier   lod.Tier
	Frame  int64
	Radius float32
	// Index is echoed back so callers can restore submission order
	Index int
	// Result channel - will be sent the result when done
	ResultChan chan MeshResult
}

// MeshResult contains the result of a meshing operation
type MeshResult struct {
	Tier    lod.Tier
	Frame   int64
	Index   int
	Mesh    sphere.Mesh
	Elapsed time.Duration
}

// WorkerPool manages goroutines for mesh generation
type WorkerPool struct {
	jobQueue chan MeshJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new mesh worker pool
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	workers = max(workers, 1)

	pool := &WorkerPool{
		jobQueue: make(chan MeshJob, max(queueSize, 0)),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	// Start worker goroutines
	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// SubmitJob submits a mesh generation job to the pool
// Returns true if job was submitted successfully, false if queue is full
func (p *WorkerPool) SubmitJob(job MeshJob) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false // Queue is full
	}
}

// SubmitJobBlocking submits a job and blocks until it's queued, ctx is done
// or the pool shuts down.
func (p *WorkerPool) SubmitJobBlocking(ctx context.Context, job MeshJob) error {
	if p.ctx.Err() != nil {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// worker is the worker goroutine that processes mesh jobs
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			start := time.Now()
			stop := profiling.Track("meshing.Generate." + job.Tier.Name)
			mesh := sphere.Generate(job.Radius, job.Tier.Subdivisions)
			stop()

			result := MeshResult{
				Tier:    job.Tier,
				Frame:   job.Frame,
				Index:   job.Index,
				Mesh:    mesh,
				Elapsed: time.Since(start),
			}

			// Send result back
			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// GenerateFrame generates one mesh per tier in parallel and returns the
// results in the order of tiers.
func (p *WorkerPool) GenerateFrame(ctx context.Context, tiers []lod.Tier, frame int64, radius float32) ([]MeshResult, error) {
	if len(tiers) == 0 {
		return nil, nil
	}
	results := make(chan MeshResult, len(tiers))
	for i, t := range tiers {
		job := MeshJob{Tier: t, Frame: frame, Radius: radius, Index: i, ResultChan: results}
		if err := p.SubmitJobBlocking(ctx, job); err != nil {
			return nil, err
		}
	}

	out := make([]MeshResult, len(tiers))
	for range tiers {
		select {
		case r := <-results:
			out[r.Index] = r
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, ErrPoolClosed
		}
	}
	return out, nil
}

// Shutdown stops the workers and waits for them to exit. Jobs still queued
// are dropped.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// GetQueueLength returns the current number of jobs in the queue
func (p *WorkerPool) GetQueueLength() int {
	return len(p.jobQueue)
}
