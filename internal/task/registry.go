// Package task coordinates the long-running external work the server
// drives: reprocessing jobs and the batch extraction sweep. The Registry
// gives each job an exclusive keyed slot with an atomic check-and-reserve
// and a typed cancellation token, so a second start on the same key is
// rejected rather than raced.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrJobActive is returned when a job slot is already reserved for the
// requested key.
var ErrJobActive = errors.New("a job is already active for this key")

// Job is a live handle on one reserved slot. Cancellation is cooperative:
// Cancel cancels the job's context and the job releases the slot itself
// when it finishes. Cancelling twice, or after natural completion, is a
// no-op.
type Job struct {
	key     string
	runID   string
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// Key returns the slot key the job holds.
func (j *Job) Key() string { return j.key }

// RunID returns the unique identifier of this run, used to correlate the
// live handle with durable status records across restarts.
func (j *Job) RunID() string { return j.runID }

// StartedAt returns when the slot was reserved.
func (j *Job) StartedAt() time.Time { return j.started }

// Context returns the job's cancellable context. The job's work must be
// driven by it so Cancel takes effect.
func (j *Job) Context() context.Context { return j.ctx }

// Cancel requests cooperative cancellation. Safe to call any number of
// times and after the job has finished.
func (j *Job) Cancel() { j.cancel() }

// Done is closed when the job has released its slot.
func (j *Job) Done() <-chan struct{} { return j.done }

// Finished reports whether the job has released its slot.
func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Registry tracks at most one live job per key.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Acquire atomically reserves the slot for key and returns its job handle.
// Returns ErrJobActive if a live job already holds the slot. The caller
// must call Release (directly or via defer) when the work finishes,
// whether it succeeded, failed, or was cancelled.
func (r *Registry) Acquire(ctx context.Context, key string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[key]; ok && !existing.Finished() {
		return nil, ErrJobActive
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		key:     key,
		runID:   uuid.New().String(),
		started: time.Now().UTC(),
		ctx:     jobCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.jobs[key] = job
	return job, nil
}

// Release frees the job's slot and cancels its context. Idempotent.
func (r *Registry) Release(job *Job) {
	if job == nil {
		return
	}
	job.doneOnce.Do(func() {
		job.cancel()
		close(job.done)

		r.mu.Lock()
		if r.jobs[job.key] == job {
			delete(r.jobs, job.key)
		}
		r.mu.Unlock()
	})
}

// Get returns the live job for key, or nil when the slot is free.
func (r *Registry) Get(key string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[key]
	if !ok || job.Finished() {
		return nil
	}
	return job
}

// Cancel cancels the live job for key, if any. Returns the cancelled job,
// or nil when the slot was free. Cancelling a free slot is a no-op, not an
// error: the cancel may have raced with natural completion.
func (r *Registry) Cancel(key string) *Job {
	job := r.Get(key)
	if job != nil {
		job.Cancel()
	}
	return job
}
