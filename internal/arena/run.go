package arena

import (
	"sync"
	"time"
)

// Run lifecycle states. Completed and failed are absorbing.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Snapshot is the externally visible state of a run. Readers always get
// a consistent triple: a completed snapshot carries its result, a failed
// one its error, never a half-written mix.
type Snapshot struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Config     RunConfig  `json:"config"`
	Result     *Result    `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Run is the mutable run entity. All writes go through the transition
// helpers under one lock; Snapshot hands out copies only.
type Run struct {
	mu   sync.Mutex
	snap Snapshot
}

func newRun(id string, cfg RunConfig) *Run {
	return &Run{snap: Snapshot{
		ID:        id,
		Status:    StatusQueued,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}}
}

// Snapshot returns a copy of the current state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// markRunning moves queued -> running. Returns false if the run was
// already picked up, guaranteeing a single execution context per run.
func (r *Run) markRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.Status != StatusQueued {
		return false
	}
	now := time.Now().UTC()
	r.snap.Status = StatusRunning
	r.snap.StartedAt = &now
	return true
}

// complete moves running -> completed, publishing status and result in
// one swap.
func (r *Run) complete(result *Result) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.Status == StatusRunning {
		now := time.Now().UTC()
		r.snap.Status = StatusCompleted
		r.snap.Result = result
		r.snap.FinishedAt = &now
	}
	return r.snap
}

// fail moves running -> failed with a human-readable error.
func (r *Run) fail(message string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.Status == StatusRunning {
		now := time.Now().UTC()
		r.snap.Status = StatusFailed
		r.snap.Error = message
		r.snap.FinishedAt = &now
	}
	return r.snap
}
