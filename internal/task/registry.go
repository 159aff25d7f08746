// Package task holds the in-memory registry of async analysis jobs.
package task

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/model"
)

// Status is the lifecycle state of an async analysis task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultRetention is how long a task stays queryable after creation.
const DefaultRetention = time.Hour

// Task is one async analysis job. Result is set only on completion, Error
// only on failure.
type Task struct {
	ID        string               `json:"id"`
	Status    Status               `json:"status"`
	Result    model.FinalBlueprint `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Update carries a partial task mutation. Nil fields are left unchanged.
type Update struct {
	Status *Status
	Result model.FinalBlueprint
	Error  *string
}

// Registry tracks tasks in memory. Every task is deleted a fixed retention
// period after creation, regardless of state, so the map cannot grow
// unboundedly under fire-and-forget usage.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	timers    map[string]*time.Timer
	retention time.Duration
}

// NewRegistry creates a Registry with the given retention period. A zero or
// negative retention falls back to DefaultRetention.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		tasks:     make(map[string]*Task),
		timers:    make(map[string]*time.Timer),
		retention: retention,
	}
}

// Create registers a new pending task and schedules its expiry.
func (r *Registry) Create() *Task {
	t := &Task{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.timers[t.ID] = time.AfterFunc(r.retention, func() {
		r.expire(t.ID)
	})
	r.mu.Unlock()

	zap.L().Debug("task created", zap.String("task_id", t.ID))
	return copyTask(t)
}

// Get returns a snapshot of the task, or false when unknown or expired.
func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return copyTask(t), true
}

// Update applies the non-nil fields of upd to the task. Updating an unknown
// or expired task is a no-op returning false.
func (r *Registry) Update(id string, upd Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Result != nil {
		t.Result = upd.Result
	}
	if upd.Error != nil {
		t.Error = *upd.Error
	}
	return true
}

// List returns snapshots of all live tasks, newest first.
func (r *Registry) List() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Close cancels all pending expiry timers. Tasks remain queryable.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}

func (r *Registry) expire(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return
	}
	delete(r.tasks, id)
	delete(r.timers, id)
	zap.L().Debug("task expired", zap.String("task_id", id))
}

func copyTask(t *Task) *Task {
	cp := *t
	return &cp
}
