// Package registry holds the ordered collection of generation tasks created
// in the current session. Poll callbacks and HTTP handlers interleave freely,
// so every mutation goes through Update, which applies one task's delta
// atomically under the registry lock and is a no-op when the task has been
// deleted in the meantime.
package registry

import (
	"sync"

	"studio/internal/domain"
)

type Registry struct {
	mu    sync.Mutex
	order []string
	tasks map[string]*domain.GenerationTask
	byJob map[string]string
}

func New() *Registry {
	return &Registry{
		tasks: make(map[string]*domain.GenerationTask),
		byJob: make(map[string]string),
	}
}

// Add inserts a task at the end of the session order.
func (r *Registry) Add(t *domain.GenerationTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; ok {
		return
	}
	clone := cloneTask(t)
	r.tasks[t.ID] = &clone
	r.order = append(r.order, t.ID)
	if t.JobID != "" {
		r.byJob[t.JobID] = t.ID
	}
}

// Update applies fn to the task with the given internal id and reports
// whether the task was present. fn runs under the registry lock; callers
// must not call back into the registry from inside it.
func (r *Registry) Update(id string, fn func(*domain.GenerationTask)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	fn(t)
	return true
}

// Rebind associates the backend job id with the task. The rebind and the
// first post-rebind update are atomic from the caller's viewpoint: both go
// through the same lock and the task keeps its stable internal id.
func (r *Registry) Rebind(id, jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	if t.JobID != "" {
		delete(r.byJob, t.JobID)
	}
	t.JobID = jobID
	if jobID != "" {
		r.byJob[jobID] = id
	}
	return true
}

// Get returns a copy of the task with the given internal id.
func (r *Registry) Get(id string) (domain.GenerationTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.GenerationTask{}, false
	}
	return cloneTask(t), true
}

// GetByJob returns a copy of the task bound to the given backend job id.
func (r *Registry) GetByJob(jobID string) (domain.GenerationTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byJob[jobID]
	if !ok {
		return domain.GenerationTask{}, false
	}
	t, ok := r.tasks[id]
	if !ok {
		return domain.GenerationTask{}, false
	}
	return cloneTask(t), true
}

// List returns copies of all tasks in creation order.
func (r *Registry) List() []domain.GenerationTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.GenerationTask, 0, len(r.order))
	for _, id := range r.order {
		if t, ok := r.tasks[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

// Delete removes a task. Scheduled callbacks targeting the removed task
// become no-ops through Update returning false.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	if t.JobID != "" {
		delete(r.byJob, t.JobID)
	}
	delete(r.tasks, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len reports the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func cloneTask(t *domain.GenerationTask) domain.GenerationTask {
	clone := *t
	clone.References = append([]domain.Reference(nil), t.References...)
	clone.Logs = append([]domain.LogEntry(nil), t.Logs...)
	return clone
}
