package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/seantiz/surveyd/internal/model"
)

// Registry is the in-memory record of every submitted job. Entries are never
// removed. It is safe for concurrent use; callers only ever see copies.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	order []*model.Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*model.Job),
	}
}

// Insert records a new job.
func (r *Registry) Insert(j *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[j.ID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, j.ID)
	}
	stored := j.Clone()
	r.jobs[j.ID] = &stored
	r.order = append(r.order, &stored)
	return nil
}

// Get returns a snapshot of the job with the given identifier.
func (r *Registry) Get(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return model.Job{}, ErrJobNotFound
	}
	return j.Clone(), nil
}

// Status returns the current status of a job.
func (r *Registry) Status(id string) (model.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return "", ErrJobNotFound
	}
	return j.Status, nil
}

// Transition moves a job to a new status. errMsg is recorded for failed jobs.
func (r *Registry) Transition(id string, to model.Status, errMsg string) (model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return model.Job{}, ErrJobNotFound
	}
	if !model.ValidTransition(j.Status, to) {
		return j.Clone(), fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}

	now := time.Now().UTC()
	j.Status = to
	j.FinishedAt = &now
	if to == model.StatusFailed {
		j.Error = errMsg
	}
	return j.Clone(), nil
}

// List returns snapshots of every job in submission order.
func (r *Registry) List() []model.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]model.Job, len(r.order))
	for i, j := range r.order {
		jobs[i] = j.Clone()
	}
	return jobs
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Counts tallies jobs by status and by query type.
func (r *Registry) Counts() (byStatus map[model.Status]int, byType map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus = make(map[model.Status]int)
	byType = make(map[string]int)
	for _, j := range r.order {
		byStatus[j.Status]++
		byType[j.Type]++
	}
	return byStatus, byType
}
