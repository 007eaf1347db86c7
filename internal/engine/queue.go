package engine

import (
	"sync"

	"github.com/seantiz/surveyd/internal/model"
)

// queueItem is either a job or, when stop is set, a termination marker.
type queueItem struct {
	job  *model.Job
	stop bool
}

// WorkQueue is an unbounded FIFO shared by producers and workers. Put never
// blocks; Take blocks until an item is available. It is safe for concurrent use.
type WorkQueue struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []queueItem
	jobs  int
}

// NewWorkQueue creates an empty queue.
func NewWorkQueue() *WorkQueue {
	q := &WorkQueue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Put appends a job.
func (q *WorkQueue) Put(j *model.Job) {
	q.push(queueItem{job: j})
}

// PutStop appends a termination marker. Exactly one worker consumes it.
func (q *WorkQueue) PutStop() {
	q.push(queueItem{stop: true})
}

func (q *WorkQueue) push(it queueItem) {
	q.mu.Lock()
	q.items = append(q.items, it)
	if !it.stop {
		q.jobs++
	}
	q.mu.Unlock()
	q.ready.Signal()
}

// Take removes the oldest item, blocking while the queue is empty. It returns
// false when the item is a termination marker.
func (q *WorkQueue) Take() (*model.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.ready.Wait()
	}

	it := q.items[0]
	q.items[0] = queueItem{}
	q.items = q.items[1:]
	if it.stop {
		return nil, false
	}
	q.jobs--
	return it.job, true
}

// Len returns the number of queued jobs, not counting termination markers.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs
}
