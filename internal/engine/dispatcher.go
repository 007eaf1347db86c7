package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/surveyd/internal/model"
	"github.com/seantiz/surveyd/internal/store"
)

// Answerer computes the result mapping for a query. The dispatcher passes the
// query type and payload through uninterpreted.
type Answerer interface {
	Answer(ctx context.Context, queryType string, payload model.Payload) (*model.Result, error)
}

// AnswerFunc adapts an ordinary function to the Answerer interface.
type AnswerFunc func(ctx context.Context, queryType string, payload model.Payload) (*model.Result, error)

// Answer calls f.
func (f AnswerFunc) Answer(ctx context.Context, queryType string, payload model.Payload) (*model.Result, error) {
	return f(ctx, queryType, payload)
}

// Outcome is what a caller polling for a job's result observes. Data is only
// set for done jobs and Error only for failed ones.
type Outcome struct {
	Status model.Status
	Data   json.RawMessage
	Error  string
}

// Stats is a point-in-time summary of the dispatcher.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByType   map[string]int `json:"by_query_type"`
	Workers  int            `json:"workers"`
	Pending  int            `json:"pending"`
	Active   int            `json:"active"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of worker goroutines. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithFirstSeq sets the sequence number of the first job identifier. Use it to
// continue numbering after results persisted by an earlier process.
func WithFirstSeq(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.next = n
		}
	}
}

// Dispatcher gates job admission, assigns identifiers, fans work out to a
// fixed set of workers and coordinates shutdown.
type Dispatcher struct {
	results  store.ResultStore
	answerer Answerer
	logger   *slog.Logger
	queue    *WorkQueue
	jobs     *Registry
	finished *completions
	workers  int

	// mu guards admission: the counter and the closing flag. Enqueueing under
	// the same lock guarantees no job lands behind the stop markers.
	mu      sync.Mutex
	next    int64
	closing bool

	active   atomic.Int32
	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a dispatcher and starts its workers.
func New(results store.ResultStore, answerer Answerer, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		results:  results,
		answerer: answerer,
		logger:   logger,
		queue:    NewWorkQueue(),
		jobs:     NewRegistry(),
		finished: newCompletions(),
		workers:  runtime.NumCPU(),
		next:     1,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger.Info("dispatcher starting", "workers", d.workers, "first_job_seq", d.next)
	for range d.workers {
		d.wg.Go(func() {
			runWorker(d.queue, d.execute)
		})
	}

	return d
}

// Finished returns a channel that is closed once the job reaches a terminal
// status. The status is recorded before the channel closes.
func (d *Dispatcher) Finished(id string) (<-chan struct{}, error) {
	if _, err := d.jobs.Status(id); err != nil {
		return nil, err
	}
	return d.finished.wait(id), nil
}

// Workers returns the fixed size of the worker pool.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Submit registers a job as running, enqueues it and returns its identifier.
// It never waits for execution.
func (d *Dispatcher) Submit(ctx context.Context, queryType string, payload model.Payload) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closing {
		return "", ErrShuttingDown
	}

	j := &model.Job{
		ID:          model.JobID(d.next),
		Seq:         d.next,
		Type:        queryType,
		Payload:     payload,
		Status:      model.StatusRunning,
		SubmittedAt: time.Now().UTC(),
	}
	if err := d.jobs.Insert(j); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}
	d.next++

	// The worker gets its own copy so it never shares memory with the registry.
	work := j.Clone()
	d.queue.Put(&work)
	queueDepth.Inc()
	jobsSubmitted.WithLabelValues(queryType).Inc()

	d.logger.DebugContext(ctx, "job submitted", "job_id", j.ID, "query_type", queryType)
	return j.ID, nil
}

// Status returns the current status of a job.
func (d *Dispatcher) Status(id string) (model.Status, error) {
	return d.jobs.Status(id)
}

// Job returns a snapshot of a job record.
func (d *Dispatcher) Job(id string) (model.Job, error) {
	return d.jobs.Get(id)
}

// List returns every job in submission order.
func (d *Dispatcher) List() []model.Job {
	return d.jobs.List()
}

// PendingCount returns the number of jobs waiting in the queue.
func (d *Dispatcher) PendingCount() int {
	return d.queue.Len()
}

// Active returns the number of workers currently executing a job.
func (d *Dispatcher) Active() int {
	return int(d.active.Load())
}

// Result reports a job's outcome. For done jobs the data is read back from
// the result store, so repeated calls return identical bytes.
func (d *Dispatcher) Result(ctx context.Context, id string) (Outcome, error) {
	j, err := d.jobs.Get(id)
	if err != nil {
		return Outcome{}, err
	}

	switch j.Status {
	case model.StatusDone:
		data, err := d.results.Read(ctx, id)
		if err != nil {
			return Outcome{}, fmt.Errorf("read result: %w", err)
		}
		return Outcome{Status: model.StatusDone, Data: data}, nil
	case model.StatusFailed:
		return Outcome{Status: model.StatusFailed, Error: j.Error}, nil
	default:
		return Outcome{Status: j.Status}, nil
	}
}

// Stats summarises the registry and the pool.
func (d *Dispatcher) Stats() Stats {
	byStatus, byType := d.jobs.Counts()

	st := Stats{
		ByStatus: make(map[string]int, len(byStatus)),
		ByType:   byType,
		Workers:  d.workers,
		Pending:  d.PendingCount(),
		Active:   d.Active(),
	}
	for s, n := range byStatus {
		st.ByStatus[string(s)] = n
		st.Total += n
	}
	return st
}

// Closing reports whether shutdown has been initiated.
func (d *Dispatcher) Closing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closing
}

// Shutdown stops admission, enqueues one stop marker per worker and blocks
// until every worker has exited. Jobs queued before the call still run. It is
// safe to call more than once and from several goroutines; every call returns
// once the pool has drained.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closing = true
		pending := d.queue.Len()
		for range d.workers {
			d.queue.PutStop()
		}
		d.mu.Unlock()

		d.logger.Info("dispatcher draining", "pending", pending)
		go func() {
			d.wg.Wait()
			close(d.done)
		}()
	})

	<-d.done
	d.logger.Info("dispatcher stopped")
}

// Done returns a channel that is closed once every worker has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// execute runs one job to a terminal status. It never panics and never
// returns an error; failures are logged and recorded on the job.
func (d *Dispatcher) execute(j *model.Job) {
	queueDepth.Dec()
	d.active.Add(1)
	workersBusy.Inc()
	defer func() {
		workersBusy.Dec()
		d.active.Add(-1)
	}()

	start := time.Now()
	logger := d.logger.With("job_id", j.ID, "query_type", j.Type)

	data, err := d.answer(j)
	if err == nil {
		err = d.persist(j.ID, data)
	}
	if err != nil {
		execErr := &ExecutionError{JobID: j.ID, Err: err}
		logger.Error("job failed", "error", execErr)
		d.finish(logger, j, model.StatusFailed, err.Error(), start)
		return
	}

	d.finish(logger, j, model.StatusDone, "", start)
	logger.Debug("job done", "duration_ms", time.Since(start).Milliseconds())
}

// answer invokes the Answerer and serializes its result. Panics are converted
// to errors so a faulty query cannot take a worker down.
func (d *Dispatcher) answer(j *model.Job) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	res, err := d.answerer.Answer(context.Background(), j.Type, j.Payload)
	if err != nil {
		return nil, fmt.Errorf("answer query: %w", err)
	}
	if res == nil {
		res = model.NewResult()
	}

	data, err = json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

func (d *Dispatcher) persist(id string, data []byte) error {
	err := d.results.Write(context.Background(), id, data)
	if errors.Is(err, store.ErrAlreadyWritten) {
		return fmt.Errorf("persist result: stale record for %s: %w", id, err)
	}
	if err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	return nil
}

// finish records the terminal status and wakes anyone waiting on the job.
func (d *Dispatcher) finish(logger *slog.Logger, j *model.Job, status model.Status, errMsg string, start time.Time) {
	if _, err := d.jobs.Transition(j.ID, status, errMsg); err != nil {
		logger.Error("failed to update job status", "status", status, "error", err)
	}

	jobsFinished.WithLabelValues(j.Type, string(status)).Inc()
	jobDuration.WithLabelValues(j.Type).Observe(time.Since(start).Seconds())

	d.finished.complete(j.ID)
}
