package engine

import (
	"errors"
	"testing"

	"github.com/seantiz/surveyd/internal/model"
)

func makeTestJob(seq int64, queryType string) *model.Job {
	return &model.Job{
		ID:      model.JobID(seq),
		Seq:     seq,
		Type:    queryType,
		Payload: model.Payload{"question": "q"},
		Status:  model.StatusRunning,
	}
}

func TestRegistryInsertAndGet(t *testing.T) {
	r := NewRegistry()
	j := makeTestJob(1, model.QueryStatesMean)

	if err := r.Insert(j); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := r.Get(j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != j.ID || got.Type != j.Type || got.Status != model.StatusRunning {
		t.Errorf("Get = %+v, want %+v", got, j)
	}

	// The registry keeps its own copy.
	j.Status = model.StatusDone
	if st, _ := r.Status(j.ID); st != model.StatusRunning {
		t.Errorf("Status after caller mutation = %q, want running", st)
	}
}

func TestRegistryInsertDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Insert(makeTestJob(1, model.QueryBest5)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := r.Insert(makeTestJob(1, model.QueryBest5)); !errors.Is(err, ErrJobExists) {
		t.Errorf("second Insert error = %v, want ErrJobExists", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("job_id_1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get error = %v, want ErrJobNotFound", err)
	}
	if _, err := r.Status("job_id_1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Status error = %v, want ErrJobNotFound", err)
	}
	if _, err := r.Transition("job_id_1", model.StatusDone, ""); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Transition error = %v, want ErrJobNotFound", err)
	}
}

func TestRegistryTransition(t *testing.T) {
	r := NewRegistry()
	_ = r.Insert(makeTestJob(1, model.QueryStatesMean))
	_ = r.Insert(makeTestJob(2, model.QueryStatesMean))

	done, err := r.Transition("job_id_1", model.StatusDone, "ignored")
	if err != nil {
		t.Fatalf("Transition to done: %v", err)
	}
	if done.Status != model.StatusDone || done.FinishedAt == nil || done.Error != "" {
		t.Errorf("done job = %+v, want done with finished_at and no error", done)
	}

	failed, err := r.Transition("job_id_2", model.StatusFailed, "boom")
	if err != nil {
		t.Fatalf("Transition to failed: %v", err)
	}
	if failed.Error != "boom" {
		t.Errorf("Error = %q, want %q", failed.Error, "boom")
	}

	if _, err := r.Transition("job_id_1", model.StatusRunning, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("done -> running error = %v, want ErrInvalidTransition", err)
	}
	if _, err := r.Transition("job_id_2", model.StatusDone, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("failed -> done error = %v, want ErrInvalidTransition", err)
	}
	if st, _ := r.Status("job_id_1"); st != model.StatusDone {
		t.Errorf("status after rejected transition = %q, want done", st)
	}
}

func TestRegistryListAndCounts(t *testing.T) {
	r := NewRegistry()
	types := []string{model.QueryBest5, model.QueryWorst5, model.QueryBest5}
	for i, qt := range types {
		_ = r.Insert(makeTestJob(int64(i+1), qt))
	}
	_, _ = r.Transition("job_id_2", model.StatusDone, "")

	jobs := r.List()
	if len(jobs) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(jobs))
	}
	for i, j := range jobs {
		if j.ID != model.JobID(int64(i+1)) {
			t.Errorf("List[%d] = %s, want submission order", i, j.ID)
		}
	}

	byStatus, byType := r.Counts()
	if byStatus[model.StatusRunning] != 2 || byStatus[model.StatusDone] != 1 {
		t.Errorf("byStatus = %v, want running=2 done=1", byStatus)
	}
	if byType[model.QueryBest5] != 2 || byType[model.QueryWorst5] != 1 {
		t.Errorf("byType = %v, want best5=2 worst5=1", byType)
	}
}
