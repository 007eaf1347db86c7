package model

import (
	"maps"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

// Job status constants.
const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Query type constants. The engine treats these as opaque strings; only the
// survey package interprets them.
const (
	QueryStatesMean          = "states_mean"
	QueryStateMean           = "state_mean"
	QueryBest5               = "best5"
	QueryWorst5              = "worst5"
	QueryGlobalMean          = "global_mean"
	QueryDiffFromMean        = "diff_from_mean"
	QueryStateDiffFromMean   = "state_diff_from_mean"
	QueryMeanByCategory      = "mean_by_category"
	QueryStateMeanByCategory = "state_mean_by_category"
)

// QueryTypes lists every supported query type in route registration order.
var QueryTypes = []string{
	QueryStatesMean,
	QueryStateMean,
	QueryBest5,
	QueryWorst5,
	QueryGlobalMean,
	QueryDiffFromMean,
	QueryStateDiffFromMean,
	QueryMeanByCategory,
	QueryStateMeanByCategory,
}

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[Status]map[Status]bool{
	StatusRunning: {
		StatusDone:   true,
		StatusFailed: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Payload is the opaque parameter mapping submitted with a query.
type Payload map[string]any

// Job is one unit of requested aggregation work.
type Job struct {
	ID          string     `json:"job_id"`
	Seq         int64      `json:"-"`
	Type        string     `json:"type"`
	Payload     Payload    `json:"payload,omitempty"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a copy of j that shares no mutable state with it.
func (j *Job) Clone() Job {
	c := *j
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	// Payload values are never mutated after submission, a shallow copy is enough.
	c.Payload = maps.Clone(j.Payload)
	return c
}
