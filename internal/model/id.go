package model

import (
	"strconv"
	"strings"
)

// jobIDPrefix is prepended to the sequence number of every job identifier.
const jobIDPrefix = "job_id_"

// JobID formats the identifier for the n-th accepted job.
func JobID(n int64) string {
	return jobIDPrefix + strconv.FormatInt(n, 10)
}

// ParseJobID extracts the sequence number from a job identifier.
func ParseJobID(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, jobIDPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
