package engine

import "github.com/seantiz/surveyd/internal/model"

// runWorker takes jobs from q and hands them to execute, one at a time, until
// it takes a termination marker. execute must contain its own failures.
func runWorker(q *WorkQueue, execute func(*model.Job)) {
	for {
		j, ok := q.Take()
		if !ok {
			return
		}
		execute(j)
	}
}
