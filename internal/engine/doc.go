// Package engine provides the asynchronous job execution engine.
//
// A Dispatcher owns a fixed pool of worker goroutines that share one FIFO
// WorkQueue and one job Registry. Submit assigns a job identifier, records the
// job as running and enqueues it without waiting for execution. Each worker
// takes one job at a time, runs the query through an Answerer, persists the
// serialized result through a store.ResultStore and only then marks the job
// done. Failures leave the job in the failed state and never stop a worker.
//
// Shutdown closes admission and enqueues one stop marker per worker. Jobs
// already queued ahead of the markers still run.
package engine
