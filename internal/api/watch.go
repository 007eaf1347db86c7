package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/surveyd/internal/engine"
)

// handleWatchJob streams a job's status as server-sent events. The current
// status is sent as a "status" event straight away; once the job is terminal
// the final status follows as a "status" event and then a "done" event.
func (s *Server) handleWatchJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")

	finished, err := s.dispatcher.Finished(id)
	if errors.Is(err, engine.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, reasonInvalidJobID)
		return
	}
	if err != nil {
		s.logger.Error("watch job", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	status, err := s.dispatcher.Status(id)
	if err != nil {
		s.logger.Error("get job for watch", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("set write deadline for SSE", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	if err := writeSSEEvent(w, "status", string(status)); err != nil {
		return
	}
	flush()

	if !status.Terminal() {
		select {
		case <-finished:
		case <-r.Context().Done():
			return
		}
		if status, err = s.dispatcher.Status(id); err != nil {
			return
		}
		if err := writeSSEEvent(w, "status", string(status)); err != nil {
			return
		}
	}

	_ = writeSSEEvent(w, "done", string(status))
	flush()
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
