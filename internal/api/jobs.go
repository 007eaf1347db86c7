package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/surveyd/internal/engine"
	"github.com/seantiz/surveyd/internal/model"
)

const maxBodySize = 1 << 20 // 1 MB

// Response status values shared by every /api endpoint.
const (
	statusDone  = "done"
	statusError = "error"
)

// Error reasons returned to clients.
const (
	reasonNotActive    = "Server not active"
	reasonInvalidJobID = "Invalid job_id"
	reasonInvalidBody  = "Request body must be a JSON object"
)

type submitResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

type errorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type jobsResponse struct {
	Status string              `json:"status"`
	Data   []map[string]string `json:"data"`
}

type numJobsResponse struct {
	Status  string `json:"status"`
	NumJobs int    `json:"num_jobs"`
}

type resultResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

type shutdownResponse struct {
	Status string `json:"status"`
}

// handleSubmit returns the handler for POST /api/<queryType>.
func (s *Server) handleSubmit(queryType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.Payload
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
			recordSubmission(queryType, outcomeInvalidBody)
			s.writeError(w, http.StatusBadRequest, reasonInvalidBody)
			return
		}

		id, err := s.dispatcher.Submit(r.Context(), queryType, payload)
		if errors.Is(err, engine.ErrShuttingDown) {
			recordSubmission(queryType, outcomeNotActive)
			s.writeError(w, http.StatusServiceUnavailable, reasonNotActive)
			return
		}
		if err != nil {
			recordSubmission(queryType, outcomeError)
			s.logger.Error("submit job", "query_type", queryType, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to submit job")
			return
		}
		recordSubmission(queryType, outcomeAccepted)

		s.writeJSON(w, http.StatusOK, submitResponse{Status: statusDone, JobID: id})
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.dispatcher.List()

	data := make([]map[string]string, 0, len(jobs))
	for _, j := range jobs {
		data = append(data, map[string]string{j.ID: string(j.Status)})
	}

	s.writeJSON(w, http.StatusOK, jobsResponse{Status: statusDone, Data: data})
}

func (s *Server) handleNumJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, numJobsResponse{
		Status:  statusDone,
		NumJobs: s.dispatcher.PendingCount(),
	})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")

	out, err := s.dispatcher.Result(r.Context(), id)
	if errors.Is(err, engine.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, reasonInvalidJobID)
		return
	}
	if err != nil {
		s.logger.Error("get result", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read result")
		return
	}

	s.writeJSON(w, http.StatusOK, resultResponse{
		Status: string(out.Status),
		Data:   out.Data,
		Reason: out.Error,
	})
}

// handleGracefulShutdown stops admission and waits for every queued job to
// finish. Read endpoints keep working afterwards. The drain may outlast the
// server's write timeout, so the deadline is cleared for this response.
func (s *Server) handleGracefulShutdown(w http.ResponseWriter, r *http.Request) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("clear write deadline for shutdown", "error", err)
	}
	s.logger.Info("graceful shutdown requested", "pending", s.dispatcher.PendingCount())
	s.dispatcher.Shutdown()
	s.writeJSON(w, http.StatusOK, shutdownResponse{Status: statusDone})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, reason string) {
	s.writeJSON(w, status, errorResponse{Status: statusError, Reason: reason})
}
