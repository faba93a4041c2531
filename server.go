package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/i4energy/espuplink/modem"
)

// Enqueuer accepts flow requests for later execution.
type Enqueuer interface {
	Enqueue(job Job) (string, error)
}

// StateReader exposes the module's connection flags.
type StateReader interface {
	State() modem.State
}

// Server handles incoming HTTP requests for queueing uploads, webhook
// calls and wifi joins, and for reading the connection flags
type Server struct {
	Logger  *slog.Logger
	Gateway Enqueuer
	Modem   StateReader
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cloudlog", s.handleJob(JobCloudLog))
	mux.HandleFunc("POST /webhook", s.handleJob(JobWebhook))
	mux.HandleFunc("POST /wifi", s.handleJob(JobWifi))
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleJob decodes a request of the given kind and queues it
func (s *Server) handleJob(kind JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := decodeJob(kind, r.Body)
		if err != nil {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}

		id, err := s.Gateway.Enqueue(job)
		switch {
		case errors.Is(err, ErrInvalidJob):
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ErrQueueFull):
			s.sendError(w, err.Error(), http.StatusServiceUnavailable)
			return
		case err != nil:
			s.Logger.Error("Failed to queue job", "error", err, "kind", kind)
			s.sendError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		s.Logger.Info("Job queued", "id", id, "kind", kind)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "queued", "id": id})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Modem.State())
}
