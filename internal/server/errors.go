package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeffladiray/forest-vercel-test/internal/engine"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// badRequestError marks a request the server could not decode.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// statusOf maps an engine error onto an HTTP status.
func statusOf(err error) int {
	var (
		bad        *badRequestError
		collection *core.UnknownCollectionError
		act        *engine.UnknownActionError
		storage    *core.StorageError
	)
	switch {
	case errors.As(err, &bad), core.IsRequestError(err):
		return http.StatusBadRequest
	case errors.As(err, &collection), errors.As(err, &act):
		return http.StatusNotFound
	case errors.As(err, &storage):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		if status == http.StatusBadGateway {
			msg = "storage is unavailable"
		}
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
