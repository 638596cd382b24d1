package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// Error is the JSON body of every error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeInternal       = "internal_error"
	ErrCodeBadGateway     = "bad_gateway"
	ErrCodeUnavailable    = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best effort, the client may be gone
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeMethodNotAllowed(w http.ResponseWriter, message string) {
	writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

func writeBadGateway(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadGateway, ErrCodeBadGateway, message)
}

func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeBackendError maps a failure to reach the controller. A request
// whose client went away gets no response.
func (s *Server) writeBackendError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, devclient.ErrNotConnected), errors.Is(err, devclient.ErrClientClosed):
		writeUnavailable(w, "controller not connected")
	default:
		s.logger.Warn(what, "error", err)
		writeBadGateway(w, fmt.Sprintf("%s: %v", what, err))
	}
}

// writeOperationError maps a failed read, write or invoke. The controller
// message is passed through.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	var se *devclient.StatusError
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, devclient.ErrNotConnected), errors.Is(err, devclient.ErrClientClosed):
		writeUnavailable(w, "controller not connected")
	case errors.As(err, &se) && se.Details != "":
		writeInternalError(w, se.Details)
	default:
		writeInternalError(w, err.Error())
	}
}
