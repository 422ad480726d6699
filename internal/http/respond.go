package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/middleware/trace"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Error  string         `json:"error"`
	Detail map[string]any `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	// Reject trailing garbage after the first object.
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid JSON body: trailing data")
		return false
	}
	io.Copy(io.Discard, body)
	return true
}

// writeDomainError maps domain and storage failures to API statuses. Missing
// entities are 404, everything the caller can fix is 422, and the rest is a
// logged 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var mismatch *core.SplitMismatchError
	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: mismatch.Error(),
			Detail: map[string]any{
				"total":     mismatch.Total,
				"share_sum": mismatch.ShareSum,
				"delta":     mismatch.Delta(),
			},
		})
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrNotMember),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNoParticipants),
		errors.Is(err, core.ErrDuplicateParticipant),
		errors.Is(err, core.ErrUnknownSplitType):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"request_id", trace.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
