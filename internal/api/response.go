package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// errorBody is the uniform error response shape. Details carries
// upstream diagnostics (parsed message or raw body) when present.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Buffer-first: headers are only sent after successful encoding, so an
// encoding failure can still produce a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, message, details string, logger *slog.Logger) {
	writeJSON(w, status, errorBody{Error: message, Details: details}, logger)
}

// writeInternalError writes the generic 500 shape. The cause is logged,
// never leaked to the client.
func writeInternalError(w http.ResponseWriter, logger *slog.Logger) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":     "internal server error",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, logger)
}
