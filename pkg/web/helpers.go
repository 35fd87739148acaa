// Package web holds the JSON response helpers and middleware shared by HTTP handlers.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondRaw writes an already encoded JSON document.
func RespondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// RespondError writes {"message": message} with the given status.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"message": message})
}

// ParseName extracts a non-blank path parameter, unescaping it when the router
// matched on the raw path. Responds 400 and returns false when it is missing.
func ParseName(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string) (string, bool) {
	name := r.PathValue(key)
	// chi matches on RawPath when it is set, leaving the value escaped.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		RespondError(w, logger, http.StatusBadRequest, key+" path parameter is required")
		return "", false
	}
	return name, true
}
