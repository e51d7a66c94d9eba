package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/models"
)

const maxBodyBytes = 64 << 10

const (
	msgMethodNotAllowed = "Method not allowed"
	msgRateLimited      = "Too many requests. Please try again later."
	msgInvalidRequest   = "Invalid request body"
	msgConfigError      = "Service temporarily unavailable"
	msgScanError        = "Unable to scan URL at this time"
	msgLookupError      = "Unable to retrieve scan results"
	msgInternalError    = "An unexpected error occurred"
)

var errTrailingData = errors.New("unexpected data after JSON body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, models.ErrorResponse{Error: message, Code: code})
}

// readStringField decodes a single JSON document from the request body and
// returns the named member when it is a string. Documents that are not
// objects, and members that are not strings, read as "".
func readStringField(w http.ResponseWriter, r *http.Request, field string) (string, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", errTrailingData
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil
	}

	var value string
	if member, ok := obj[field]; ok {
		_ = json.Unmarshal(member, &value)
	}
	return value, nil
}
