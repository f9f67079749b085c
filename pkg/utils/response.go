package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Retryable *bool  `json:"retryable,omitempty"`
}

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Status: StatusError, Message: message})
}

// RespondRetryableError reports a failure the client may retry.
func RespondRetryableError(w http.ResponseWriter, status int, message string, retryable bool) {
	RespondJSON(w, status, ErrorBody{Status: StatusError, Message: message, Retryable: &retryable})
}

// RespondText writes a plain-text body.
func RespondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
