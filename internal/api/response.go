package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// envelope is the wire shape of every response: {success, data} on success,
// {success, error: {message, code, details?}} on failure.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Success writes data wrapped in the success envelope with the given status.
func Success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// Fail writes err as the error envelope. Non-taxonomy errors are logged and
// collapsed to a generic 500 so internals never leak to clients.
func Fail(w http.ResponseWriter, err error) {
	apiErr := AsError(err)
	if apiErr.Status == http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
	}
	writeJSON(w, apiErr.Status, envelope{
		Success: false,
		Error:   &errorBody{Message: apiErr.Message, Code: apiErr.Status, Details: apiErr.Details},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
