package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"hindustanbills/apperr"
)

// RespondWithError writes {"message": ...} with the status carried by err.
// Server-side failures are logged with their cause and answered generically.
func RespondWithError(w http.ResponseWriter, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("internal error: %+v", err)
	}
	RespondWithJSON(w, status, M{"message": apperr.MessageOf(err)})
}

// RespondWithMessage writes {"message": msg}.
func RespondWithMessage(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"message": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("RespondWithJSON encode error: %v", err)
	}
}

type M map[string]interface{}
