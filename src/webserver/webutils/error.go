// Package webutils contains helpers shared by the HTTP handlers.
package webutils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// JSONError writes a JSON object with an error message and sets the HTTP status code.
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	resp := jsonErrorMessage{
		Error: message,
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(&resp); err != nil {
		log.Warn().Err(err).Msg("error writing JSON error body")
	}
}

type jsonErrorMessage struct {
	Error string `json:"error"`
}

// WriteJSON encodes v as the JSON body of a successful response.
func WriteJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(v)
}
