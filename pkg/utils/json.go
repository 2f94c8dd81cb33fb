// Package utils
package utils

import (
	"encoding/json"
	"net/http"
)

type Body map[string]any

func ReplyJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func ReplyNotFound(w http.ResponseWriter, msg string) error {
	return ReplyJSON(w, http.StatusNotFound, Body{"error": msg})
}

func ReplyMethodNotAllowed(w http.ResponseWriter) error {
	return ReplyJSON(w, http.StatusMethodNotAllowed, Body{"error": "method not allowed"})
}

func ReplyServiceUnavailable(w http.ResponseWriter, msg string) error {
	return ReplyJSON(w, http.StatusServiceUnavailable, Body{"error": msg})
}
