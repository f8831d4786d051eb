package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sitecontact/backend/internal/repository"
)

// Handler serves endpoints that are not tied to a single service.
type Handler struct {
	db repository.DB
}

func New(db repository.DB) *Handler {
	return &Handler{db: db}
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
