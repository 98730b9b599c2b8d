package api

import (
	"net/http"
)

type healthResponse struct {
	Health  string `json:"health"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	name    string
	version string
}

// NewHealthHandler creates a new health handler reporting the given build.
func NewHealthHandler(name, version string) *HealthHandler {
	return &HealthHandler{name: name, version: version}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Health: "ok", Name: h.name, Version: h.version})
}
