// internal/server/handlers/health.go

package handlers

import (
	"net/http"
)

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	ready http.Handler
}

// NewHealthHandler wraps a readiness check handler
func NewHealthHandler(ready http.Handler) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Live always reports ok while the process serves requests
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs dependency checks
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	h.ready.ServeHTTP(w, r)
}
