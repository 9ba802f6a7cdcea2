package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler returns the HTTP handler for /health.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, c.CheckLiveness())
	}
}

// ReadinessHandler returns the HTTP handler for /ready.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, c.CheckReadiness())
	}
}

func writeResponse(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "application/json")

	// Degraded still serves; only unhealthy turns the endpoint away
	if response.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
