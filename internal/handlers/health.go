package handlers

import (
	"encoding/json"
	"net/http"
)

// HandleHealth reports the liveness of the store and the broker.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":  "ok",
		"storage": "ok",
		"broker":  "ok",
	}
	code := http.StatusOK

	if err := h.store.Health(); err != nil {
		status["status"] = "degraded"
		status["storage"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if h.broker != nil {
		if err := h.broker.Health(); err != nil {
			status["status"] = "degraded"
			status["broker"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
