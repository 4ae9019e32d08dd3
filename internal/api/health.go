package api

import (
	"database/sql"
	"net/http"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	DB      *sql.DB
	Version string
}

type healthResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// Health handles GET /health. A failing database ping reports "degraded"
// with a 200.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "online",
		Message:  "MSME Agentic System Backend is running",
		Version:  h.Version,
		Database: "ok",
	}
	if err := h.DB.PingContext(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unavailable"
	}
	jsonResponse(w, http.StatusOK, resp)
}
