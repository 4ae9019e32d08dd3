package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/nabava/internal/insight"
	"github.com/erazemk/nabava/internal/logger"
)

// maxInsightLimit bounds GET /api/insights.
const maxInsightLimit = 500

// InsightsHandler ingests chat text and lists stored insights.
type InsightsHandler struct {
	Pipeline *insight.Pipeline
	Log      *logger.Logger
}

// chatRequest accepts the field names used by common WhatsApp relays.
type chatRequest struct {
	Text    string `json:"text" validate:"max=200000"`
	Message string `json:"message" validate:"max=200000"`
	Body    string `json:"body" validate:"max=200000"`
}

func (c chatRequest) content() string {
	for _, s := range []string{c.Text, c.Message, c.Body} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Process handles POST /process-whatsapp.
func (h *InsightsHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, insight.SourceAPI)
}

// Webhook handles POST /webhook/whatsapp.
func (h *InsightsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, insight.SourceWebhook)
}

func (h *InsightsHandler) ingest(w http.ResponseWriter, r *http.Request, source string) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	res, err := h.Pipeline.Process(r.Context(), req.content(), source)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// List handles GET /api/insights[?limit=].
func (h *InsightsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > maxInsightLimit {
		limit = maxInsightLimit
	}
	insights, err := h.Pipeline.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(insights))
}
