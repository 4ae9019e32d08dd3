package api

import (
	"net/http"

	"github.com/erazemk/nabava/internal/analysis"
	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/logger"
)

// AnalysisHandler serves spreadsheet analysis and follow-up questions.
type AnalysisHandler struct {
	Analyzer *analysis.Analyzer
	Log      *logger.Logger
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// Analyze handles POST /api/analyze with a multipart "file" part.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, h.Log, w, apperr.Wrap(apperr.CodeValidation, err, "file is required").
			WithDetails(map[string]string{"file": "is required"}))
		return
	}
	defer f.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	report, err := h.Analyzer.Analyze(ctx, f)
	if err != nil {
		writeError(ctx, h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Ask handles POST /api/ask.
func (h *AnalysisHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	answer, err := h.Analyzer.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, askResponse{Answer: answer})
}
