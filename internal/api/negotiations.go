package api

import (
	"context"
	"net/http"

	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/negotiation"
)

// NegotiationsHandler exposes the negotiation lifecycle.
type NegotiationsHandler struct {
	Driver *negotiation.Driver
	Log    *logger.Logger
}

type editRequest struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	Instruction string `json:"instruction" validate:"required,max=2000"`
}

type editResponse struct {
	Success     bool               `json:"success"`
	NewDraft    string             `json:"new_draft"`
	Negotiation *model.Negotiation `json:"negotiation"`
}

// List handles GET /api/negotiations[?status=].
func (h *NegotiationsHandler) List(w http.ResponseWriter, r *http.Request) {
	negs, err := h.Driver.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(negs))
}

// Get handles GET /api/negotiations/{id}.
func (h *NegotiationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Driver.Get)
}

// Edit handles POST /edit-agent.
func (h *NegotiationsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	n, err := h.Driver.Edit(r.Context(), req.ID, req.Instruction)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, editResponse{Success: true, NewDraft: n.Draft, Negotiation: n})
}

// SendInquiry handles POST /send-inquiry/{id}.
func (h *NegotiationsHandler) SendInquiry(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Driver.SendInquiry)
}

// Finalize handles POST /finalize-order/{id}.
func (h *NegotiationsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Driver.Finalize)
}

func (h *NegotiationsHandler) run(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*model.Negotiation, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	n, err := op(r.Context(), id)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, n)
}
