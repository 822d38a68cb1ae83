package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xbrain-api/internal/application/specialization"
	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/transport/http/middleware"
)

// SpecializationHandler handles the catalog and the per-user
// specialization form.
type SpecializationHandler struct {
	svc specialization.Service
}

func NewSpecializationHandler(svc specialization.Service) *SpecializationHandler {
	return &SpecializationHandler{svc: svc}
}

// specializationListResponse wraps the catalog. An empty catalog keeps
// results as an empty array and explains itself via message instead of
// count.
type specializationListResponse struct {
	Count   int                     `json:"count,omitempty"`
	Message string                  `json:"message,omitempty"`
	Results []domain.Specialization `json:"results"`
}

func (h *SpecializationHandler) List(w http.ResponseWriter, r *http.Request) {
	specs, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	if len(specs) == 0 {
		writeJSON(w, http.StatusOK, specializationListResponse{
			Message: "no specializations available",
			Results: []domain.Specialization{},
		})
		return
	}
	writeJSON(w, http.StatusOK, specializationListResponse{Count: len(specs), Results: specs})
}

func (h *SpecializationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.svc.GetForUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type replaceSpecializationsRequest struct {
	SpecializationIDs []string `json:"specialization_ids"`
}

// ReplaceMine swaps the caller's full specialization set. An empty list is
// valid and clears it.
func (h *SpecializationHandler) ReplaceMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req replaceSpecializationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpecializationIDs == nil {
		writeFieldError(w, http.StatusBadRequest, "specialization_ids", "this field is required")
		return
	}

	res, err := h.svc.Replace(r.Context(), claims.UserID, req.SpecializationIDs)
	if err != nil {
		var inv *specialization.InvalidIDsError
		if errors.As(err, &inv) {
			writeFieldError(w, http.StatusBadRequest, "specialization_ids", inv.Error())
			return
		}
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type skipSpecializationsRequest struct {
	Skip bool `json:"skip"`
}

func (h *SpecializationHandler) Skip(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req skipSpecializationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Skip(r.Context(), claims.UserID, req.Skip); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "specialization form skipped"})
}
