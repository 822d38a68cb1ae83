package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xbrain-api/internal/application/user"
	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/transport/http/middleware"
)

// UserHandler handles the authenticated /users/me surface.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateMe is reserved. Profile editing ships in a later release.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotImplemented, "profile editing is not yet available")
}

func (h *UserHandler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	certs, err := h.svc.ListCertificates(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

func (h *UserHandler) AddCertificate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cert, err := h.svc.AddCertificate(r.Context(), claims.UserID, &req)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}
