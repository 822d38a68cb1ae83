package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xbrain-api/internal/application/auth"
	"github.com/xbrain-api/internal/application/otp"
	"github.com/xbrain-api/internal/application/registration"
	"github.com/xbrain-api/internal/application/user"
	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/pkg/validate"
)

// AuthHandler handles the signup, verification and login endpoints.
type AuthHandler struct {
	reg   registration.Service
	auth  auth.Service
	users user.Service
}

func NewAuthHandler(reg registration.Service, authSvc auth.Service, users user.Service) *AuthHandler {
	return &AuthHandler{reg: reg, auth: authSvc, users: users}
}

// Register stages a pending signup and sends the first verification code.
// No account exists until the code is verified.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.reg.Stage(r.Context(), req); err != nil {
		h.writeStageErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Email:   strings.ToLower(req.Email),
		Message: "verification code sent to your email",
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.reg.Commit(r.Context(), req.Email, req.OTP)
	if err != nil {
		if fe, ok := registration.IsFieldError(err); ok {
			writeFieldError(w, http.StatusBadRequest, fe.Field, fe.Message)
			return
		}
		writeError(w, statusFromErr(err), err.Error())
		return
	}

	pair, err := h.auth.IssueTokens(u.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         h.detail(r.Context(), u),
		Message:      "registration completed",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		var ic *auth.InvalidCredentialsError
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.As(err, &ic):
			writeError(w, http.StatusUnauthorized, ic.Error())
		default:
			writeError(w, statusFromErr(err), err.Error())
		}
		return
	}

	pair, err := h.auth.IssueTokens(u.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         h.detail(r.Context(), u),
	})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reg.ResendOTP(r.Context(), req.Email); err != nil {
		h.writeStageErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Email:   strings.ToLower(req.Email),
		Message: "verification code resent to your email",
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: access})
}

// detail loads the aggregated user view returned alongside tokens. A
// load failure degrades to the bare record instead of failing an
// otherwise successful login or verification.
func (h *AuthHandler) detail(ctx context.Context, u *domain.User) *user.Profile {
	p, err := h.users.Profile(ctx, u.UserID)
	if err != nil {
		slog.Warn("profile aggregation failed", "user_id", u.UserID, "err", err)
		return &user.Profile{User: u, Specializations: []domain.Specialization{}}
	}
	return p
}

// writeStageErr maps the registration and OTP error taxonomy shared by
// register and resend.
func (h *AuthHandler) writeStageErr(w http.ResponseWriter, err error) {
	var wait *otp.ResendWaitError
	switch {
	case errors.As(err, &wait):
		writeError(w, http.StatusTooManyRequests, wait.Error())
	case errors.Is(err, otp.ErrResendLimit):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, otp.ErrDeliveryFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		if fe, ok := registration.IsFieldError(err); ok {
			writeFieldError(w, http.StatusBadRequest, fe.Field, fe.Message)
			return
		}
		writeError(w, statusFromErr(err), err.Error())
	}
}
