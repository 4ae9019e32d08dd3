package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/auth"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Log       *logger.Logger
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if user == nil || user.DeletedAt != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.Log.Warn(h.Log.WithFields(r.Context(), map[string]any{
			"username": req.Username,
			"remote":   r.RemoteAddr,
		}), "login failed", nil)
		jsonError(w, apperr.CodeUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	token, err := auth.Issue(h.JWTSecret, user.ID, user.Username, user.Role, now)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	h.Log.Info(h.Log.WithFields(r.Context(), map[string]any{
		"user": user.Username,
		"role": user.Role,
	}), "user logged in")
	jsonResponse(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: now.Add(auth.TokenExpiry).UTC(),
		Role:      user.Role,
	})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, apperr.CodeUnauthorized, "not authenticated")
		return
	}

	expiresAt := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expiresAt); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	h.Log.Info(h.Log.WithField(r.Context(), "user", claims.Username), "user logged out")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, apperr.CodeUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, apperr.CodeValidation, err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, apperr.CodeUnauthorized, "account no longer exists")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, apperr.CodeUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, claims.UserID, hash); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	h.Log.Info(h.Log.WithField(r.Context(), "user", claims.Username), "user changed own password")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
