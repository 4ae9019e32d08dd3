package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/auth"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/store"
)

// UsersHandler handles operator account management (admin only).
type UsersHandler struct {
	DB  *sql.DB
	Log *logger.Logger
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin manager user"`
}

type updateUserRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager user"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	existing, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if existing != nil && existing.DeletedAt == nil {
		jsonError(w, apperr.CodeConflict, "username already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, hash, req.Role)
	if err != nil {
		writeError(r.Context(), h.Log, w, apperr.Wrap(apperr.CodeConflict, err, "username already exists"))
		return
	}

	h.Log.Info(h.Log.WithFields(r.Context(), map[string]any{
		"user":     actor(r),
		"new_user": user.Username,
		"role":     user.Role,
	}), "user created")
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, user.ID, req.Role); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	user.Role = req.Role

	h.Log.Info(h.Log.WithFields(r.Context(), map[string]any{
		"user":        actor(r),
		"target_user": user.Username,
		"new_role":    req.Role,
	}), "user role updated")
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	h.Log.Info(h.Log.WithFields(r.Context(), map[string]any{
		"user":        actor(r),
		"target_user": user.Username,
	}), "user password reset")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	// Prevent self-deletion.
	if claims := GetClaims(r.Context()); claims != nil && claims.UserID == id {
		jsonError(w, apperr.CodeValidation, "cannot delete yourself")
		return
	}

	user, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := store.DeleteUser(r.Context(), h.DB, user.ID); err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	h.Log.Info(h.Log.WithFields(r.Context(), map[string]any{
		"user":         actor(r),
		"deleted_user": user.Username,
	}), "user deleted")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// load fetches the active user named by {id}, writing the error response
// itself when there is none.
func (h *UsersHandler) load(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return nil, false
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return nil, false
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, apperr.CodeNotFound, "user not found")
		return nil, false
	}
	return user, true
}

func actor(r *http.Request) string {
	if claims := GetClaims(r.Context()); claims != nil {
		return claims.Username
	}
	return ""
}
