package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/store"
)

type userPayload struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"omitempty,min=8"`
	Role     model.UserRole `json:"role" validate:"required,oneof=student teacher admin"`
	Class    string         `json:"class"`
	Division string         `json:"division"`
	Active   *bool          `json:"active"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(model.CollectionUsers)
	if err != nil {
		slog.Error("list users", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	users, err := store.DecodeAll[model.UserProfile](docs)
	if err != nil {
		slog.Error("decode users", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := h.decodeJSON(r, &payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}
	if payload.Password == "" {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}
	if existing, err := h.userByEmail(payload.Email); err != nil || existing != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("hash password", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}

	user := model.UserProfile{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: string(hash),
		Role:         payload.Role,
		Class:        payload.Class,
		Division:     payload.Division,
		Active:       payload.Active == nil || *payload.Active,
		CreatedAt:    time.Now(),
	}
	data, err := store.Encode(user)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	id, err := h.store.Create(model.CollectionUsers, data)
	if err != nil {
		slog.Error("create user", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	user.ID = id
	user.PasswordHash = ""
	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload userPayload
	if err := h.decodeJSON(r, &payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	data := map[string]any{
		"name":     payload.Name,
		"email":    payload.Email,
		"role":     string(payload.Role),
		"class":    payload.Class,
		"division": payload.Division,
	}
	if payload.Active != nil {
		data["active"] = *payload.Active
	}
	if payload.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("hash password", "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
			return
		}
		data["passwordHash"] = string(hash)
	}

	err := h.store.Update(model.CollectionUsers, id, data)
	if isNotFound(err) {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	if err != nil {
		slog.Error("update user", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}

	user, err := h.userByID(id)
	if err != nil || user == nil {
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	user.PasswordHash = ""
	respondJSON(w, http.StatusOK, user)
}
