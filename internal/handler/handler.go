// Package handler implements the JSON API of the admin dashboard.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	appI18n "github.com/classdesk/classdesk/internal/i18n"
	"github.com/classdesk/classdesk/internal/media"
	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	media    *media.Client
	config   model.Config
	validate *validator.Validate

	// Live snapshots backing the results list; the join over results,
	// exams and users never hits the database per request.
	results *store.Watch[model.Result]
	exams   *store.Watch[model.Exam]
	users   *store.Watch[model.UserProfile]
}

// New creates a new Handler.
func New(s *store.Store, m *media.Client, cfg model.Config) (*Handler, error) {
	return &Handler{
		store:    s,
		media:    m,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		results:  store.NewWatch[model.Result](s, model.CollectionResults),
		exams:    store.NewWatch[model.Exam](s, model.CollectionExams),
		users:    store.NewWatch[model.UserProfile](s, model.CollectionUsers),
	}, nil
}

// Close releases the collection watches.
func (h *Handler) Close() {
	h.results.Close()
	h.exams.Close()
	h.users.Close()
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleAdmin))

		r.Route("/exams", func(r chi.Router) {
			r.Get("/", h.handleListExams)
			r.Post("/", h.handleCreateExam)
			r.Get("/{id}", h.handleGetExam)
			r.Put("/{id}", h.handleUpdateExam)
			r.Delete("/{id}", h.handleDeleteExam)
			r.Post("/{id}/import", h.handleImportQuestions)
			r.Get("/{id}/export", h.handleExportExam)
		})

		r.Route("/results", func(r chi.Router) {
			r.Get("/", h.handleListResults)
			r.Get("/export.csv", h.handleExportResultsCSV)
			r.Patch("/{id}", h.handlePatchResult)
			r.Delete("/{id}", h.handleDeleteResult)
			r.Get("/{id}/review", h.handleResultReview)
		})

		h.crudRoutes(r, "/notices", model.CollectionNotices)
		h.crudRoutes(r, "/resources", model.CollectionResources)
		h.crudRoutes(r, "/classgroups", model.CollectionClassGroups)

		r.Route("/help-requests", func(r chi.Router) {
			r.Get("/", h.handleListDocs(model.CollectionHelpRequests))
			r.Post("/", h.handleCreateHelpRequest)
			r.Patch("/{id}", h.handleUpdateDoc(model.CollectionHelpRequests))
			r.Delete("/{id}", h.handleDeleteDoc(model.CollectionHelpRequests))
			r.Post("/batch", h.handleHelpRequestBatch)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.handleListUsers)
			r.Post("/", h.handleCreateUser)
			r.Put("/{id}", h.handleUpdateUser)
			r.Delete("/{id}", h.handleDeleteDoc(model.CollectionUsers))
		})

		r.Post("/media", h.handleMediaUpload)
	})
}

// respondJSON writes a JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a localized JSON error body.
func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

// decodeJSON reads a request body into v and runs struct validation.
func (h *Handler) decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("validate request body: %w", err)
	}
	return nil
}
