package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/store"
)

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// requiredFields names the string fields a document must carry on
// create, per collection.
var requiredFields = map[string][]string{
	model.CollectionNotices:      {"title", "body"},
	model.CollectionResources:    {"title", "url"},
	model.CollectionClassGroups:  {"name"},
	model.CollectionHelpRequests: {"subject"},
}

// crudRoutes registers plain list/create/update/delete endpoints for a
// document collection.
func (h *Handler) crudRoutes(r chi.Router, path, collection string) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", h.handleListDocs(collection))
		r.Post("/", h.handleCreateDoc(collection))
		r.Put("/{id}", h.handleUpdateDoc(collection))
		r.Patch("/{id}", h.handleUpdateDoc(collection))
		r.Delete("/{id}", h.handleDeleteDoc(collection))
	})
}

func (h *Handler) handleListDocs(collection string) http.HandlerFunc {
	// Class groups are optional taxonomy: a read failure downgrades the
	// feature to an empty list instead of breaking the dashboard.
	soft := collection == model.CollectionClassGroups
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.store.List(collection)
		if err != nil {
			slog.Error("list collection", "collection", collection, "error", err)
			if soft {
				respondJSON(w, http.StatusOK, []json.RawMessage{})
				return
			}
			respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
			return
		}
		out := make([]json.RawMessage, 0, len(docs))
		for _, doc := range docs {
			out = append(out, doc.Data)
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func (h *Handler) readDocBody(r *http.Request, collection string) (map[string]any, bool) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || len(data) == 0 {
		return nil, false
	}
	delete(data, "id")
	for _, field := range requiredFields[collection] {
		s, _ := data[field].(string)
		if strings.TrimSpace(s) == "" {
			return nil, false
		}
	}
	return data, true
}

func (h *Handler) handleCreateDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := h.readDocBody(r, collection)
		if !ok {
			respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
			return
		}
		data["createdAt"] = time.Now()
		if user := model.UserFromContext(r.Context()); user != nil {
			data["createdBy"] = user.ID
		}

		id, err := h.store.Create(collection, data)
		if err != nil {
			slog.Error("create document", "collection", collection, "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
			return
		}
		doc, err := h.store.Get(collection, id)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
			return
		}
		respondJSON(w, http.StatusCreated, doc.Data)
	}
}

func (h *Handler) handleUpdateDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || len(data) == 0 {
			respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
			return
		}

		err := h.store.Update(collection, id, data)
		if isNotFound(err) {
			respondError(w, r, http.StatusNotFound, "ErrNotFound")
			return
		}
		if err != nil {
			slog.Error("update document", "collection", collection, "id", id, "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
			return
		}
		doc, err := h.store.Get(collection, id)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
			return
		}
		respondJSON(w, http.StatusOK, doc.Data)
	}
}

func (h *Handler) handleDeleteDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.store.Delete(collection, id); err != nil {
			slog.Error("delete document", "collection", collection, "id", id, "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (h *Handler) handleCreateHelpRequest(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readDocBody(r, model.CollectionHelpRequests)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}
	if _, set := data["status"]; !set {
		data["status"] = string(model.HelpRequestOpen)
	}
	data["createdAt"] = time.Now()

	id, err := h.store.Create(model.CollectionHelpRequests, data)
	if err != nil {
		slog.Error("create help request", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	doc, err := h.store.Get(model.CollectionHelpRequests, id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	respondJSON(w, http.StatusCreated, doc.Data)
}

type helpRequestBatch struct {
	IDs    []string `json:"ids" validate:"required,min=1"`
	Action string   `json:"action" validate:"required,oneof=resolve delete"`
}

// handleHelpRequestBatch resolves or deletes a set of tickets in one
// all-or-nothing write.
func (h *Handler) handleHelpRequestBatch(w http.ResponseWriter, r *http.Request) {
	var req helpRequestBatch
	if err := h.decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	ops := make([]store.BatchOp, 0, len(req.IDs))
	for _, id := range req.IDs {
		switch req.Action {
		case "resolve":
			ops = append(ops, store.BatchOp{
				Kind:       store.BatchUpdate,
				Collection: model.CollectionHelpRequests,
				ID:         id,
				Data:       map[string]any{"status": string(model.HelpRequestResolved)},
			})
		case "delete":
			ops = append(ops, store.BatchOp{
				Kind:       store.BatchDelete,
				Collection: model.CollectionHelpRequests,
				ID:         id,
			})
		}
	}

	if err := h.store.RunBatch(ops); err != nil {
		slog.Error("help request batch", "action", req.Action, "count", len(ops), "error", err)
		if isNotFound(err) {
			respondError(w, r, http.StatusNotFound, "BatchFailed")
			return
		}
		respondError(w, r, http.StatusInternalServerError, "BatchFailed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(ops)})
}
