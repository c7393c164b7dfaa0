package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/review"
	"github.com/classdesk/classdesk/internal/store"
)

func resultFilter(r *http.Request) review.Filter {
	q := r.URL.Query()
	return review.Filter{
		ExamID:        q.Get("exam"),
		Class:         q.Get("class"),
		Division:      q.Get("division"),
		IncludeHidden: q.Get("includeHidden") == "true",
		Query:         q.Get("q"),
	}
}

func (h *Handler) filteredRows(r *http.Request) []review.Row {
	rows := review.BuildRows(h.results.Snapshot(), h.exams.Snapshot(), h.users.Snapshot())
	return review.FilterRows(rows, resultFilter(r))
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	rows := h.filteredRows(r)
	if rows == nil {
		rows = []review.Row{}
	}
	respondJSON(w, http.StatusOK, rows)
}

type resultPatch struct {
	Score    *float64 `json:"score" validate:"omitempty"`
	IsHidden *bool    `json:"isHidden"`
}

// handlePatchResult applies a teacher override. Score overrides are
// taken as given, above TotalMarks included; negative marking makes
// scores below zero legitimate too.
func (h *Handler) handlePatchResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch resultPatch
	if err := h.decodeJSON(r, &patch); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	data := map[string]any{}
	if patch.Score != nil {
		data["score"] = *patch.Score
	}
	if patch.IsHidden != nil {
		data["isHidden"] = *patch.IsHidden
	}
	if len(data) == 0 {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	err := h.store.Update(model.CollectionResults, id, data)
	if err == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	if isNotFound(err) {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	slog.Error("patch result", "id", id, "error", err)
	respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(model.CollectionResults, id); err != nil {
		slog.Error("delete result", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleExportResultsCSV(w http.ResponseWriter, r *http.Request) {
	rows := h.filteredRows(r)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	filename := "results-" + time.Now().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := review.WriteCSV(w, rows); err != nil {
		slog.Error("write results csv", "error", err)
	}
}

// handleResultReview reconstructs per-question verdicts for one
// result. A deleted exam yields an empty question list rather than an
// error; the stored score and attempt counters still render.
func (h *Handler) handleResultReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.store.Get(model.CollectionResults, id)
	if err == store.ErrNotFound {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	if err != nil {
		slog.Error("get result", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	res, err := store.Decode[model.Result](doc)
	if err != nil {
		slog.Error("decode result", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}

	var exam model.Exam
	examDoc, err := h.store.Get(model.CollectionExams, res.ExamID)
	if err == nil {
		if exam, err = store.Decode[model.Exam](examDoc); err != nil {
			slog.Error("decode exam", "id", res.ExamID, "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
			return
		}
	} else if err != store.ErrNotFound {
		slog.Error("get exam", "id", res.ExamID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}

	rev := review.Reconcile(exam, res, h.results.Snapshot())
	respondJSON(w, http.StatusOK, map[string]any{
		"result": res,
		"exam":   exam,
		"review": rev,
	})
}
