package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appI18n "github.com/classdesk/classdesk/internal/i18n"
	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/notation"
	"github.com/classdesk/classdesk/internal/qbank"
	"github.com/classdesk/classdesk/internal/store"
)

const maxImportSize = 10 << 20

type examPayload struct {
	Title            string           `json:"title" validate:"required"`
	Description      string           `json:"description"`
	Questions        []model.Question `json:"questions"`
	DurationMinutes  int              `json:"durationMinutes" validate:"min=0"`
	TotalMarks       int              `json:"totalMarks" validate:"min=0"`
	Difficulty       model.Difficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	MaxAttempts      int              `json:"maxAttempts" validate:"min=0"`
	NegativeMarking  float64          `json:"negativeMarking" validate:"min=0"`
	ShuffleQuestions bool             `json:"shuffleQuestions"`
	ScheduledDate    *time.Time       `json:"scheduledDate"`
	IsPublished      bool             `json:"isPublished"`
	TargetClass      string           `json:"targetClass"`
	TargetDivision   string           `json:"targetDivision"`
}

func (p examPayload) toExam() model.Exam {
	return model.Exam{
		Title:            p.Title,
		Description:      p.Description,
		Questions:        p.Questions,
		DurationMinutes:  p.DurationMinutes,
		TotalMarks:       p.TotalMarks,
		Difficulty:       p.Difficulty,
		MaxAttempts:      p.MaxAttempts,
		NegativeMarking:  p.NegativeMarking,
		ShuffleQuestions: p.ShuffleQuestions,
		ScheduledDate:    p.ScheduledDate,
		IsPublished:      p.IsPublished,
		TargetClass:      p.TargetClass,
		TargetDivision:   p.TargetDivision,
	}
}

// normalizeExam enforces question invariants on every save path:
// stable per-question ids, canonical true-false options, notation
// formatting on display text, fresh question count.
func normalizeExam(e *model.Exam) {
	for i := range e.Questions {
		q := &e.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Type == "" {
			q.Type = model.TypeMultipleChoice
		}
		if q.Type == model.TypeTrueFalse {
			q.Options = model.TrueFalseOptions()
		}
		if q.CorrectAnswer < 0 || (len(q.Options) > 0 && q.CorrectAnswer >= len(q.Options)) {
			q.CorrectAnswer = 0
		}
		q.Text = notation.Format(q.Text)
		q.Options = notation.FormatAll(q.Options)
		q.CorrectAnswerText = notation.Format(q.CorrectAnswerText)
	}
	e.Recount()
}

// examData flattens an exam for the store, overriding omitempty fields
// so a full update clears what the client cleared.
func examData(e model.Exam) (map[string]any, error) {
	data, err := store.Encode(e)
	if err != nil {
		return nil, err
	}
	data["description"] = e.Description
	data["difficulty"] = string(e.Difficulty)
	data["targetClass"] = e.TargetClass
	data["targetDivision"] = e.TargetDivision
	data["scheduledDate"] = e.ScheduledDate
	return data, nil
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(model.CollectionExams)
	if err != nil {
		slog.Error("list exams", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	exams, err := store.DecodeAll[model.Exam](docs)
	if err != nil {
		slog.Error("decode exams", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}
	respondJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var payload examPayload
	if err := h.decodeJSON(r, &payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	exam := payload.toExam()
	normalizeExam(&exam)
	exam.CreatedAt = time.Now()
	exam.UpdatedAt = exam.CreatedAt
	if user := model.UserFromContext(r.Context()); user != nil {
		exam.CreatedBy = user.ID
	}

	data, err := examData(exam)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	id, err := h.store.Create(model.CollectionExams, data)
	if err != nil {
		slog.Error("create exam", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	exam.ID = id
	respondJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadExam(w, r)
	if !ok {
		return
	}

	var payload examPayload
	if err := h.decodeJSON(r, &payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	exam := payload.toExam()
	exam.ID = existing.ID
	exam.CreatedBy = existing.CreatedBy
	exam.CreatedAt = existing.CreatedAt
	exam.UpdatedAt = time.Now()
	normalizeExam(&exam)

	if err := h.saveExam(exam); err != nil {
		slog.Error("update exam", "id", exam.ID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(model.CollectionExams, id); err != nil {
		slog.Error("delete exam", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleImportQuestions ingests an uploaded question-bank JSON file
// into an existing exam. Nothing is applied unless the whole file
// normalizes.
func (h *Handler) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}

	res, err := qbank.Parse(raw)
	if err != nil {
		var synErr *qbank.SyntaxError
		if errors.As(err, &synErr) {
			respondError(w, r, http.StatusBadRequest, "ErrInvalidJSON")
			return
		}
		respondError(w, r, http.StatusBadRequest, "ErrImportStructure")
		return
	}

	switch r.URL.Query().Get("mode") {
	case "replace":
		exam.Questions = res.Questions
		res.Meta.MergeInto(&exam)
	default: // append
		exam.Questions = append(exam.Questions, res.Questions...)
	}
	exam.Recount()
	exam.UpdatedAt = time.Now()

	if err := h.saveExam(exam); err != nil {
		slog.Error("save imported questions", "id", exam.ID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreWrite")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"exam":     exam,
		"imported": len(res.Questions),
		"message":  appI18n.Tp(r.Context(), "QuestionsImported", len(res.Questions)),
	})
}

func (h *Handler) handleExportExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}

	out, err := qbank.Export(exam)
	if err != nil {
		slog.Error("export exam", "id", exam.ID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exam.Title+".json"))
	w.Write(out)
}

func (h *Handler) loadExam(w http.ResponseWriter, r *http.Request) (model.Exam, bool) {
	id := chi.URLParam(r, "id")
	doc, err := h.store.Get(model.CollectionExams, id)
	if err == store.ErrNotFound {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return model.Exam{}, false
	}
	if err != nil {
		slog.Error("get exam", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return model.Exam{}, false
	}
	exam, err := store.Decode[model.Exam](doc)
	if err != nil {
		slog.Error("decode exam", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrStoreRead")
		return model.Exam{}, false
	}
	return exam, true
}

func (h *Handler) saveExam(exam model.Exam) error {
	data, err := examData(exam)
	if err != nil {
		return err
	}
	return h.store.Update(model.CollectionExams, exam.ID, data)
}
