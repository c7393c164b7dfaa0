package qbank

import (
	"encoding/json"
	"fmt"

	"github.com/classdesk/classdesk/internal/model"
)

// ExamExport is the portable JSON projection of an exam. Question ids
// are deliberately omitted: they are regenerated on import, never
// carried between installations.
type ExamExport struct {
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	DurationMinutes  int              `json:"durationMinutes"`
	TotalMarks       int              `json:"totalMarks"`
	Difficulty       string           `json:"difficulty,omitempty"`
	MaxAttempts      int              `json:"maxAttempts"`
	NegativeMarking  float64          `json:"negativeMarking"`
	ShuffleQuestions bool             `json:"shuffleQuestions"`
	TargetClass      string           `json:"targetClass,omitempty"`
	TargetDivision   string           `json:"targetDivision,omitempty"`
	Questions        []QuestionExport `json:"questions"`
}

// QuestionExport holds the portable fields of one question.
type QuestionExport struct {
	Text              string   `json:"text"`
	Type              string   `json:"type"`
	Options           []string `json:"options"`
	CorrectAnswer     int      `json:"correctAnswer"`
	CorrectAnswerText string   `json:"correctAnswerText,omitempty"`
}

// Export serializes an exam to indented import-compatible JSON.
func Export(e model.Exam) ([]byte, error) {
	out := ExamExport{
		Title:            e.Title,
		Description:      e.Description,
		DurationMinutes:  e.DurationMinutes,
		TotalMarks:       e.TotalMarks,
		Difficulty:       string(e.Difficulty),
		MaxAttempts:      e.MaxAttempts,
		NegativeMarking:  e.NegativeMarking,
		ShuffleQuestions: e.ShuffleQuestions,
		TargetClass:      e.TargetClass,
		TargetDivision:   e.TargetDivision,
		Questions:        make([]QuestionExport, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		opts := q.Options
		if opts == nil {
			opts = []string{}
		}
		out.Questions = append(out.Questions, QuestionExport{
			Text:              q.Text,
			Type:              string(q.Type),
			Options:           opts,
			CorrectAnswer:     q.CorrectAnswer,
			CorrectAnswerText: q.CorrectAnswerText,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal exam export: %w", err)
	}
	return data, nil
}
