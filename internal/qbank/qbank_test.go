package qbank

import (
	"errors"
	"reflect"
	"testing"

	"github.com/classdesk/classdesk/internal/model"
)

func TestParseCanonicalShape(t *testing.T) {
	raw := []byte(`{"questions":[{"question":"2+2?","type":"multiple-choice","options":["3","4","5"],"correctAnswer":1}]}`)

	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(res.Questions))
	}
	q := res.Questions[0]
	if q.Type != model.TypeMultipleChoice {
		t.Errorf("expected multiple-choice, got %q", q.Type)
	}
	if q.Text != "2+2?" {
		t.Errorf("expected text '2+2?', got %q", q.Text)
	}
	if !reflect.DeepEqual(q.Options, []string{"3", "4", "5"}) {
		t.Errorf("unexpected options: %v", q.Options)
	}
	if q.CorrectAnswer != 1 {
		t.Errorf("expected correct answer 1, got %d", q.CorrectAnswer)
	}
	if q.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`{"questions": [`))
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("expected SyntaxError, got %T: %v", err, err)
	}
}

func TestParseStructureErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"empty data array", `{"data":[]}`},
		{"empty questions array", `{"questions":[]}`},
		{"scalar root", `42`},
		{"array of scalars only", `{"items":[1,2,3]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			var se *StructureError
			if !errors.As(err, &se) {
				t.Fatalf("expected StructureError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseRootArray(t *testing.T) {
	raw := []byte(`[{"prompt":"Pick one","choices":["a","b"],"correct":0}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(res.Questions))
	}
	if res.Questions[0].Text != "Pick one" {
		t.Errorf("unexpected text %q", res.Questions[0].Text)
	}
	if !reflect.DeepEqual(res.Questions[0].Options, []string{"a", "b"}) {
		t.Errorf("unexpected options %v", res.Questions[0].Options)
	}
}

func TestParseFallbackArrayField(t *testing.T) {
	raw := []byte(`{"items":[{"text":"Q1","options":["x","y"],"correct":1}]}`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Questions) != 1 || res.Questions[0].CorrectAnswer != 1 {
		t.Fatalf("unexpected result: %+v", res.Questions)
	}
}

func TestParseTypeHeuristics(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.QuestionType
	}{
		{"short answer", `[{"text":"Q","type":"short_answer"}]`, model.TypeShortAnswer},
		{"true false long", `[{"text":"Q","type":"true/false"}]`, model.TypeTrueFalse},
		{"tf", `[{"text":"Q","type":"tf"}]`, model.TypeTrueFalse},
		{"missing type defaults to mcq", `[{"text":"Q"}]`, model.TypeMultipleChoice},
		{"unknown type defaults to mcq", `[{"text":"Q","type":"essay"}]`, model.TypeMultipleChoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if res.Questions[0].Type != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Questions[0].Type)
			}
		})
	}
}

func TestParseTrueFalseForcesOptions(t *testing.T) {
	raw := []byte(`[{"text":"Sky is blue","type":"true-false","options":["Yes","No","Maybe"],"correct":"False"}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := res.Questions[0]
	if !reflect.DeepEqual(q.Options, []string{"True", "False"}) {
		t.Errorf("expected forced True/False options, got %v", q.Options)
	}
	if q.CorrectAnswer != 1 {
		t.Errorf("expected correct answer 1 (False), got %d", q.CorrectAnswer)
	}
}

func TestParsePlaceholderOptions(t *testing.T) {
	raw := []byte(`[{"text":"Q","type":"multiple-choice","options":["only one"]}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := res.Questions[0]
	if !reflect.DeepEqual(q.Options, []string{"", "", "", ""}) {
		t.Errorf("expected four placeholder options, got %v", q.Options)
	}
	if q.CorrectAnswer != 0 {
		t.Errorf("expected correct answer reset to 0, got %d", q.CorrectAnswer)
	}
}

func TestParseOutOfRangeCorrectAnswer(t *testing.T) {
	raw := []byte(`[{"text":"Q","options":["a","b"],"correctAnswer":7}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Questions[0].CorrectAnswer != 0 {
		t.Errorf("expected out-of-range index reset to 0, got %d", res.Questions[0].CorrectAnswer)
	}
}

func TestParseCorrectAnswerByOptionText(t *testing.T) {
	raw := []byte(`[{"text":"Q","options":["red","green","blue"],"correct":"green"}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Questions[0].CorrectAnswer != 1 {
		t.Errorf("expected index 1 for 'green', got %d", res.Questions[0].CorrectAnswer)
	}
}

func TestParseShortAnswerText(t *testing.T) {
	raw := []byte(`[{"text":"Chemical formula of water?","type":"short-answer","answer":"H2O"}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := res.Questions[0]
	if len(q.Options) != 0 {
		t.Errorf("expected empty options for short answer, got %v", q.Options)
	}
	// Formatter runs on the answer text too.
	if q.CorrectAnswerText != "H₂O" {
		t.Errorf("expected formatted answer 'H₂O', got %q", q.CorrectAnswerText)
	}
}

func TestParseFormatsPromptAndOptions(t *testing.T) {
	raw := []byte(`[{"text":"What is x^2 when x=3?","options":["6","9","x2"],"correctAnswer":1}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := res.Questions[0]
	if q.Text != "What is x² when x=3?" {
		t.Errorf("prompt not formatted: %q", q.Text)
	}
	if q.Options[2] != "x²" {
		t.Errorf("option not formatted: %q", q.Options[2])
	}
}

func TestParseSkipsNonObjectElements(t *testing.T) {
	raw := []byte(`[{"text":"Q1","options":["a","b"],"correct":0}, "junk", 42]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Questions) != 1 {
		t.Errorf("expected 1 question, got %d", len(res.Questions))
	}
}

func TestParseFreshIDs(t *testing.T) {
	raw := []byte(`[{"id":"keep-me","text":"Q","options":["a","b"],"correct":0}]`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Questions[0].ID == "keep-me" || res.Questions[0].ID == "" {
		t.Errorf("expected a fresh id, got %q", res.Questions[0].ID)
	}
}

func TestParseMeta(t *testing.T) {
	raw := []byte(`{
		"title": "Physics Midterm",
		"duration": 45,
		"totalMarks": 100,
		"negativeMarking": 0.5,
		"shuffleQuestions": true,
		"questions": [{"text":"Q","options":["a","b"],"correct":0}]
	}`)
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := res.Meta
	if m.Title == nil || *m.Title != "Physics Midterm" {
		t.Errorf("unexpected title: %v", m.Title)
	}
	if m.DurationMinutes == nil || *m.DurationMinutes != 45 {
		t.Errorf("unexpected duration: %v", m.DurationMinutes)
	}
	if m.TotalMarks == nil || *m.TotalMarks != 100 {
		t.Errorf("unexpected total marks: %v", m.TotalMarks)
	}
	if m.NegativeMarking == nil || *m.NegativeMarking != 0.5 {
		t.Errorf("unexpected negative marking: %v", m.NegativeMarking)
	}
	if m.ShuffleQuestions == nil || !*m.ShuffleQuestions {
		t.Errorf("unexpected shuffle: %v", m.ShuffleQuestions)
	}
	// Absent fields stay absent, never defaulted.
	if m.Description != nil || m.MaxAttempts != nil || m.TargetClass != nil {
		t.Error("absent meta fields should be nil")
	}
}

func TestMetaMergePreservesUntouchedFields(t *testing.T) {
	exam := model.Exam{Title: "Old", Description: "keep", DurationMinutes: 30}
	title := "New"
	marks := 50
	ExamMeta{Title: &title, TotalMarks: &marks}.MergeInto(&exam)
	if exam.Title != "New" || exam.TotalMarks != 50 {
		t.Errorf("meta not applied: %+v", exam)
	}
	if exam.Description != "keep" || exam.DurationMinutes != 30 {
		t.Errorf("untouched fields were modified: %+v", exam)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	exam := model.Exam{
		Title:           "Chemistry Quiz",
		DurationMinutes: 20,
		TotalMarks:      30,
		Questions: []model.Question{
			{
				ID:            "a1",
				Type:          model.TypeMultipleChoice,
				Text:          "Formula of water?",
				Options:       []string{"H₂O", "CO₂", "NaCl"},
				CorrectAnswer: 0,
			},
			{
				ID:            "a2",
				Type:          model.TypeTrueFalse,
				Text:          "Salt dissolves in water.",
				Options:       model.TrueFalseOptions(),
				CorrectAnswer: 0,
			},
			{
				ID:                "a3",
				Type:              model.TypeShortAnswer,
				Text:              "Name the formula of glucose.",
				Options:           []string{},
				CorrectAnswerText: "C₆H₁₂O₆",
			},
		},
	}

	data, err := Export(exam)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	res, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse exported data: %v", err)
	}
	if len(res.Questions) != len(exam.Questions) {
		t.Fatalf("expected %d questions, got %d", len(exam.Questions), len(res.Questions))
	}
	for i, got := range res.Questions {
		want := exam.Questions[i]
		if got.ID == want.ID {
			t.Errorf("question %d: id should be regenerated", i)
		}
		if got.Text != want.Text || got.Type != want.Type {
			t.Errorf("question %d: text/type mismatch: got %q/%q", i, got.Text, got.Type)
		}
		if !reflect.DeepEqual(got.Options, want.Options) {
			t.Errorf("question %d: options mismatch: got %v, want %v", i, got.Options, want.Options)
		}
		if got.CorrectAnswer != want.CorrectAnswer {
			t.Errorf("question %d: correct answer mismatch: got %d, want %d", i, got.CorrectAnswer, want.CorrectAnswer)
		}
		if got.CorrectAnswerText != want.CorrectAnswerText {
			t.Errorf("question %d: answer text mismatch: got %q, want %q", i, got.CorrectAnswerText, want.CorrectAnswerText)
		}
	}
	if res.Meta.Title == nil || *res.Meta.Title != "Chemistry Quiz" {
		t.Errorf("exam meta lost in round trip: %+v", res.Meta)
	}
}
