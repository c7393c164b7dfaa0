// Package qbank converts loosely structured question-bank JSON into
// canonical questions and renders them back out for export.
//
// Parsing is heuristic and best-effort: it never fails on shape
// mismatches inside individual records, only on unparsable JSON
// (SyntaxError) or on input with no recognizable question array
// (StructureError). The candidate keys it probes, in order:
//
//	question array:  the root itself, "questions", "data",
//	                 then the first array-of-objects field
//	prompt text:     keys containing "text", "question", "prompt"
//	options:         keys containing "options", "choices", "answers"
//	correct answer:  keys containing "correct", "answer"
//
// The options and correct-answer probes are evaluated independently,
// so a field literally named "answers" can satisfy both. First match
// wins per probe; ambiguous schemas may misassign. That is an accepted
// limitation of duck-typing over arbitrary exports.
package qbank

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/notation"
)

// SyntaxError reports unparsable JSON text.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid JSON syntax: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// StructureError reports well-formed JSON whose shape holds no
// recognizable question array.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "unrecognized import structure: " + e.Reason
}

// ExamMeta carries exam-level fields read from the import root. Nil
// means the field was absent from the input; the caller merges only
// present fields onto existing exam state.
type ExamMeta struct {
	Title            *string
	Description      *string
	DurationMinutes  *int
	Difficulty       *string
	TotalMarks       *int
	MaxAttempts      *int
	ShuffleQuestions *bool
	NegativeMarking  *float64
	TargetClass      *string
	TargetDivision   *string
}

// MergeInto applies the present fields onto an exam, leaving everything
// else untouched.
func (m ExamMeta) MergeInto(e *model.Exam) {
	if m.Title != nil {
		e.Title = *m.Title
	}
	if m.Description != nil {
		e.Description = *m.Description
	}
	if m.DurationMinutes != nil {
		e.DurationMinutes = *m.DurationMinutes
	}
	if m.Difficulty != nil {
		e.Difficulty = model.Difficulty(*m.Difficulty)
	}
	if m.TotalMarks != nil {
		e.TotalMarks = *m.TotalMarks
	}
	if m.MaxAttempts != nil {
		e.MaxAttempts = *m.MaxAttempts
	}
	if m.ShuffleQuestions != nil {
		e.ShuffleQuestions = *m.ShuffleQuestions
	}
	if m.NegativeMarking != nil {
		e.NegativeMarking = *m.NegativeMarking
	}
	if m.TargetClass != nil {
		e.TargetClass = *m.TargetClass
	}
	if m.TargetDivision != nil {
		e.TargetDivision = *m.TargetDivision
	}
}

// ImportResult is a fully normalized question bank.
type ImportResult struct {
	Questions []model.Question
	Meta      ExamMeta
}

// Parse normalizes raw import JSON. Each returned question carries a
// freshly generated id; ids in the source are never reused.
func Parse(raw []byte) (ImportResult, error) {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return ImportResult{}, &SyntaxError{Err: err}
	}

	items, err := findQuestionArray(root)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Meta: readMeta(root)}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		res.Questions = append(res.Questions, normalizeQuestion(obj))
	}
	if len(res.Questions) == 0 {
		return ImportResult{}, &StructureError{Reason: "no question records found"}
	}
	return res, nil
}

// findQuestionArray locates the array of question-like records.
func findQuestionArray(root any) ([]any, error) {
	if arr, ok := root.([]any); ok {
		if len(arr) == 0 {
			return nil, &StructureError{Reason: "question array is empty"}
		}
		return arr, nil
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, &StructureError{Reason: "root is neither an array nor an object"}
	}

	for _, key := range []string{"questions", "data"} {
		if arr, ok := obj[key].([]any); ok {
			if len(arr) == 0 {
				return nil, &StructureError{Reason: fmt.Sprintf("%q array is empty", key)}
			}
			return arr, nil
		}
	}

	// Fall back to the first field holding an array of objects. JSON
	// object keys carry no order, so "first" means first in sorted key
	// order to keep the probe deterministic.
	for _, key := range sortedKeys(obj) {
		arr, ok := obj[key].([]any)
		if !ok || len(arr) == 0 {
			continue
		}
		if _, ok := arr[0].(map[string]any); ok {
			return arr, nil
		}
	}

	return nil, &StructureError{Reason: "no question array found"}
}

func readMeta(root any) ExamMeta {
	obj, ok := root.(map[string]any)
	if !ok {
		return ExamMeta{}
	}
	// Prefer an "exam" sub-object when present.
	if sub, ok := obj["exam"].(map[string]any); ok {
		obj = sub
	}

	var m ExamMeta
	m.Title = asStringPtr(obj["title"])
	m.Description = asStringPtr(obj["description"])
	if v := asIntPtr(obj["durationMinutes"]); v != nil {
		m.DurationMinutes = v
	} else {
		m.DurationMinutes = asIntPtr(obj["duration"])
	}
	m.Difficulty = asStringPtr(obj["difficulty"])
	m.TotalMarks = asIntPtr(obj["totalMarks"])
	m.MaxAttempts = asIntPtr(obj["maxAttempts"])
	m.ShuffleQuestions = asBoolPtr(obj["shuffleQuestions"])
	m.NegativeMarking = asFloatPtr(obj["negativeMarking"])
	m.TargetClass = asStringPtr(obj["targetClass"])
	m.TargetDivision = asStringPtr(obj["targetDivision"])
	return m
}

func normalizeQuestion(obj map[string]any) model.Question {
	q := model.Question{
		ID:   uuid.NewString(),
		Type: resolveType(obj),
	}

	if v, ok := findValue(obj, "text", "question", "prompt"); ok {
		q.Text = notation.Format(coerceString(v))
	}

	q.Options = resolveOptions(obj, q.Type)
	q.CorrectAnswer, q.CorrectAnswerText = resolveCorrect(obj, q.Type, q.Options)

	// Invariant repair: a multiple-choice question must always carry a
	// usable option set and an in-range answer index.
	switch q.Type {
	case model.TypeMultipleChoice:
		if len(q.Options) < 2 {
			q.Options = []string{"", "", "", ""}
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			q.CorrectAnswer = 0
		}
	case model.TypeTrueFalse:
		q.Options = model.TrueFalseOptions()
		if q.CorrectAnswer != 0 && q.CorrectAnswer != 1 {
			q.CorrectAnswer = 0
		}
	case model.TypeShortAnswer:
		q.Options = []string{}
		q.CorrectAnswer = 0
	}

	q.Options = notation.FormatAll(q.Options)
	q.CorrectAnswerText = notation.Format(q.CorrectAnswerText)
	return q
}

func resolveType(obj map[string]any) model.QuestionType {
	t := strings.ToLower(coerceString(obj["type"]))
	switch {
	case strings.Contains(t, "short"):
		return model.TypeShortAnswer
	case strings.Contains(t, "true"), t == "tf":
		return model.TypeTrueFalse
	default:
		return model.TypeMultipleChoice
	}
}

func resolveOptions(obj map[string]any, t model.QuestionType) []string {
	if t != model.TypeMultipleChoice {
		return nil
	}
	for _, sub := range []string{"options", "choices", "answers"} {
		for _, key := range sortedKeys(obj) {
			if !strings.Contains(strings.ToLower(key), sub) {
				continue
			}
			arr, ok := obj[key].([]any)
			if !ok {
				continue
			}
			opts := make([]string, 0, len(arr))
			for _, el := range arr {
				opts = append(opts, coerceString(el))
			}
			return opts
		}
	}
	return nil
}

func resolveCorrect(obj map[string]any, t model.QuestionType, options []string) (int, string) {
	v, ok := findValue(obj, "correct", "answer")
	if !ok {
		return 0, ""
	}

	if t == model.TypeTrueFalse {
		options = model.TrueFalseOptions()
	}

	if t == model.TypeShortAnswer {
		// Short-answer wants the expected text; prefer a string-valued
		// match over a numeric index.
		if s, ok := v.(string); ok {
			return 0, s
		}
		if s, ok := findStringValue(obj, "correct", "answer"); ok {
			return 0, s
		}
		return 0, ""
	}

	switch val := v.(type) {
	case float64:
		return int(val), ""
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, ""
		}
		// Maybe the indicator is the option text itself.
		for i, opt := range options {
			if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(val)) {
				return i, ""
			}
		}
	case bool:
		// True-false banks sometimes mark the answer as a bare boolean.
		if val {
			return 0, ""
		}
		return 1, ""
	}
	return 0, ""
}

// findValue returns the value of the first key containing any of the
// given substrings (case-insensitive), probing substrings in order.
func findValue(obj map[string]any, subs ...string) (any, bool) {
	keys := sortedKeys(obj)
	for _, sub := range subs {
		for _, key := range keys {
			if strings.Contains(strings.ToLower(key), sub) {
				return obj[key], true
			}
		}
	}
	return nil, false
}

// findStringValue is findValue restricted to string-valued keys.
func findStringValue(obj map[string]any, subs ...string) (string, bool) {
	keys := sortedKeys(obj)
	for _, sub := range subs {
		for _, key := range keys {
			if !strings.Contains(strings.ToLower(key), sub) {
				continue
			}
			if s, ok := obj[key].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func asStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func asIntPtr(v any) *int {
	switch val := v.(type) {
	case float64:
		n := int(val)
		return &n
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return &n
		}
	}
	return nil
}

func asFloatPtr(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return &f
		}
	}
	return nil
}

func asBoolPtr(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}
