// Package review reconciles a stored result against the answer key of
// the originating exam and derives the filtered views the dashboard
// shows over result snapshots.
package review

import (
	"math"
	"sort"

	"github.com/classdesk/classdesk/internal/model"
)

// PassThreshold is the fixed pass percentage.
const PassThreshold = 50

// Verdict classifies one answered question.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictSkipped   Verdict = "skipped"
)

// Skipped is the answer value recorded when a question was not answered.
const Skipped = -1

// OptionView is one rendered option with selection markers.
type OptionView struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
	Correct  bool   `json:"correct"`
}

// QuestionReview is the per-question breakdown for one result.
type QuestionReview struct {
	Question      model.Question `json:"question"`
	SelectedIndex int            `json:"selectedIndex"`
	Verdict       Verdict        `json:"verdict"`
	Options       []OptionView   `json:"options"`
	// ShortAnswerGap flags that correctness for this question comes
	// from the binary signal recorded at submission time; the free-text
	// response itself is not reconstructable from the stored result.
	ShortAnswerGap bool `json:"shortAnswerGap,omitempty"`
}

// Review is the full reconciliation of one result.
type Review struct {
	Questions     []QuestionReview `json:"questions"`
	Correct       int              `json:"correct"`
	Incorrect     int              `json:"incorrect"`
	SkippedCount  int              `json:"skipped"`
	Percentage    int              `json:"percentage"`
	Passed        bool             `json:"passed"`
	Attempt       int              `json:"attempt"`
	TotalAttempts int              `json:"totalAttempts"`
}

// Reconcile compares a result's recorded answers against the exam's
// answer key. The exam is fetched independently and may have been
// edited or emptied since submission; missing answer slots are treated
// as skipped and surplus answers are ignored.
func Reconcile(exam model.Exam, res model.Result, all []model.Result) Review {
	rv := Review{
		Percentage: Percentage(res.Score, res.TotalMarks),
	}
	rv.Passed = rv.Percentage >= PassThreshold
	rv.Attempt, rv.TotalAttempts = AttemptNumber(all, res)

	for i, q := range exam.Questions {
		qr := reconcileQuestion(q, answerAt(res.Answers, i))
		switch qr.Verdict {
		case VerdictCorrect:
			rv.Correct++
		case VerdictIncorrect:
			rv.Incorrect++
		default:
			rv.SkippedCount++
		}
		rv.Questions = append(rv.Questions, qr)
	}
	return rv
}

func reconcileQuestion(q model.Question, selected int) QuestionReview {
	qr := QuestionReview{Question: q, SelectedIndex: selected}

	if q.Type == model.TypeShortAnswer {
		// The result only stores a numeric slot per question, so for
		// short answers we can only replay the correct/incorrect signal
		// captured at submission (1 = marked correct).
		qr.ShortAnswerGap = true
		switch selected {
		case Skipped:
			qr.Verdict = VerdictSkipped
		case 1:
			qr.Verdict = VerdictCorrect
		default:
			qr.Verdict = VerdictIncorrect
		}
		return qr
	}

	if selected < 0 || selected >= len(q.Options) {
		qr.SelectedIndex = Skipped
		qr.Verdict = VerdictSkipped
	} else if selected == q.CorrectAnswer {
		qr.Verdict = VerdictCorrect
	} else {
		qr.Verdict = VerdictIncorrect
	}

	for i, opt := range q.Options {
		qr.Options = append(qr.Options, OptionView{
			Index:    i,
			Text:     opt,
			Selected: i == qr.SelectedIndex,
			Correct:  i == q.CorrectAnswer,
		})
	}
	return qr
}

// answerAt reads the recorded answer for question index i, tolerating
// results shorter than the current question list.
func answerAt(answers []int, i int) int {
	if i < 0 || i >= len(answers) {
		return Skipped
	}
	return answers[i]
}

// Percentage computes the rounded score percentage.
func Percentage(score float64, totalMarks int) int {
	if totalMarks <= 0 {
		return 0
	}
	return int(math.Round(score / float64(totalMarks) * 100))
}

// Passed reports whether a score clears the fixed pass threshold.
func Passed(score float64, totalMarks int) bool {
	return Percentage(score, totalMarks) >= PassThreshold
}

// AttemptNumber returns the 1-based position of res among all results
// for the same (student, exam) pair ordered by submission time, plus
// the total attempt count. It is recomputed from the full result set on
// every call; document arrival order does not matter.
func AttemptNumber(all []model.Result, res model.Result) (attempt, total int) {
	var attempts []model.Result
	for _, r := range all {
		if r.StudentID == res.StudentID && r.ExamID == res.ExamID {
			attempts = append(attempts, r)
		}
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		if attempts[i].SubmittedAt.Equal(attempts[j].SubmittedAt) {
			return attempts[i].ID < attempts[j].ID
		}
		return attempts[i].SubmittedAt.Before(attempts[j].SubmittedAt)
	})
	for i, r := range attempts {
		if r.ID == res.ID {
			return i + 1, len(attempts)
		}
	}
	// The result under review is not part of the snapshot yet; count it
	// as the latest attempt.
	return len(attempts) + 1, len(attempts) + 1
}
