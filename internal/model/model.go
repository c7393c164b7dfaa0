package model

import (
	"context"
	"time"
)

// Collection names used with the document store.
const (
	CollectionExams        = "exams"
	CollectionResults      = "results"
	CollectionUsers        = "users"
	CollectionNotices      = "notices"
	CollectionResources    = "resources"
	CollectionHelpRequests = "help_requests"
	CollectionClassGroups  = "class_groups"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// QuestionType classifies how a question is answered.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple-choice"
	TypeTrueFalse      QuestionType = "true-false"
	TypeShortAnswer    QuestionType = "short-answer"
)

// TrueFalseOptions is the fixed option set for true-false questions.
func TrueFalseOptions() []string { return []string{"True", "False"} }

// Question is one assessable item in an exam.
type Question struct {
	ID                string       `json:"id"`
	Type              QuestionType `json:"type"`
	Text              string       `json:"text"`
	Options           []string     `json:"options"`
	CorrectAnswer     int          `json:"correctAnswer"`
	CorrectAnswerText string       `json:"correctAnswerText,omitempty"`
}

// ApplyType switches the question type and resets options and the
// correct answer to the new type's canonical defaults. True-false
// always gets exactly ["True","False"], short-answer an empty set.
func (q *Question) ApplyType(t QuestionType) {
	if q.Type == t {
		return
	}
	q.Type = t
	q.CorrectAnswer = 0
	switch t {
	case TypeTrueFalse:
		q.Options = TrueFalseOptions()
	case TypeShortAnswer:
		q.Options = []string{}
	default:
		q.Options = []string{"", "", "", ""}
	}
}

// Difficulty represents exam difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Exam is a named collection of questions plus delivery policy.
type Exam struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions"`
	QuestionCount    int        `json:"questionCount"`
	DurationMinutes  int        `json:"durationMinutes"`
	TotalMarks       int        `json:"totalMarks"`
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	MaxAttempts      int        `json:"maxAttempts"` // 0 = unlimited
	NegativeMarking  float64    `json:"negativeMarking"`
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	ScheduledDate    *time.Time `json:"scheduledDate,omitempty"`
	IsPublished      bool       `json:"isPublished"`
	TargetClass      string     `json:"targetClass,omitempty"`
	TargetDivision   string     `json:"targetDivision,omitempty"`
	CreatedBy        string     `json:"createdBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt,omitempty"`
}

// Recount refreshes the derived question count. Called on every save;
// the stored value is a cache, never an independent source of truth.
func (e *Exam) Recount() {
	e.QuestionCount = len(e.Questions)
}

// Result is one student's completed attempt at one exam. Results are
// created by the student-facing app; this service only reads them,
// overrides scores, and toggles visibility.
type Result struct {
	ID               string    `json:"id"`
	ExamID           string    `json:"examId"`
	StudentID        string    `json:"studentId"`
	Score            float64   `json:"score"`
	TotalMarks       int       `json:"totalMarks"`
	Answers          []int     `json:"answers"` // -1 = skipped
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	SubmittedAt      time.Time `json:"submittedAt"`
	IsHidden         bool      `json:"isHidden"`
}

// UserProfile is a roster entry.
type UserProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         UserRole  `json:"role"`
	Class        string    `json:"class,omitempty"`
	Division     string    `json:"division,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Notice is an announcement shown on the dashboard.
type Notice struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	TargetClass    string    `json:"targetClass,omitempty"`
	TargetDivision string    `json:"targetDivision,omitempty"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// Resource is distributed study material backed by an uploaded file.
type Resource struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	URL            string    `json:"url"`
	TargetClass    string    `json:"targetClass,omitempty"`
	TargetDivision string    `json:"targetDivision,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// HelpRequestStatus tracks a support ticket through its lifecycle.
type HelpRequestStatus string

const (
	HelpRequestOpen     HelpRequestStatus = "open"
	HelpRequestResolved HelpRequestStatus = "resolved"
)

// HelpRequest is a support ticket from a student or teacher.
type HelpRequest struct {
	ID        string            `json:"id"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	FromID    string            `json:"fromId,omitempty"`
	FromEmail string            `json:"fromEmail,omitempty"`
	Status    HelpRequestStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt,omitempty"`
}

// ClassGroup is an audience-targeting taxonomy entry, e.g. "Grade 10"
// with divisions ["A", "B"].
type ClassGroup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Divisions []string `json:"divisions,omitempty"`
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	Addr          string
	Lang          string
	MediaURL      string
	MediaKey      string
	SecureCookies bool
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *UserProfile) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *UserProfile {
	u, _ := ctx.Value(userCtxKey{}).(*UserProfile)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
