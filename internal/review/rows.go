package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/classdesk/classdesk/internal/model"
)

// Row is one result joined with its student profile and exam title.
// The join is best-effort over independently arriving snapshots:
// Student and ExamTitle may be empty when the matching documents have
// not been seen (or no longer exist).
type Row struct {
	Result    model.Result       `json:"result"`
	Student   *model.UserProfile `json:"student,omitempty"`
	ExamTitle string             `json:"examTitle,omitempty"`
}

// BuildRows joins results with user profiles and exam titles.
func BuildRows(results []model.Result, exams []model.Exam, users []model.UserProfile) []Row {
	usersByID := make(map[string]model.UserProfile, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}
	titles := make(map[string]string, len(exams))
	for _, e := range exams {
		titles[e.ID] = e.Title
	}

	rows := make([]Row, 0, len(results))
	for _, r := range results {
		row := Row{Result: r, ExamTitle: titles[r.ExamID]}
		if u, ok := usersByID[r.StudentID]; ok {
			row.Student = &u
		}
		rows = append(rows, row)
	}
	return rows
}

// Filter selects rows; zero values mean "no restriction".
type Filter struct {
	ExamID        string
	Class         string
	Division      string
	IncludeHidden bool
	Query         string // matches student name or email, case-insensitive
}

// FilterRows returns the rows matching f, newest submission first.
func FilterRows(rows []Row, f Filter) []Row {
	var out []Row
	q := strings.ToLower(strings.TrimSpace(f.Query))
	for _, row := range rows {
		if row.Result.IsHidden && !f.IncludeHidden {
			continue
		}
		if f.ExamID != "" && row.Result.ExamID != f.ExamID {
			continue
		}
		if f.Class != "" && (row.Student == nil || row.Student.Class != f.Class) {
			continue
		}
		if f.Division != "" && (row.Student == nil || row.Student.Division != f.Division) {
			continue
		}
		if q != "" {
			if row.Student == nil {
				continue
			}
			name := strings.ToLower(row.Student.Name)
			email := strings.ToLower(row.Student.Email)
			if !strings.Contains(name, q) && !strings.Contains(email, q) {
				continue
			}
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Result.SubmittedAt.After(out[j].Result.SubmittedAt)
	})
	return out
}

// csvHeader is the fixed column order of the results export.
var csvHeader = []string{
	"Student Name", "Email", "ID", "Class", "Division", "Exam Title",
	"Score", "Total Marks", "Percentage", "Time Taken(s)", "Date", "Status",
}

// WriteCSV writes one line per row in the fixed export column order.
// Field escaping is left to encoding/csv, which quote-escapes anything
// that needs it, commas in dates included.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		var name, email, class, division string
		if row.Student != nil {
			name = row.Student.Name
			email = row.Student.Email
			class = row.Student.Class
			division = row.Student.Division
		}
		pct := Percentage(row.Result.Score, row.Result.TotalMarks)
		status := "Failed"
		if pct >= PassThreshold {
			status = "Passed"
		}
		record := []string{
			name,
			email,
			row.Result.StudentID,
			class,
			division,
			row.ExamTitle,
			fmt.Sprintf("%g", row.Result.Score),
			fmt.Sprintf("%d", row.Result.TotalMarks),
			fmt.Sprintf("%d", pct),
			fmt.Sprintf("%d", row.Result.TimeTakenSeconds),
			row.Result.SubmittedAt.Format("Jan 2, 2006 3:04 PM"),
			status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
