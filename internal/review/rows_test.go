package review

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/classdesk/classdesk/internal/model"
)

func sampleRows() []Row {
	t1 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	results := []model.Result{
		{ID: "r1", ExamID: "e1", StudentID: "s1", Score: 8, TotalMarks: 10, TimeTakenSeconds: 300, SubmittedAt: t1},
		{ID: "r2", ExamID: "e1", StudentID: "s2", Score: 3, TotalMarks: 10, SubmittedAt: t1.Add(time.Hour)},
		{ID: "r3", ExamID: "e2", StudentID: "s1", Score: 5, TotalMarks: 10, SubmittedAt: t1.Add(2 * time.Hour), IsHidden: true},
		{ID: "r4", ExamID: "e1", StudentID: "ghost", Score: 1, TotalMarks: 10, SubmittedAt: t1.Add(3 * time.Hour)},
	}
	exams := []model.Exam{
		{ID: "e1", Title: "Math Final"},
		{ID: "e2", Title: "Physics Quiz"},
	}
	users := []model.UserProfile{
		{ID: "s1", Name: "Asha Rao", Email: "asha@example.com", Class: "10", Division: "A"},
		{ID: "s2", Name: "Ben Cole", Email: "ben@example.com", Class: "10", Division: "B"},
	}
	return BuildRows(results, exams, users)
}

func TestBuildRowsJoin(t *testing.T) {
	rows := sampleRows()
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].Student == nil || rows[0].Student.Name != "Asha Rao" {
		t.Errorf("expected joined student for r1, got %+v", rows[0].Student)
	}
	if rows[0].ExamTitle != "Math Final" {
		t.Errorf("expected exam title, got %q", rows[0].ExamTitle)
	}
	// Best-effort join: unknown student yields a row with no profile.
	if rows[3].Student != nil {
		t.Errorf("expected nil student for unknown id, got %+v", rows[3].Student)
	}
}

func TestFilterRows(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"hidden excluded by default", Filter{}, []string{"r4", "r2", "r1"}},
		{"include hidden", Filter{IncludeHidden: true}, []string{"r4", "r3", "r2", "r1"}},
		{"by exam", Filter{ExamID: "e2", IncludeHidden: true}, []string{"r3"}},
		{"by division", Filter{Division: "B"}, []string{"r2"}},
		{"by query name", Filter{Query: "asha"}, []string{"r1"}},
		{"by query email", Filter{Query: "ben@"}, []string{"r2"}},
		{"class filter drops unjoined rows", Filter{Class: "10"}, []string{"r2", "r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRows(rows, tt.filter)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.Result.ID)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Fatalf("got %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	rows := FilterRows(sampleRows(), Filter{ExamID: "e1", Query: "asha"})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 record, got %d lines", len(records))
	}

	header := records[0]
	want := []string{
		"Student Name", "Email", "ID", "Class", "Division", "Exam Title",
		"Score", "Total Marks", "Percentage", "Time Taken(s)", "Date", "Status",
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want[i])
		}
	}

	rec := records[1]
	if rec[0] != "Asha Rao" || rec[1] != "asha@example.com" || rec[5] != "Math Final" {
		t.Errorf("unexpected record: %v", rec)
	}
	if rec[6] != "8" || rec[7] != "10" || rec[8] != "80" || rec[11] != "Passed" {
		t.Errorf("unexpected score columns: %v", rec)
	}
	// The date format contains a comma; encoding/csv must have quoted
	// it so the record still reads back as 12 fields.
	if len(rec) != 12 {
		t.Errorf("expected 12 fields, got %d", len(rec))
	}
	if !strings.Contains(rec[10], "2024") {
		t.Errorf("unexpected date column: %q", rec[10])
	}
}
