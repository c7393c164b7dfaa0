package store

import (
	"errors"
	"testing"

	"github.com/classdesk/classdesk/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestNotice(t *testing.T, s *Store, title string) string {
	t.Helper()
	id, err := s.Create(model.CollectionNotices, map[string]any{
		"title": title,
		"body":  "body of " + title,
	})
	if err != nil {
		t.Fatalf("createTestNotice: %v", err)
	}
	return id
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.Count(model.CollectionNotices)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 documents, got %d", count)
	}

	id := createTestNotice(t, s, "Welcome")
	if id == "" {
		t.Fatal("expected a generated id")
	}

	doc, err := s.Get(model.CollectionNotices, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	notice, err := Decode[model.Notice](doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if notice.ID != id {
		t.Errorf("expected id %q in body, got %q", id, notice.ID)
	}
	if notice.Title != "Welcome" {
		t.Errorf("expected title 'Welcome', got %q", notice.Title)
	}

	// Not found.
	_, err = s.Get(model.CollectionNotices, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Shallow merge update.
	if err := s.Update(model.CollectionNotices, id, map[string]any{"title": "Updated"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, _ = s.Get(model.CollectionNotices, id)
	notice, _ = Decode[model.Notice](doc)
	if notice.Title != "Updated" {
		t.Errorf("expected updated title, got %q", notice.Title)
	}
	if notice.Body != "body of Welcome" {
		t.Errorf("untouched field was lost: %q", notice.Body)
	}

	// Update of a missing document fails.
	err = s.Update(model.CollectionNotices, "missing", map[string]any{"title": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Delete is idempotent.
	if err := s.Delete(model.CollectionNotices, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(model.CollectionNotices, id); err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	count, _ = s.Count(model.CollectionNotices)
	if count != 0 {
		t.Errorf("expected empty collection after delete, got %d", count)
	}
}

func TestListInsertionOrderAndIsolation(t *testing.T) {
	s := newTestStore(t)

	first := createTestNotice(t, s, "first")
	second := createTestNotice(t, s, "second")
	if _, err := s.Create(model.CollectionResources, map[string]any{"title": "other collection"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	docs, err := s.List(model.CollectionNotices)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != first || docs[1].ID != second {
		t.Errorf("unexpected order: %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	exam := model.Exam{
		Title:      "Midterm",
		TotalMarks: 50,
		Questions: []model.Question{
			{ID: "q1", Type: model.TypeMultipleChoice, Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
		},
	}
	exam.Recount()

	data, err := Encode(exam)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	id, err := s.Create(model.CollectionExams, data)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	doc, err := s.Get(model.CollectionExams, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := Decode[model.Exam](doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Title != "Midterm" || got.QuestionCount != 1 || len(got.Questions) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Questions[0].CorrectAnswer != 1 {
		t.Errorf("nested question lost: %+v", got.Questions[0])
	}
}

func TestRunBatchAllOrNothing(t *testing.T) {
	s := newTestStore(t)

	a := createTestNotice(t, s, "a")
	b := createTestNotice(t, s, "b")

	// A batch touching a missing document must apply nothing.
	err := s.RunBatch([]BatchOp{
		{Kind: BatchDelete, Collection: model.CollectionNotices, ID: a},
		{Kind: BatchUpdate, Collection: model.CollectionNotices, ID: "missing", Data: map[string]any{"title": "x"}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from batch, got %v", err)
	}
	if _, err := s.Get(model.CollectionNotices, a); err != nil {
		t.Errorf("document a should survive a failed batch: %v", err)
	}

	// A valid batch applies every op.
	err = s.RunBatch([]BatchOp{
		{Kind: BatchUpdate, Collection: model.CollectionNotices, ID: a, Data: map[string]any{"title": "a2"}},
		{Kind: BatchDelete, Collection: model.CollectionNotices, ID: b},
		{Kind: BatchCreate, Collection: model.CollectionNotices, Data: map[string]any{"title": "c"}},
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	docs, _ := s.List(model.CollectionNotices)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents after batch, got %d", len(docs))
	}
	doc, _ := s.Get(model.CollectionNotices, a)
	notice, _ := Decode[model.Notice](doc)
	if notice.Title != "a2" {
		t.Errorf("batch update not applied: %q", notice.Title)
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	s := newTestStore(t)
	createTestNotice(t, s, "existing")

	var snapshots [][]Document
	unsub := s.Subscribe(model.CollectionNotices,
		func(docs []Document) { snapshots = append(snapshots, docs) },
		func(err error) { t.Errorf("unexpected subscription error: %v", err) },
	)
	defer unsub()

	// Initial snapshot arrives on subscribe.
	if len(snapshots) != 1 || len(snapshots[0]) != 1 {
		t.Fatalf("expected initial snapshot with 1 document, got %v", snapshots)
	}

	createTestNotice(t, s, "second")
	if len(snapshots) != 2 || len(snapshots[1]) != 2 {
		t.Fatalf("expected full snapshot after create, got %d snapshots", len(snapshots))
	}

	// Writes to other collections do not notify this subscriber.
	if _, err := s.Create(model.CollectionResources, map[string]any{"title": "r"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(snapshots) != 2 {
		t.Errorf("unrelated collection write leaked into subscription")
	}

	// After unsubscribe, no further snapshots arrive.
	unsub()
	createTestNotice(t, s, "third")
	if len(snapshots) != 2 {
		t.Errorf("subscription fired after unsubscribe")
	}
}

func TestWatchKeepsTypedSnapshot(t *testing.T) {
	s := newTestStore(t)
	w := NewWatch[model.Notice](s, model.CollectionNotices)
	defer w.Close()

	if len(w.Snapshot()) != 0 {
		t.Fatalf("expected empty initial snapshot")
	}

	createTestNotice(t, s, "hello")
	snap := w.Snapshot()
	if len(snap) != 1 || snap[0].Title != "hello" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// Snapshot returns a copy; mutating it does not affect the watch.
	snap[0].Title = "mutated"
	if w.Snapshot()[0].Title != "hello" {
		t.Error("snapshot copy was not isolated")
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)

	token, err := s.CreateAuthSession("user-1")
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}
