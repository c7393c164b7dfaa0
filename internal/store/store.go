// Package store is a document store over SQLite: schemaless JSON
// documents grouped into named collections, with all-or-nothing batch
// writes and per-collection subscriptions that deliver the full
// document set after every change.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a document id does not exist in the
// collection.
var ErrNotFound = errors.New("document not found")

// Document is one stored record. Data is the full JSON body including
// the "id" field.
type Document struct {
	ID   string
	Data json.RawMessage
}

type Store struct {
	db   *sql.DB
	subs *hub
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, subs: newHub()}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create stores a new document and returns its assigned id. Any "id"
// present in data is replaced by the store-assigned one.
func (s *Store) Create(collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	body, err := encodeBody(id, data)
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, body, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create document in %s: %w", collection, err)
	}
	s.notify(collection)
	return id, nil
}

// Update applies a shallow merge of partial onto the stored document.
// Fields absent from partial are left untouched.
func (s *Store) Update(collection, id string, partial map[string]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateInTx(tx, collection, id, partial); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	s.notify(collection)
	return nil
}

// Delete removes a document. Deleting an id that is already gone is
// not an error.
func (s *Store) Delete(collection, id string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	s.notify(collection)
	return nil
}

// Get returns a single document by id.
func (s *Store) Get(collection, id string) (Document, error) {
	var doc Document
	var data string
	err := s.db.QueryRow(
		`SELECT id, data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&doc.ID, &data)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	doc.Data = json.RawMessage(data)
	return doc, nil
}

// List returns all documents in a collection in insertion order.
func (s *Store) List(collection string) ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY created_at, id`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var doc Document
		var data string
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return nil, err
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count)
	return count, err
}

func updateInTx(tx *sql.Tx, collection, id string, partial map[string]any) error {
	var data string
	err := tx.QueryRow(
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read document %s/%s: %w", collection, id, err)
	}

	var merged map[string]any
	if err := json.Unmarshal([]byte(data), &merged); err != nil {
		return fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	for k, v := range partial {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	body, err := encodeBody(id, merged)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		body, time.Now(), collection, id,
	)
	if err != nil {
		return fmt.Errorf("write document %s/%s: %w", collection, id, err)
	}
	return nil
}

func encodeBody(id string, data map[string]any) (string, error) {
	copied := make(map[string]any, len(data)+1)
	for k, v := range data {
		copied[k] = v
	}
	copied["id"] = id
	body, err := json.Marshal(copied)
	if err != nil {
		return "", fmt.Errorf("encode document body: %w", err)
	}
	return string(body), nil
}

// Encode converts a typed entity into the map form the write methods
// take, going through its JSON representation.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	return m, nil
}

// Decode unmarshals a document body into a typed entity.
func Decode[T any](doc Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return v, nil
}

// DecodeAll unmarshals every document in a snapshot.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
