package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchKind is the operation type of one batch entry.
type BatchKind string

const (
	BatchCreate BatchKind = "create"
	BatchUpdate BatchKind = "update"
	BatchDelete BatchKind = "delete"
)

// BatchOp is one entry in an all-or-nothing multi-document write.
type BatchOp struct {
	Kind       BatchKind
	Collection string
	ID         string         // unused for create
	Data       map[string]any // unused for delete
}

// RunBatch applies all ops inside a single transaction. Either every
// op applies or none do; partial success is never observable. Each
// touched collection gets one change notification after commit.
func (s *Store) RunBatch(ops []BatchOp) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	touched := make(map[string]bool)
	for i, op := range ops {
		switch op.Kind {
		case BatchCreate:
			id := uuid.NewString()
			body, err := encodeBody(id, op.Data)
			if err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
			now := time.Now()
			if _, err := tx.Exec(
				`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				op.Collection, id, body, now, now,
			); err != nil {
				return fmt.Errorf("batch op %d: create in %s: %w", i, op.Collection, err)
			}
		case BatchUpdate:
			if err := updateInTx(tx, op.Collection, op.ID, op.Data); err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
		case BatchDelete:
			if _, err := tx.Exec(
				`DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID,
			); err != nil {
				return fmt.Errorf("batch op %d: delete %s/%s: %w", i, op.Collection, op.ID, err)
			}
		default:
			return fmt.Errorf("batch op %d: unknown kind %q", i, op.Kind)
		}
		touched[op.Collection] = true
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	for collection := range touched {
		s.notify(collection)
	}
	return nil
}
