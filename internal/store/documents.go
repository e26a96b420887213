package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored sync document. Data is the uncompressed JSON
// payload; compression is internal to the store.
type Document struct {
	ID        string
	Owner     string
	Data      []byte
	UpdatedAt time.Time
}

// ReadDocument returns the document with the given id, or ErrNotFound.
func (s *Store) ReadDocument(ctx context.Context, id string) (Document, error) {
	var (
		d         Document
		packed    []byte
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, data, updated_at FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Owner, &packed, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("read document %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("read document %q: %w", id, err)
	}

	d.Data, err = decompress(packed)
	if err != nil {
		return Document{}, fmt.Errorf("read document %q: %w", id, err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("read document %q: updated_at: %w", id, err)
	}
	return d, nil
}

// UpsertDocument writes d, overwriting any existing document with the same
// id. The last write wins; no merge is attempted.
func (s *Store) UpsertDocument(ctx context.Context, d Document) error {
	if d.ID == "" {
		return fmt.Errorf("upsert document: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, owner, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			data = excluded.data,
			updated_at = excluded.updated_at
	`,
		d.ID,
		d.Owner,
		compress(d.Data),
		d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert document %q: %w", d.ID, err)
	}
	return nil
}
