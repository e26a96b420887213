// Package remote is the remote document store the sync engine talks to:
// one document per user, read by id, written by whole-document upsert
// (last write wins).
package remote

import (
	"context"
	"time"

	"github.com/roach88/mydays/internal/state"
)

// Row is one remote document.
type Row struct {
	ID        string         `json:"id"`
	Owner     string         `json:"user_id"`
	Data      state.Document `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Remote reads and writes remote documents.
//
// Implemented by Client (HTTP) and Memory (in-process, for tests).
type Remote interface {
	// Fetch returns the row with the given id. A missing row is reported
	// with an error for which IsNotFound is true.
	Fetch(ctx context.Context, id string) (Row, error)

	// Upsert creates or overwrites the row.
	Upsert(ctx context.Context, row Row) error
}

// RowID returns the id of a user's state document.
func RowID(userID string) string {
	return "state_" + userID
}
