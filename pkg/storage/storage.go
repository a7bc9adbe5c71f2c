// Package storage archives the statement files behind committed imports.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown archive entries.
var ErrNotFound = errors.New("statement not found")

// StatementInfo describes one archived statement file.
type StatementInfo struct {
	ID           uuid.UUID `json:"id"`
	AccountID    string    `json:"account_id"`
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	BankID       string    `json:"bank_id,omitempty"`
	Fingerprint  string    `json:"fingerprint"` // header fingerprint
	Checksum     string    `json:"checksum"`    // sha256 of the file bytes
	Size         int64     `json:"size"`
	RowsImported int       `json:"rows_imported"`
	Path         string    `json:"path"` // Internal storage path
	CreatedAt    time.Time `json:"created_at"`
}

// Archive stores statement files per ledger account.
type Archive interface {
	// Store copies r into the archive and returns the saved metadata.
	Store(ctx context.Context, info StatementInfo, r io.Reader) (*StatementInfo, error)

	Open(ctx context.Context, accountID string, id uuid.UUID) (io.ReadCloser, *StatementInfo, error)

	GetInfo(ctx context.Context, accountID string, id uuid.UUID) (*StatementInfo, error)

	// List returns the account's statements, oldest first.
	List(ctx context.Context, accountID string) ([]*StatementInfo, error)

	// FindByChecksum returns the statement with identical bytes, if any.
	FindByChecksum(ctx context.Context, accountID, checksum string) (*StatementInfo, error)

	Delete(ctx context.Context, accountID string, id uuid.UUID) error
}
