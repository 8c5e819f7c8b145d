// Package repository stores pipeline boards in PostgreSQL. It implements the
// engine's ports (persistence, reason lookup, audit sink, task store) plus the
// read and management queries used by the HTTP layer.
package repository

import (
	"encoding/json"

	"pipeline_board_backend/internal/pipeline/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// rowScanner is satisfied by pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullableUUID stores uuid.Nil as SQL NULL.
func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decodeJSON[T any](raw []byte, fallback T) T {
	if len(raw) == 0 {
		return fallback
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return fallback
	}
	return out
}

var (
	_ ports.Persistence  = (*Repository)(nil)
	_ ports.ReasonLookup = (*Repository)(nil)
	_ ports.AuditSink    = (*Repository)(nil)
	_ ports.TaskStore    = (*Repository)(nil)
)
