// Package audit records privileged operator actions. Entries are
// append-only: nothing in the normal flow mutates or deletes them.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents a record stored in audit_logs.
type Entry struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Recorder appends audit entries. Satisfied by Logger.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Logger writes records into audit_logs.
type Logger struct {
	pool *pgxpool.Pool
}

var _ Recorder = (*Logger)(nil)

// NewLogger returns a new Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Record persists the log entry. The write detaches from request
// cancellation: a client abort mid-flight must not drop the entry.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, err = l.pool.Exec(writeCtx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, at)
	return err
}
