package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements the timeline query on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow returns audit rows, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT occurred_at, actor_id, action, entity, entity_id, meta
		 FROM audit_logs
		 WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		   AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		   AND ($3::text IS NULL OR actor_id = $3)
		   AND ($4::text IS NULL OR entity = $4)
		   AND ($5::text IS NULL OR action = $5)
		 ORDER BY occurred_at DESC
		 OFFSET $6 LIMIT $7`,
		toPgTime(filters.From), toPgTime(filters.To),
		optionalText(filters.Actor), optionalText(filters.Entity), optionalText(filters.Action),
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
