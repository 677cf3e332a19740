package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Postgres persists audit entries in the compliance_audit_log table. The
// table is append-only by convention and policy; rows are never updated, so
// a stored integrity hash that fails verification means out-of-band tampering.
type Postgres struct {
	db *sql.DB
}

// NewPostgres builds a Postgres-backed audit store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Append inserts one entry. A single INSERT keeps each append atomic.
func (s *Postgres) Append(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO compliance_audit_log (
			id, actor_id, action_type, resource_type, resource_id,
			network_origin, client_agent, notes, integrity_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.ActorID,
		string(e.ActionType),
		string(e.ResourceType),
		nullable(e.ResourceID),
		e.NetworkOrigin,
		e.ClientAgent,
		e.Notes,
		e.IntegrityHash,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns matching entries ordered by creation time.
func (s *Postgres) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(filter.ActorID))
	}
	if filter.ResourceType != "" {
		conds = append(conds, "resource_type = "+arg(string(filter.ResourceType)))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.To))
	}

	query := `
		SELECT id, actor_id, action_type, resource_type, resource_id,
		       network_origin, client_agent, notes, integrity_hash, created_at
		FROM compliance_audit_log
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			resourceID sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.ActorID, (*string)(&e.ActionType), (*string)(&e.ResourceType),
			&resourceID, &e.NetworkOrigin, &e.ClientAgent, &e.Notes,
			&e.IntegrityHash, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ResourceID = resourceID.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
