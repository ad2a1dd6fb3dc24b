package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Postgres driver, selected via sql.Open("postgres", dsn).
	_ "github.com/lib/pq"

	"github.com/joshsymonds/inboxsteward/internal/policy"
	"github.com/joshsymonds/inboxsteward/internal/run"
)

// Postgres implements Repository against PostgreSQL.
type Postgres struct{ db *sql.DB }

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// OpenPostgres connects, verifies the connection, and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) SavePolicy(ctx context.Context, p *policy.Policy) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("save policy: missing id")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode policy %s: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cleanup_policies (id, user_id, name, policy_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			policy_data = EXCLUDED.policy_data,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.UserID, p.Name, raw, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save policy %s: %w", p.ID, err)
	}
	return nil
}

func (s *Postgres) GetPolicy(ctx context.Context, id string) (*policy.Policy, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT policy_data FROM cleanup_policies WHERE id = $1`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get policy %s: %w", id, err)
	}
	var p policy.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", id, err)
	}
	return &p, nil
}

func (s *Postgres) ListPolicies(ctx context.Context, userID string) ([]*policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT policy_data FROM cleanup_policies WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []*policy.Policy
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		var p policy.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode policy: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return out, nil
}

func (s *Postgres) DeletePolicy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cleanup_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete policy %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete policy %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRun upserts the run document and rewrites its denormalized action
// rows in one transaction.
func (s *Postgres) SaveRun(ctx context.Context, r *run.Run) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save run: missing id")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", r.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cleanup_runs (id, user_id, policy_id, status, dry_run, run_data, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			run_data = EXCLUDED.run_data,
			completed_at = EXCLUDED.completed_at
	`, r.ID, r.UserID, r.PolicyID, r.Status, r.DryRun, raw, r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cleanup_actions WHERE run_id = $1`, r.ID); err != nil {
		return fmt.Errorf("save run %s actions: %w", r.ID, err)
	}
	for i := range r.Actions {
		a := &r.Actions[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cleanup_actions
				(run_id, message_id, thread_id, action_type, action_label, status,
				 error_message, executed_at, message_subject, message_from, message_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, r.ID, a.MessageID, a.ThreadID, a.ActionType, a.ActionLabel, a.Status,
			a.ErrorMessage, a.ExecutedAt, a.MessageSubject, a.MessageFrom, a.MessageDate)
		if err != nil {
			return fmt.Errorf("save run %s action %s: %w", r.ID, a.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

func (s *Postgres) GetRun(ctx context.Context, id string) (*run.Run, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT run_data FROM cleanup_runs WHERE id = $1`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var r run.Run
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &r, nil
}

func (s *Postgres) ListRuns(ctx context.Context, userID string, limit int) ([]*run.Run, error) {
	q := `SELECT run_data FROM cleanup_runs WHERE user_id = $1 ORDER BY started_at DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*run.Run
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var r run.Run
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

func (s *Postgres) RunCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cleanup_runs WHERE user_id = $1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

var _ Repository = (*Postgres)(nil)
