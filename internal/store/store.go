// Package store persists policies and run history. The engine only depends
// on the Repository interface; Memory backs tests and one-off CLI use, and
// Postgres backs scheduled deployments.
package store

import (
	"context"
	"errors"

	"github.com/joshsymonds/inboxsteward/internal/policy"
	"github.com/joshsymonds/inboxsteward/internal/run"
)

// ErrNotFound is returned when a policy or run does not exist.
var ErrNotFound = errors.New("not found")

// Repository stores cleanup policies and the audit trail of runs.
type Repository interface {
	SavePolicy(ctx context.Context, p *policy.Policy) error
	GetPolicy(ctx context.Context, id string) (*policy.Policy, error)
	ListPolicies(ctx context.Context, userID string) ([]*policy.Policy, error)
	DeletePolicy(ctx context.Context, id string) error

	SaveRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id string) (*run.Run, error)
	// ListRuns returns the user's runs newest first, at most limit of them.
	// A non-positive limit means no limit.
	ListRuns(ctx context.Context, userID string, limit int) ([]*run.Run, error)
	RunCount(ctx context.Context, userID string) (int, error)
}
