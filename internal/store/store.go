// Package store is the shared persistence boundary for jobs,
// executions and encryption profiles. The execution core treats it as
// an opaque datastore; the Running count and the Pending→Running claim
// both live here so multiple queue managers stay consistent.
package store

import (
	"context"
	"errors"

	"github.com/semmidev/custos/internal/domain"
)

var ErrNotFound = errors.New("record not found")

type Store interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	PutJob(ctx context.Context, job *domain.Job) error

	CreateExecution(ctx context.Context, exec *domain.Execution) error
	UpdateExecution(ctx context.Context, exec *domain.Execution) error
	GetExecution(ctx context.Context, id string) (*domain.Execution, error)

	// CountRunning derives the concurrency counter from shared state,
	// never from in-process bookkeeping.
	CountRunning(ctx context.Context) (int, error)

	// ListPending returns up to limit Pending executions, ordered by
	// creation time ascending with id as tiebreaker (strict FIFO).
	ListPending(ctx context.Context, limit int) ([]*domain.Execution, error)

	// ClaimPending transitions an execution Pending→Running iff it is
	// still Pending. It returns false when the claim was lost to a
	// concurrent sweep. This is the single writer for that transition.
	ClaimPending(ctx context.Context, id string) (bool, error)

	CreateProfile(ctx context.Context, profile *domain.EncryptionProfile) error
	GetProfile(ctx context.Context, id string) (*domain.EncryptionProfile, error)
	ListProfiles(ctx context.Context) ([]*domain.EncryptionProfile, error)
	DeleteProfile(ctx context.Context, id string) error
}
