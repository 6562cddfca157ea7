package repository

import (
	"context"

	"face-insight-backend/internal/domain/model"
)

type AnalysisJobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.AnalysisJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.AnalysisJob, error)
	// List returns jobs ordered newest-first.
	List(ctx context.Context, tx Tx, limit int) ([]*model.AnalysisJob, error)

	// TryClaim atomically transitions a pending or failed job to 'processing'
	// and returns the claimed job. It is a single compare-and-swap, never a
	// read-then-write: under concurrent callers exactly one wins. Losers get
	// ErrJobInFlight (live claim), ErrJobCompleted (terminal) or ErrNotFound.
	TryClaim(ctx context.Context, id string) (*model.AnalysisJob, error)

	// CommitSuccess transitions 'processing' -> 'completed' and stores the
	// aggregate. Returns ErrJobNotClaimed if the job is not processing.
	CommitSuccess(ctx context.Context, id string, agg *model.Aggregate) error

	// CommitFailure transitions 'processing' -> 'failed' with the reason.
	CommitFailure(ctx context.Context, id string, reason string) error
}
