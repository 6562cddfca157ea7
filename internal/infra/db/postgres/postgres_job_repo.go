package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"face-insight-backend/internal/domain"
	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/repository"
	"face-insight-backend/internal/infra/redis"
)

var _ repository.AnalysisJobRepository = (*AnalysisJobRepo)(nil)

// AnalysisJobRepo persists analysis jobs. Completed jobs are mirrored into
// the result cache so status polling does not hit Postgres on every request.
type AnalysisJobRepo struct {
	pool  *pgxpool.Pool
	cache *redis.ResultCache
}

func NewAnalysisJobRepo(pool *pgxpool.Pool, cache *redis.ResultCache) *AnalysisJobRepo {
	return &AnalysisJobRepo{pool: pool, cache: cache}
}

const jobColumns = `id, image_paths, status, aggregate, failure_reason, created_at, updated_at`

func (r *AnalysisJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.AnalysisJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	paths, err := json.Marshal(job.ImagePaths)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	const q = `
INSERT INTO analysis_jobs (id, image_paths, status, failure_reason, created_at, updated_at)
VALUES ($1, $2, $3, '', COALESCE($4, NOW()), COALESCE($5, NOW()));`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, job.ID, paths, string(job.Status), job.CreatedAt, job.UpdatedAt); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *AnalysisJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AnalysisJob, error) {
	if r.cache != nil && tx == nil {
		if job, err := r.cache.GetResult(ctx, id); err == nil && job != nil {
			return job, nil
		}
	}

	q := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(ex.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if r.cache != nil && job.Status == model.JobStatusCompleted {
		_ = r.cache.StoreResult(ctx, job)
	}
	return job, nil
}

func (r *AnalysisJobRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.AnalysisJob, error) {
	q := `SELECT ` + jobColumns + ` FROM analysis_jobs ORDER BY created_at DESC LIMIT $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// TryClaim is a single conditional UPDATE, so concurrent callers on the same
// id race inside Postgres and exactly one observes a row change. The
// follow-up SELECT only classifies the loss; it takes no part in the claim.
func (r *AnalysisJobRepo) TryClaim(ctx context.Context, id string) (*model.AnalysisJob, error) {
	const q = `
UPDATE analysis_jobs
   SET status = 'processing', failure_reason = '', updated_at = NOW()
 WHERE id = $1 AND status IN ('pending', 'failed')
RETURNING ` + jobColumns + `;`

	job, err := scanJob(r.pool.QueryRow(ctx, q, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var status string
	if err := r.pool.QueryRow(ctx, `SELECT status FROM analysis_jobs WHERE id=$1;`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("classify claim miss: %w", err)
	}
	switch model.JobStatus(status) {
	case model.JobStatusProcessing:
		return nil, domain.ErrJobInFlight
	case model.JobStatusCompleted:
		return nil, domain.ErrJobCompleted
	default:
		// claimable again already: the claim was lost to a full cycle
		return nil, domain.ErrJobInFlight
	}
}

func (r *AnalysisJobRepo) CommitSuccess(ctx context.Context, id string, agg *model.Aggregate) error {
	if agg == nil {
		return domain.ErrInvalidArgument
	}
	blob, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}

	const q = `
UPDATE analysis_jobs
   SET status = 'completed', aggregate = $2, failure_reason = '', updated_at = NOW()
 WHERE id = $1 AND status = 'processing';`

	tag, err := r.pool.Exec(ctx, q, id, blob)
	if err != nil {
		return fmt.Errorf("commit success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotClaimed
	}

	if r.cache != nil {
		if job, err := r.fetchByID(ctx, id); err == nil {
			_ = r.cache.StoreResult(ctx, job)
		}
	}
	return nil
}

func (r *AnalysisJobRepo) CommitFailure(ctx context.Context, id string, reason string) error {
	const q = `
UPDATE analysis_jobs
   SET status = 'failed', failure_reason = $2, updated_at = NOW()
 WHERE id = $1 AND status = 'processing';`

	tag, err := r.pool.Exec(ctx, q, id, reason)
	if err != nil {
		return fmt.Errorf("commit failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotClaimed
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, id)
	}
	return nil
}

// fetchByID bypasses the cache.
func (r *AnalysisJobRepo) fetchByID(ctx context.Context, id string) (*model.AnalysisJob, error) {
	q := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id=$1;`
	return scanJob(r.pool.QueryRow(ctx, q, id))
}

func scanJob(row pgx.Row) (*model.AnalysisJob, error) {
	var (
		job       model.AnalysisJob
		statusStr string
		paths     []byte
		aggBlob   []byte
		updatedAt time.Time
	)
	err := row.Scan(&job.ID, &paths, &statusStr, &aggBlob, &job.FailureReason, &job.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Status = model.JobStatus(statusStr)
	job.UpdatedAt = updatedAt

	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &job.ImagePaths); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
	}
	if len(aggBlob) > 0 {
		var agg model.Aggregate
		if err := json.Unmarshal(aggBlob, &agg); err != nil {
			return nil, fmt.Errorf("decode aggregate: %w", err)
		}
		job.Aggregate = &agg
	}
	return &job, nil
}
