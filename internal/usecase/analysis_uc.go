package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"face-insight-backend/internal/domain"
	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/adapter"
	"face-insight-backend/internal/domain/ports/repository"
	"face-insight-backend/internal/infra/logging"
	"face-insight-backend/internal/infra/metrics"
	"face-insight-backend/internal/infra/worker"
)

// Compile-time check
var _ AnalysisUseCase = (*analysisUC)(nil)

// AnalysisUseCase owns the job lifecycle: it creates pending jobs, claims
// execution rights, drives the vision pipeline on the worker pool and
// commits the terminal state.
type AnalysisUseCase interface {
	Create(ctx context.Context, imagePaths []string) (*model.AnalysisJob, error)
	// Start claims the job and schedules the pipeline. It returns as soon as
	// the task is enqueued; callers poll Get for the outcome. Starting a
	// completed job is a no-op that returns the finished job.
	Start(ctx context.Context, id string) (*model.AnalysisJob, error)
	Get(ctx context.Context, id string) (*model.AnalysisJob, error)
	List(ctx context.Context, limit int) ([]*model.AnalysisJob, error)
}

type analysisUC struct {
	jobs   repository.AnalysisJobRepository
	vision adapter.VisionEngine
	pool   *worker.Pool
	log    *zerolog.Logger
}

func NewAnalysisUseCase(jobs repository.AnalysisJobRepository, vision adapter.VisionEngine, pool *worker.Pool, logger *zerolog.Logger) *analysisUC {
	l := logger.With().Str("component", "AnalysisUC").Logger()
	return &analysisUC{jobs: jobs, vision: vision, pool: pool, log: &l}
}

func (u *analysisUC) Create(ctx context.Context, imagePaths []string) (*model.AnalysisJob, error) {
	cleaned := make([]string, 0, len(imagePaths))
	for _, p := range imagePaths {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, domain.ErrInvalidManifest
	}

	job := model.NewAnalysisJob(uuid.NewString(), cleaned)
	if err := u.jobs.Create(ctx, nil, job); err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", job.ID).Int("images", len(cleaned)).Msg("job created")
	return job, nil
}

func (u *analysisUC) Start(ctx context.Context, id string) (*model.AnalysisJob, error) {
	defer logging.TraceDuration(u.log, "AnalysisUC.Start")()

	job, err := u.jobs.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	// Terminal success is idempotent: report the finished job, never re-run.
	if job.Status == model.JobStatusCompleted {
		return job, nil
	}

	claimed, err := u.jobs.TryClaim(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrJobCompleted) {
			// lost the race to a completing run; report success
			return u.jobs.FindByID(ctx, nil, id)
		}
		return nil, err
	}

	if err := u.pool.Submit(func(taskCtx context.Context) error {
		u.runPipeline(taskCtx, claimed)
		return nil
	}); err != nil {
		// Release the claim so the job stays restartable.
		reason := fmt.Sprintf("could not schedule pipeline: %v", err)
		if cerr := u.jobs.CommitFailure(ctx, id, reason); cerr != nil {
			u.log.Error().Err(cerr).Str("job_id", id).Msg("failed to release claim")
		}
		return nil, fmt.Errorf("schedule pipeline: %w", err)
	}

	u.log.Info().Str("job_id", id).Int("images", len(claimed.ImagePaths)).Msg("job started")
	return claimed, nil
}

func (u *analysisUC) Get(ctx context.Context, id string) (*model.AnalysisJob, error) {
	return u.jobs.FindByID(ctx, nil, id)
}

func (u *analysisUC) List(ctx context.Context, limit int) ([]*model.AnalysisJob, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return u.jobs.List(ctx, nil, limit)
}

// runPipeline executes one claimed job off the request path. Per-image
// trouble (missing file, unreadable image, inference error) is logged and
// skipped; only an unusable engine fails the job. Commits use a background
// context so a dying task context cannot strand a claimed job.
func (u *analysisUC) runPipeline(ctx context.Context, job *model.AnalysisJob) {
	ctx = logging.WithJobID(ctx, job.ID)
	log := *logging.With(ctx, u.log)
	start := time.Now()

	if err := u.vision.Warmup(ctx); err != nil {
		log.Error().Err(err).Msg("vision engine unavailable")
		metrics.IncAnalysisJob(string(model.JobStatusFailed))
		u.commitFailure(job.ID, fmt.Sprintf("vision engine unavailable: %v", err), &log)
		return
	}

	agg := model.NewAggregate()
	skipped := 0
	for _, path := range job.ImagePaths {
		if _, err := os.Stat(path); err != nil {
			log.Warn().Str("image", path).Msg("image not found, skipping")
			metrics.IncImageSkip("missing")
			skipped++
			continue
		}

		inferStart := time.Now()
		faces, err := u.vision.Infer(ctx, path)
		metrics.ObserveInferenceLatency(time.Since(inferStart).Milliseconds())
		if err != nil {
			log.Warn().Err(err).Str("image", path).Msg("inference failed, skipping")
			metrics.IncImageSkip("inference_error")
			skipped++
			continue
		}

		agg.Fold(faces)
	}

	metrics.AddFacesDetected(agg.TotalFaces)
	metrics.IncAnalysisJob(string(model.JobStatusCompleted))
	if err := u.jobs.CommitSuccess(context.Background(), job.ID, agg); err != nil {
		log.Error().Err(err).Msg("commit success failed")
		return
	}
	log.Info().
		Int("total_faces", agg.TotalFaces).
		Int("skipped_images", skipped).
		Dur("duration", time.Since(start)).
		Msg("job completed")
}

func (u *analysisUC) commitFailure(id, reason string, log *zerolog.Logger) {
	if err := u.jobs.CommitFailure(context.Background(), id, reason); err != nil {
		log.Error().Err(err).Msg("commit failure failed")
	}
}
