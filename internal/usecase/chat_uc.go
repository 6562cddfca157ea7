package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"face-insight-backend/internal/domain"
	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/adapter"
	"face-insight-backend/internal/domain/ports/repository"
	"face-insight-backend/internal/infra/logging"
)

var _ ChatUseCase = (*chatUC)(nil)

// ChatUseCase answers natural-language questions about a completed job's
// aggregate and keeps the exchange history.
type ChatUseCase interface {
	Ask(ctx context.Context, jobID, question string) (*model.ChatExchange, error)
	History(ctx context.Context, jobID string) ([]*model.ChatExchange, error)
	Summary(ctx context.Context, jobID string) (string, error)
}

const summaryQuestion = "Briefly summarize this analysis result, including the total number of people, the gender ratio, and the age distribution."

type chatUC struct {
	jobs     repository.AnalysisJobRepository
	logs     repository.ChatLogRepository
	answerer adapter.AnswerService
	log      *zerolog.Logger
}

func NewChatUseCase(jobs repository.AnalysisJobRepository, logs repository.ChatLogRepository, answerer adapter.AnswerService, logger *zerolog.Logger) *chatUC {
	l := logger.With().Str("component", "ChatUC").Logger()
	return &chatUC{jobs: jobs, logs: logs, answerer: answerer, log: &l}
}

func (c *chatUC) Ask(ctx context.Context, jobID, question string) (*model.ChatExchange, error) {
	defer logging.TraceDuration(c.log, "ChatUC.Ask")()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrInvalidArgument
	}

	agg, err := c.completedAggregate(ctx, jobID)
	if err != nil {
		return nil, err
	}

	answer, err := c.answerer.Answer(ctx, agg, question)
	if err != nil {
		return nil, err
	}

	exch := &model.ChatExchange{
		ID:        ulid.Make().String(),
		JobID:     jobID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	if err := c.logs.Save(ctx, nil, exch); err != nil {
		return nil, err
	}
	return exch, nil
}

func (c *chatUC) History(ctx context.Context, jobID string) ([]*model.ChatExchange, error) {
	if _, err := c.jobs.FindByID(ctx, nil, jobID); err != nil {
		return nil, err
	}
	return c.logs.ListByJob(ctx, nil, jobID)
}

// Summary runs a canned question through the answer service without logging
// an exchange.
func (c *chatUC) Summary(ctx context.Context, jobID string) (string, error) {
	agg, err := c.completedAggregate(ctx, jobID)
	if err != nil {
		return "", err
	}
	return c.answerer.Answer(ctx, agg, summaryQuestion)
}

func (c *chatUC) completedAggregate(ctx context.Context, jobID string) (*model.Aggregate, error) {
	job, err := c.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted || job.Aggregate == nil {
		return nil, domain.ErrJobNotCompleted
	}
	return job.Aggregate, nil
}
