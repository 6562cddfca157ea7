package repository

import (
	"context"

	"face-insight-backend/internal/domain/model"
)

type ChatLogRepository interface {
	Save(ctx context.Context, tx Tx, ex *model.ChatExchange) error
	// ListByJob returns exchanges for a job ordered oldest-first.
	ListByJob(ctx context.Context, tx Tx, jobID string) ([]*model.ChatExchange, error)
}
