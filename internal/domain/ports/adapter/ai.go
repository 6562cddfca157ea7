package adapter

import (
	"context"

	"face-insight-backend/internal/domain/model"
)

// AnswerService is the port for natural-language Q&A over a completed job's
// aggregate. Implementations must answer strictly from the provided
// statistics.
type AnswerService interface {
	Answer(ctx context.Context, agg *model.Aggregate, question string) (string, error)
}
