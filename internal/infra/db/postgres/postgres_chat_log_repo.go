package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/repository"
)

var _ repository.ChatLogRepository = (*ChatLogRepo)(nil)

type ChatLogRepo struct {
	pool *pgxpool.Pool
}

func NewChatLogRepo(pool *pgxpool.Pool) *ChatLogRepo {
	return &ChatLogRepo{pool: pool}
}

func (r *ChatLogRepo) Save(ctx context.Context, tx repository.Tx, exch *model.ChatExchange) error {
	if exch.ID == "" {
		exch.ID = ulid.Make().String()
	}

	const q = `
INSERT INTO chat_logs (id, job_id, question, answer, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, NOW()));`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, exch.ID, exch.JobID, exch.Question, exch.Answer, exch.CreatedAt); err != nil {
		return fmt.Errorf("save chat exchange: %w", err)
	}
	return nil
}

func (r *ChatLogRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.ChatExchange, error) {
	const q = `
SELECT id, job_id, question, answer, created_at
  FROM chat_logs
 WHERE job_id = $1
 ORDER BY created_at ASC;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("list chat exchanges: %w", err)
	}
	defer rows.Close()

	var out []*model.ChatExchange
	for rows.Next() {
		var e model.ChatExchange
		if err := rows.Scan(&e.ID, &e.JobID, &e.Question, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat exchange: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
