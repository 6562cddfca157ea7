package redis

import (
	"context"
	"encoding/json"
	"time"

	"face-insight-backend/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

// ResultCache keeps completed jobs (with their aggregates) hot for status
// polling. Best-effort: a cache failure never surfaces to callers.
type ResultCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewResultCache(client RedisClient, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func key(jobID string) string { return "analysis_result:" + jobID }

func (c *ResultCache) StoreResult(ctx context.Context, job *model.AnalysisJob) error {
	if job.Status != model.JobStatusCompleted {
		return nil
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(job.ID), data, c.ttl)
}

// GetResult returns (nil, nil) on a cache miss.
func (c *ResultCache) GetResult(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	data, err := c.client.Get(ctx, key(jobID))
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var job model.AnalysisJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *ResultCache) Delete(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, key(jobID))
}
