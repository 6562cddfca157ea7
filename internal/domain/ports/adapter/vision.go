package adapter

import (
	"context"

	"face-insight-backend/internal/domain/model"
)

// VisionEngine is the port for face detection and classification. Any engine
// returning records in the fixed label vocabulary (male/female, 10s/20s/30s/
// 40_plus) is substitutable; label mapping from raw model output is the
// engine's responsibility.
type VisionEngine interface {
	// Warmup loads or connects the underlying models. Engines are heavyweight
	// and lazily initialized; implementations must make Warmup idempotent and
	// cheap after the first call. A warmup failure is fatal for any job that
	// needs the engine.
	Warmup(ctx context.Context) error

	// Infer returns zero or more face records for one image.
	Infer(ctx context.Context, imagePath string) ([]model.FaceRecord, error)
}
