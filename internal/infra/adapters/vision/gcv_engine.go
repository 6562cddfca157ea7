package vision

import (
	"context"
	"fmt"
	"os"
	"sync"

	gcv "cloud.google.com/go/vision/apiv1"
	"github.com/rs/zerolog"

	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/adapter"
)

var _ adapter.VisionEngine = (*GCVEngine)(nil)

// GCVEngine runs face detection through Google Cloud Vision. The API does
// not classify gender or age, so records carry empty labels: detected faces
// count toward the total while leaving every demographic bucket untouched.
// Useful as a drop-in engine where the torch sidecar is not deployed.
type GCVEngine struct {
	maxFaces int
	log      *zerolog.Logger

	initOnce sync.Once
	client   *gcv.ImageAnnotatorClient
	initErr  error
}

func NewGCVEngine(maxFaces int, logger *zerolog.Logger) *GCVEngine {
	l := logger.With().Str("component", "GCVEngine").Logger()
	return &GCVEngine{maxFaces: maxFaces, log: &l}
}

// Warmup dials the annotator client once; credentials come from the ambient
// application-default chain.
func (e *GCVEngine) Warmup(ctx context.Context) error {
	e.initOnce.Do(func() {
		client, err := gcv.NewImageAnnotatorClient(ctx)
		if err != nil {
			e.initErr = fmt.Errorf("vision client: %w", err)
			return
		}
		e.client = client
		e.log.Info().Msg("cloud vision client ready")
	})
	return e.initErr
}

func (e *GCVEngine) Infer(ctx context.Context, imagePath string) ([]model.FaceRecord, error) {
	if err := e.Warmup(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, err := gcv.NewImageFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	annotations, err := e.client.DetectFaces(ctx, img, nil, e.maxFaces)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	records := make([]model.FaceRecord, 0, len(annotations))
	for _, face := range annotations {
		records = append(records, model.FaceRecord{
			Confidence: float64(face.DetectionConfidence),
		})
	}
	return records, nil
}

func (e *GCVEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
