package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/adapter"
)

// Compile-time assurance this engine satisfies the port
var _ adapter.VisionEngine = (*SidecarEngine)(nil)

// SidecarEngine talks to the torch inference sidecar (face detector plus
// gender/age classifiers) over HTTP. The sidecar shares the upload volume,
// so images are referenced by path. Model loading is slow, hence the
// explicit warmup endpoint; it runs once per process and its outcome is
// reused for every subsequent job.
type SidecarEngine struct {
	base          string
	client        *http.Client
	warmupTimeout time.Duration

	warmOnce sync.Once
	warmErr  error

	log *zerolog.Logger
}

func NewSidecarEngine(baseURL string, warmupTimeout, inferTimeout time.Duration, logger *zerolog.Logger) (*SidecarEngine, error) {
	if baseURL == "" {
		return nil, errors.New("vision sidecar: empty base url")
	}
	l := logger.With().Str("component", "SidecarEngine").Logger()
	return &SidecarEngine{
		base:          baseURL,
		client:        &http.Client{Timeout: inferTimeout},
		warmupTimeout: warmupTimeout,
		log:           &l,
	}, nil
}

func (e *SidecarEngine) Warmup(ctx context.Context) error {
	e.warmOnce.Do(func() {
		start := time.Now()
		e.log.Info().Msg("warming up inference sidecar")

		wctx, cancel := context.WithTimeout(ctx, e.warmupTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(wctx, http.MethodPost, e.base+"/warmup", nil)
		if err != nil {
			e.warmErr = err
			return
		}
		// model loading exceeds the per-inference timeout
		resp, err := (&http.Client{Timeout: e.warmupTimeout}).Do(req)
		if err != nil {
			e.warmErr = fmt.Errorf("sidecar warmup: %w", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			e.warmErr = fmt.Errorf("sidecar warmup http %d", resp.StatusCode)
			return
		}
		e.log.Info().Dur("duration", time.Since(start)).Msg("sidecar warm")
	})
	return e.warmErr
}

func (e *SidecarEngine) Infer(ctx context.Context, imagePath string) ([]model.FaceRecord, error) {
	reqBody := struct {
		ImagePath string `json:"image_path"`
	}{ImagePath: imagePath}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/infer", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sidecar infer http %d", resp.StatusCode)
	}

	var payload struct {
		Faces []model.FaceRecord `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sidecar response: %w", err)
	}
	return payload.Faces, nil
}
