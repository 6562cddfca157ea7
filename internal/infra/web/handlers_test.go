package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"face-insight-backend/internal/domain"
	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/infra/storage"
)

// ---- Fakes ----

type fakeAnalysisUC struct {
	createFn func(ctx context.Context, paths []string) (*model.AnalysisJob, error)
	startFn  func(ctx context.Context, id string) (*model.AnalysisJob, error)
	getFn    func(ctx context.Context, id string) (*model.AnalysisJob, error)
	listFn   func(ctx context.Context, limit int) ([]*model.AnalysisJob, error)
}

func (f *fakeAnalysisUC) Create(ctx context.Context, paths []string) (*model.AnalysisJob, error) {
	return f.createFn(ctx, paths)
}
func (f *fakeAnalysisUC) Start(ctx context.Context, id string) (*model.AnalysisJob, error) {
	return f.startFn(ctx, id)
}
func (f *fakeAnalysisUC) Get(ctx context.Context, id string) (*model.AnalysisJob, error) {
	return f.getFn(ctx, id)
}
func (f *fakeAnalysisUC) List(ctx context.Context, limit int) ([]*model.AnalysisJob, error) {
	return f.listFn(ctx, limit)
}

type fakeChatUC struct {
	askFn     func(ctx context.Context, jobID, question string) (*model.ChatExchange, error)
	historyFn func(ctx context.Context, jobID string) ([]*model.ChatExchange, error)
	summaryFn func(ctx context.Context, jobID string) (string, error)
}

func (f *fakeChatUC) Ask(ctx context.Context, jobID, question string) (*model.ChatExchange, error) {
	return f.askFn(ctx, jobID, question)
}
func (f *fakeChatUC) History(ctx context.Context, jobID string) ([]*model.ChatExchange, error) {
	return f.historyFn(ctx, jobID)
}
func (f *fakeChatUC) Summary(ctx context.Context, jobID string) (string, error) {
	return f.summaryFn(ctx, jobID)
}

func newTestServer(t *testing.T, analysis *fakeAnalysisUC, chat *fakeChatUC) *Server {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := zerolog.Nop()
	return NewServer(analysis, chat, files, 10<<20, &l)
}

func sampleJob(status model.JobStatus) *model.AnalysisJob {
	j := &model.AnalysisJob{
		ID:         "job-1",
		ImagePaths: []string{"/a.jpg", "/b.jpg"},
		Status:     status,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if status == model.JobStatusCompleted {
		j.Aggregate = &model.Aggregate{TotalFaces: 2, Gender: model.GenderCounts{Male: 1, Female: 1}}
	}
	return j
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// ---- Tests ----

func TestHandleCreateJob(t *testing.T) {
	analysis := &fakeAnalysisUC{
		createFn: func(_ context.Context, paths []string) (*model.AnalysisJob, error) {
			if len(paths) != 2 {
				t.Errorf("paths = %v", paths)
			}
			return sampleJob(model.JobStatusPending), nil
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{
		"image_paths": []string{"/a.jpg", "/b.jpg"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["id"] != "job-1" || body["status"] != "pending" {
		t.Errorf("body = %v", body)
	}
	if body["image_count"] != float64(2) {
		t.Errorf("image_count = %v, want 2", body["image_count"])
	}
}

func TestHandleCreateJobBadBody(t *testing.T) {
	srv := newTestServer(t, &fakeAnalysisUC{}, &fakeChatUC{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCreateJobEmptyManifest(t *testing.T) {
	analysis := &fakeAnalysisUC{
		createFn: func(context.Context, []string) (*model.AnalysisJob, error) {
			return nil, domain.ErrInvalidManifest
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{"image_paths": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetJob(t *testing.T) {
	analysis := &fakeAnalysisUC{
		getFn: func(_ context.Context, id string) (*model.AnalysisJob, error) {
			if id != "job-1" {
				return nil, domain.ErrNotFound
			}
			return sampleJob(model.JobStatusCompleted), nil
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/jobs/job-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	agg, ok := body["aggregate"].(map[string]any)
	if !ok {
		t.Fatalf("aggregate missing: %v", body)
	}
	if agg["total_faces"] != float64(2) {
		t.Errorf("total_faces = %v, want 2", agg["total_faces"])
	}
	// Age buckets keep their wire names.
	ageGroups, ok := agg["age_group"].(map[string]any)
	if !ok {
		t.Fatalf("age_group missing: %v", agg)
	}
	for _, key := range []string{"10s", "20s", "30s", "40_plus"} {
		if _, ok := ageGroups[key]; !ok {
			t.Errorf("age_group lacks %q: %v", key, ageGroups)
		}
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/jobs/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown job = %d, want 404", rec.Code)
	}
}

func TestHandleStartJob(t *testing.T) {
	analysis := &fakeAnalysisUC{
		startFn: func(_ context.Context, id string) (*model.AnalysisJob, error) {
			return sampleJob(model.JobStatusProcessing), nil
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/jobs/job-1/start", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "processing" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHandleStartJobAlreadyCompleted(t *testing.T) {
	analysis := &fakeAnalysisUC{
		startFn: func(_ context.Context, id string) (*model.AnalysisJob, error) {
			return sampleJob(model.JobStatusCompleted), nil
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/jobs/job-1/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for completed job", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "completed" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHandleStartJobConflict(t *testing.T) {
	analysis := &fakeAnalysisUC{
		startFn: func(context.Context, string) (*model.AnalysisJob, error) {
			return nil, domain.ErrJobInFlight
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/jobs/job-1/start", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandleListJobs(t *testing.T) {
	analysis := &fakeAnalysisUC{
		listFn: func(_ context.Context, limit int) ([]*model.AnalysisJob, error) {
			if limit != 5 {
				t.Errorf("limit = %d, want 5", limit)
			}
			return []*model.AnalysisJob{sampleJob(model.JobStatusCompleted), sampleJob(model.JobStatusPending)}, nil
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/jobs?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	jobs, ok := body["jobs"].([]any)
	if !ok || len(jobs) != 2 {
		t.Errorf("jobs = %v", body["jobs"])
	}
}

func TestHandleUpload(t *testing.T) {
	var gotPaths []string
	analysis := &fakeAnalysisUC{
		createFn: func(_ context.Context, paths []string) (*model.AnalysisJob, error) {
			gotPaths = paths
			return sampleJob(model.JobStatusPending), nil
		},
	}
	srv := newTestServer(t, analysis, &fakeChatUC{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.jpg", "b.png"} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("image bytes")); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(gotPaths) != 2 {
		t.Errorf("saved paths = %v, want 2 entries", gotPaths)
	}
	body := decodeBody(t, rec)
	if body["job_id"] != "job-1" || body["image_count"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestHandleUploadRejectsBadExtension(t *testing.T) {
	srv := newTestServer(t, &fakeAnalysisUC{}, &fakeChatUC{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("%PDF"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleUploadNoFiles(t *testing.T) {
	srv := newTestServer(t, &fakeAnalysisUC{}, &fakeChatUC{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAsk(t *testing.T) {
	chat := &fakeChatUC{
		askFn: func(_ context.Context, jobID, question string) (*model.ChatExchange, error) {
			return &model.ChatExchange{
				ID:        "ex-1",
				JobID:     jobID,
				Question:  question,
				Answer:    "2 people were detected.",
				CreatedAt: time.Now(),
			}, nil
		},
	}
	srv := newTestServer(t, &fakeAnalysisUC{}, chat)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", map[string]string{
		"job_id":   "job-1",
		"question": "How many people?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["answer"] != "2 people were detected." {
		t.Errorf("answer = %v", body["answer"])
	}
}

func TestHandleAskNotCompleted(t *testing.T) {
	chat := &fakeChatUC{
		askFn: func(context.Context, string, string) (*model.ChatExchange, error) {
			return nil, domain.ErrJobNotCompleted
		},
	}
	srv := newTestServer(t, &fakeAnalysisUC{}, chat)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", map[string]string{
		"job_id": "job-1", "question": "anything",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	chat := &fakeChatUC{
		historyFn: func(_ context.Context, jobID string) ([]*model.ChatExchange, error) {
			return []*model.ChatExchange{
				{JobID: jobID, Question: "q1", Answer: "a1", CreatedAt: time.Now()},
				{JobID: jobID, Question: "q2", Answer: "a2", CreatedAt: time.Now()},
			}, nil
		},
	}
	srv := newTestServer(t, &fakeAnalysisUC{}, chat)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/chat/job-1/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	hist, ok := body["history"].([]any)
	if !ok || len(hist) != 2 {
		t.Errorf("history = %v", body["history"])
	}
}

func TestHandleSummary(t *testing.T) {
	analysis := &fakeAnalysisUC{
		getFn: func(context.Context, string) (*model.AnalysisJob, error) {
			return sampleJob(model.JobStatusCompleted), nil
		},
	}
	chat := &fakeChatUC{
		summaryFn: func(context.Context, string) (string, error) {
			return "Two people, one male and one female.", nil
		},
	}
	srv := newTestServer(t, analysis, chat)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/chat/job-1/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["summary"] == "" || body["raw_data"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeAnalysisUC{}, &fakeChatUC{})
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
