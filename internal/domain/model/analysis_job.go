package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// AnalysisJob is one batch-analysis request tracked through its lifecycle.
// ImagePaths is fixed at creation; Aggregate is set only on completion and
// FailureReason only on failure.
type AnalysisJob struct {
	ID            string
	ImagePaths    []string
	Status        JobStatus
	Aggregate     *Aggregate
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewAnalysisJob(id string, imagePaths []string) *AnalysisJob {
	now := time.Now()
	return &AnalysisJob{
		ID:         id,
		ImagePaths: imagePaths,
		Status:     JobStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Claimable reports whether Start may acquire the processing claim.
// Completed jobs are terminal; failed jobs may be restarted.
func (j *AnalysisJob) Claimable() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusFailed
}
