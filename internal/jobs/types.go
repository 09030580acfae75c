// Package jobs defines the asynchronous ingestion job model and the queue
// abstractions it runs on.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeIngestFile represents a statement-file ingestion job.
	JobTypeIngestFile JobType = "ingest_file"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// IngestFileJob asks the worker to fetch a statement file, categorize its
// transactions and index them. Exactly one of GCSBucket/GCSObject or
// LocalPath identifies the source.
type IngestFileJob struct {
	JobID string `json:"job_id"`

	// FileID is the stable identifier the file is tracked under.
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`

	GCSBucket string `json:"gcs_bucket,omitempty"`
	GCSObject string `json:"gcs_object,omitempty"`
	LocalPath string `json:"local_path,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	// Indexed and ItemFailures summarize the ingestion report once the job
	// completes.
	Indexed      int `json:"indexed"`
	ItemFailures int `json:"item_failures"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *IngestFileJob) GetID() string        { return j.JobID }
func (j *IngestFileJob) GetType() JobType     { return JobTypeIngestFile }
func (j *IngestFileJob) GetStatus() JobStatus { return j.Status }

// Publisher publishes jobs to a queue. The abstraction allows swapping the
// in-memory queue for a broker without touching the handlers.
type Publisher interface {
	PublishIngestFile(ctx context.Context, job *IngestFileJob) error
	Close() error
}

// Consumer consumes jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; the handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status so callers can poll progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *IngestFileJob) error
	GetJob(ctx context.Context, jobID string) (*IngestFileJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*IngestFileJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	FileID string
	Status JobStatus
	Limit  int
	Offset int
}
