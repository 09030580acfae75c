package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finleyapp/finance-advisor/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.IngestFileJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached %s, last state: %+v", jobID, want, job)
	return nil
}

func TestQueue_PublishAndProcess(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	var handled []string
	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		handled = append(handled, job.GetID())
		mu.Unlock()
		return nil
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatal(err)
	}

	job := &jobs.IngestFileJob{FileID: "stmt-1", Filename: "march.csv"}
	if err := q.PublishIngestFile(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if job.JobID == "" {
		t.Fatal("publish did not assign a job id")
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("timestamps not set: %+v", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != job.JobID {
		t.Errorf("handled = %v", handled)
	}
}

func TestQueue_FailedJobRetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("source file unreadable")
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatal(err)
	}

	job := &jobs.IngestFileJob{FileID: "stmt-2", MaxRetries: 1}
	if err := q.PublishIngestFile(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if got.Error == "" {
		t.Error("failed job should record its error")
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (initial + one retry)", attempts)
	}
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, NewStore())
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	err := q.PublishIngestFile(context.Background(), &jobs.IngestFileJob{FileID: "x"})
	if err == nil {
		t.Error("publish on closed queue should fail")
	}
}

func TestStore_ListJobsFilterAndOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, st := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		err := store.SaveJob(ctx, &jobs.IngestFileJob{
			JobID:     string(rune('a' + i)),
			FileID:    "stmt-1",
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	done, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 2 {
		t.Fatalf("len = %d, want 2", len(done))
	}
	if done[0].JobID != "c" {
		t.Errorf("newest first expected, got %s", done[0].JobID)
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d results", len(limited))
	}
}
