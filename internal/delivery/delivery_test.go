package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"slate/internal/delivery"
	"slate/internal/queue"
	"slate/internal/securebuf"
	"slate/internal/testsupport"
)

func stagedJob(t *testing.T, buffers *securebuf.Store, payload map[string]any) *queue.Job {
	t.Helper()
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	key, err := buffers.Put(encoded, 0)
	if err != nil {
		t.Fatalf("stage payload: %v", err)
	}
	job := &queue.Job{JobID: "job-1", ReportID: "report-1"}
	job.AttachBufferKey(key)
	return job
}

func TestExecutePushesCallbackAndPurges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	buffers := testsupport.MustNewBuffer(t, cfg)

	var gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := delivery.New(cfg, buffers, nil)
	job := stagedJob(t, buffers, map[string]any{"report_id": "report-1"})
	job.CallbackURL = srv.URL

	if err := s.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := s.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if gotKey != "job-1" {
		t.Fatalf("idempotency key = %q", gotKey)
	}
	var delivered map[string]any
	if err := json.Unmarshal(gotBody, &delivered); err != nil {
		t.Fatalf("decode delivered payload: %v", err)
	}
	if delivered["report_id"] != "report-1" {
		t.Fatalf("delivered payload = %v", delivered)
	}
	for _, key := range job.BufferKeys() {
		if _, err := buffers.Get(key); err == nil {
			t.Fatalf("buffer key %s survived delivery", key)
		}
	}
	if job.Metadata()["callback_delivered"] != true {
		t.Fatalf("metadata = %v", job.Metadata())
	}
}

func TestExecuteCallbackFailureDoesNotFailJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	buffers := testsupport.MustNewBuffer(t, cfg)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := delivery.New(cfg, buffers, nil)
	job := stagedJob(t, buffers, map[string]any{"report_id": "report-1"})
	job.CallbackURL = srv.URL

	if err := s.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute must not fail on callback errors: %v", err)
	}
	if _, ok := job.Metadata()["callback_error"]; !ok {
		t.Fatalf("metadata = %v, want callback_error", job.Metadata())
	}
	for _, key := range job.BufferKeys() {
		if _, err := buffers.Get(key); err == nil {
			t.Fatalf("buffer key %s survived delivery", key)
		}
	}
}

func TestExecuteWithoutCallbackOnlyPurges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	buffers := testsupport.MustNewBuffer(t, cfg)

	s := delivery.New(cfg, buffers, nil)
	job := stagedJob(t, buffers, map[string]any{"report_id": "report-1"})

	if err := s.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, key := range job.BufferKeys() {
		if _, err := buffers.Get(key); err == nil {
			t.Fatalf("buffer key %s survived delivery", key)
		}
	}

	// Purging again is a no-op.
	s.Purge(job)
}

func TestPrepareRequiresReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	buffers := testsupport.MustNewBuffer(t, cfg)
	s := delivery.New(cfg, buffers, nil)

	job := &queue.Job{JobID: "job-1"}
	if err := s.Prepare(context.Background(), job); err == nil {
		t.Fatal("expected error for job without report")
	}
}
