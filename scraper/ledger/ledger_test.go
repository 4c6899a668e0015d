package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jobwatch/job-alerts-service/common/models"
)

// memStore mimics the sent_jobs table, including the conflict-ignoring
// insert semantics.
type memStore struct {
	rows map[[3]string]models.SentJobRecord
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[[3]string]models.SentJobRecord)}
}

func (s *memStore) SentJobExists(_ context.Context, tenantID, jobID, company string) (bool, error) {
	_, ok := s.rows[[3]string{tenantID, jobID, company}]
	return ok, nil
}

func (s *memStore) InsertSentJob(_ context.Context, entry models.SentJobRecord) error {
	key := [3]string{entry.TenantID, entry.JobID, entry.Company}
	if _, ok := s.rows[key]; ok {
		return nil
	}
	s.rows[key] = entry
	return nil
}

func TestExistsAfterRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dedup := New(store, "tenant-1")

	job := models.JobRecord{ID: "123", Company: "Acme", Title: "Software Intern"}

	exists, err := dedup.Exists(ctx, job.ID, job.Company)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("job should not exist before recording")
	}

	if err := dedup.Record(ctx, job, time.Now()); err != nil {
		t.Fatal(err)
	}

	exists, err = dedup.Exists(ctx, job.ID, job.Company)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("job should exist after recording")
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dedup := New(store, "tenant-1")

	first := models.JobRecord{ID: "123", Company: "Acme", Title: "Software Intern"}
	if err := dedup.Record(ctx, first, time.Unix(100, 0)); err != nil {
		t.Fatal(err)
	}

	// Second sighting of the same job must not replace the original row.
	second := models.JobRecord{ID: "123", Company: "Acme", Title: "Renamed Posting"}
	if err := dedup.Record(ctx, second, time.Unix(200, 0)); err != nil {
		t.Fatal(err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(store.rows))
	}
	row := store.rows[[3]string{"tenant-1", "123", "Acme"}]
	if row.Title != "Software Intern" {
		t.Errorf("original row was overwritten: %q", row.Title)
	}
}

func TestTenantScoping(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	job := models.JobRecord{ID: "123", Company: "Acme"}
	if err := New(store, "tenant-1").Record(ctx, job, time.Now()); err != nil {
		t.Fatal(err)
	}

	exists, err := New(store, "tenant-2").Exists(ctx, job.ID, job.Company)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("ledger entries must not leak across tenants")
	}
}
