package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleBatch(id string, started time.Time) *Batch {
	return &Batch{
		ID:        id,
		Root:      "/photos",
		Mode:      "batch",
		Codec:     "ffmpeg",
		Quality:   80,
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Deleted:   2,
		Jobs: []JobRecord{
			{Position: 0, InputPath: "/photos/a.jpg", OutputPath: "/photos/a.webp", SourceMD5: "aaa", Status: StatusSuccess, DurationMs: 12},
			{Position: 1, InputPath: "/photos/b.png", OutputPath: "/photos/b.webp", SourceMD5: "bbb", Status: StatusFailed, Error: "exit 1"},
		},
	}
}

func TestDatabaseInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("Database file was not created")
	}
}

func TestRecordAndGetBatch(t *testing.T) {
	database := openTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	if err := database.RecordBatch(sampleBatch("b-1", now)); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	got, err := database.GetBatch("b-1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Total != 2 || got.Failed != 1 || got.Deleted != 2 {
		t.Errorf("unexpected batch counters: %+v", got)
	}
	if len(got.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(got.Jobs))
	}
	if got.Jobs[0].InputPath != "/photos/a.jpg" || got.Jobs[1].Status != StatusFailed {
		t.Errorf("jobs out of order or wrong: %+v", got.Jobs)
	}

	if _, err := database.GetBatch("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListBatchesAndLatest(t *testing.T) {
	database := openTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		if err := database.RecordBatch(sampleBatch(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	rows, total, err := database.ListBatches(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("expected 2 of 3 batches, got %d of %d", len(rows), total)
	}
	if rows[0].ID != "new" || rows[1].ID != "mid" {
		t.Errorf("batches not newest first: %s, %s", rows[0].ID, rows[1].ID)
	}

	latest, err := database.LatestBatch()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "new" || len(latest.Jobs) != 2 {
		t.Errorf("unexpected latest batch: %+v", latest)
	}
}

func TestLatestBatchEmpty(t *testing.T) {
	if _, err := openTestDB(t).LatestBatch(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListJobsAndLastSuccess(t *testing.T) {
	database := openTestDB(t)
	if err := database.RecordBatch(sampleBatch("b-1", time.Now())); err != nil {
		t.Fatal(err)
	}

	failed, total, err := database.ListJobs(StatusFailed, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(failed) != 1 || failed[0].InputPath != "/photos/b.png" {
		t.Errorf("unexpected failed jobs: %+v", failed)
	}

	ok, err := database.LastSuccess("/photos/a.jpg", "aaa")
	if err != nil || !ok {
		t.Errorf("expected previous success for a.jpg, got %v %v", ok, err)
	}
	ok, _ = database.LastSuccess("/photos/a.jpg", "changed")
	if ok {
		t.Error("changed content must not count as converted")
	}
	ok, _ = database.LastSuccess("/photos/b.png", "bbb")
	if ok {
		t.Error("failed job must not count as converted")
	}
}

func TestGetStats(t *testing.T) {
	database := openTestDB(t)
	stats, err := database.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Batches != 0 || stats.TotalJobs != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	database.RecordBatch(sampleBatch("b-1", time.Now()))
	database.RecordBatch(sampleBatch("b-2", time.Now()))

	stats, err = database.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Batches != 2 || stats.TotalJobs != 4 || stats.SuccessCount != 2 || stats.FailedCount != 2 || stats.DeletedCount != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
