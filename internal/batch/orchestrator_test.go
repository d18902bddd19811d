package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ah-its-andy/towebp/internal/config"
	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/db"
	"github.com/ah-its-andy/towebp/internal/progress"
	"github.com/ah-its-andy/towebp/internal/worker"
)

// fakeScheduler fails every input listed in fail and counts invocations.
type fakeScheduler struct {
	calls int
	fail  map[string]bool
}

func (f *fakeScheduler) Run(ctx context.Context, jobs []converter.Job, concurrency int, tracker progress.Tracker) []converter.Outcome {
	f.calls++
	outcomes := make([]converter.Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i] = converter.Outcome{Job: job}
		if f.fail[job.Input] {
			outcomes[i].Err = fmt.Errorf("convert %s: %w", job.Input, errors.New("exit status 1"))
		}
		tracker.Inc()
	}
	return outcomes
}

type fakeRecorder struct {
	batches []*db.Batch
	err     error
}

func (f *fakeRecorder) RecordBatch(b *db.Batch) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, b)
	return nil
}

func writeInputs(t *testing.T, names ...string) []converter.Job {
	t.Helper()
	dir := t.TempDir()
	jobs := make([]converter.Job, len(names))
	for i, name := range names {
		in := filepath.Join(dir, name)
		if err := os.WriteFile(in, []byte("image "+name), 0644); err != nil {
			t.Fatal(err)
		}
		jobs[i] = converter.Job{Input: in, Output: strings.TrimSuffix(in, filepath.Ext(in)) + ".webp"}
	}
	return jobs
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunEmptyNeverSchedules(t *testing.T) {
	sched := &fakeScheduler{}
	var out bytes.Buffer
	o := New(sched, WithOutput(&out, &out))

	res := o.Run(context.Background(), nil, Options{Concurrency: 4, Replace: true})
	if sched.calls != 0 {
		t.Errorf("scheduler called %d times for an empty batch", sched.calls)
	}
	if res.Total != 0 || res.Deleted != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(out.String(), "No image files found") {
		t.Errorf("missing empty notice: %q", out.String())
	}
}

func TestRunMixedFailures(t *testing.T) {
	jobs := writeInputs(t, "a.jpg", "b.png", "c.png")
	sched := &fakeScheduler{fail: map[string]bool{jobs[1].Input: true}}
	var out, errOut bytes.Buffer
	var counter *progress.Counter
	o := New(sched,
		WithOutput(&out, &errOut),
		WithTrackerFactory(func(total int) progress.Tracker {
			counter = progress.NewCounter(total)
			return counter
		}))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 2})

	if res.Total != 3 || res.Succeeded != 2 || res.Failed() != 1 {
		t.Fatalf("got total=%d ok=%d failed=%d", res.Total, res.Succeeded, res.Failed())
	}
	if res.Failures[0].Input != jobs[1].Input {
		t.Errorf("failure input = %s", res.Failures[0].Input)
	}
	if !strings.Contains(out.String(), "Found 3 image files") {
		t.Errorf("missing found line: %q", out.String())
	}
	if !strings.Contains(out.String(), "2 files converted successfully, 1 files failed.") {
		t.Errorf("missing summary: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "Error 1: ") || !strings.Contains(errOut.String(), "  Caused by: exit status 1") {
		t.Errorf("failure report = %q", errOut.String())
	}
	if counter == nil || counter.Done() != 3 || !counter.Finished() {
		t.Fatalf("tracker not driven to completion: %+v", counter)
	}
	if counter.Message() != "Converting files..." {
		t.Errorf("tracker message = %q", counter.Message())
	}
	for _, j := range jobs {
		if !exists(j.Input) {
			t.Errorf("%s removed without replace", j.Input)
		}
	}
}

func TestRunReplaceAllDeletesFailedInputs(t *testing.T) {
	jobs := writeInputs(t, "a.jpg", "b.png")
	sched := &fakeScheduler{fail: map[string]bool{jobs[0].Input: true}}
	var out bytes.Buffer
	o := New(sched, WithOutput(&out, &out))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 1, Replace: true, ReplacePolicy: config.ReplaceAll})
	if res.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", res.Deleted)
	}
	for _, j := range jobs {
		if exists(j.Input) {
			t.Errorf("%s still exists", j.Input)
		}
	}
	if !strings.Contains(out.String(), "2 original files deleted.") {
		t.Errorf("missing deletion line: %q", out.String())
	}
}

func TestRunReplaceOnSuccessKeepsFailedInputs(t *testing.T) {
	jobs := writeInputs(t, "a.jpg", "b.png")
	sched := &fakeScheduler{fail: map[string]bool{jobs[0].Input: true}}
	o := New(sched, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 1, Replace: true, ReplacePolicy: config.ReplaceOnSuccess})
	if res.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", res.Deleted)
	}
	if !exists(jobs[0].Input) {
		t.Error("failed input was removed")
	}
	if exists(jobs[1].Input) {
		t.Error("converted input was kept")
	}
}

func TestRunToleratesDeleteErrors(t *testing.T) {
	jobs := writeInputs(t, "a.jpg", "b.png")
	if err := os.Remove(jobs[0].Input); err != nil {
		t.Fatal(err)
	}
	o := New(&fakeScheduler{}, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 1, Replace: true, ReplacePolicy: config.ReplaceAll})
	if res.Deleted != 1 || res.DeleteErrors != 1 {
		t.Errorf("deleted=%d errors=%d, want 1 and 1", res.Deleted, res.DeleteErrors)
	}
}

func TestRunRecordsHistoryBeforeDeleting(t *testing.T) {
	jobs := writeInputs(t, "a.jpg", "b.png")
	sched := &fakeScheduler{fail: map[string]bool{jobs[1].Input: true}}
	rec := &fakeRecorder{}
	o := New(sched, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}), WithHistory(rec, 1024))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 2, Replace: true, Mode: "batch", Codec: "ffmpeg", Quality: 75})
	if len(rec.batches) != 1 {
		t.Fatalf("recorded %d batches", len(rec.batches))
	}
	b := rec.batches[0]
	if b.ID == "" || b.ID != res.BatchID {
		t.Errorf("batch id %q, result id %q", b.ID, res.BatchID)
	}
	if b.Total != 2 || b.Succeeded != 1 || b.Failed != 1 || b.Deleted != 2 || b.Quality != 75 {
		t.Errorf("unexpected batch %+v", b)
	}
	if len(b.Jobs) != 2 {
		t.Fatalf("recorded %d jobs", len(b.Jobs))
	}
	for i, j := range b.Jobs {
		if j.Position != i || j.InputPath != jobs[i].Input {
			t.Errorf("job %d recorded as %+v", i, j)
		}
		if j.SourceMD5 == "" {
			t.Errorf("job %d has no source hash", i)
		}
	}
	if b.Jobs[1].Status != db.StatusFailed || b.Jobs[1].Error == "" {
		t.Errorf("failed job recorded as %+v", b.Jobs[1])
	}
}

func TestRunHistoryFailureIsNotFatal(t *testing.T) {
	jobs := writeInputs(t, "a.jpg")
	o := New(&fakeScheduler{}, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}),
		WithHistory(&fakeRecorder{err: errors.New("disk full")}, 1024))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 1})
	if res.Succeeded != 1 || res.BatchID != "" {
		t.Errorf("unexpected result %+v", res)
	}
}

// orderedExec succeeds on everything; used with the real pool.
type orderedExec struct{}

func (orderedExec) Execute(ctx context.Context, job converter.Job) converter.Outcome {
	return converter.Outcome{Job: job}
}

func TestRunWithPoolPreservesOrder(t *testing.T) {
	jobs := make([]converter.Job, 25)
	for i := range jobs {
		jobs[i] = converter.Job{Input: fmt.Sprintf("%02d.png", i), Output: fmt.Sprintf("%02d.webp", i)}
	}
	o := New(worker.NewPool(orderedExec{}, nil), WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))

	res := o.Run(context.Background(), jobs, Options{Concurrency: 4})
	for i, out := range res.Outcomes {
		if out.Job != jobs[i] {
			t.Fatalf("outcome %d is for %s", i, out.Job.Input)
		}
	}
}

func TestRunSingle(t *testing.T) {
	t.Run("success with replace", func(t *testing.T) {
		jobs := writeInputs(t, "a.jpg")
		var out bytes.Buffer
		o := New(&fakeScheduler{}, WithOutput(&out, &out))
		if err := o.RunSingle(context.Background(), jobs[0], Options{Replace: true}); err != nil {
			t.Fatalf("RunSingle: %v", err)
		}
		if exists(jobs[0].Input) {
			t.Error("original kept after successful replace")
		}
		if !strings.Contains(out.String(), "Conversion completed: "+jobs[0].Output) {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("failure keeps original", func(t *testing.T) {
		jobs := writeInputs(t, "a.jpg")
		o := New(&fakeScheduler{fail: map[string]bool{jobs[0].Input: true}}, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
		err := o.RunSingle(context.Background(), jobs[0], Options{Replace: true})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !exists(jobs[0].Input) {
			t.Error("original removed after failed conversion")
		}
	})
}

func TestPartition(t *testing.T) {
	boom := errors.New("boom")
	res := Partition([]converter.Outcome{
		{Job: converter.Job{Input: "a"}},
		{Job: converter.Job{Input: "b"}, Err: boom},
		{Job: converter.Job{Input: "c"}},
		{Job: converter.Job{Input: "d"}, Err: boom},
	})
	if res.Total != 4 || res.Succeeded != 2 || res.Failed() != 2 {
		t.Fatalf("got %+v", res)
	}
	if res.Failures[0].Input != "b" || res.Failures[1].Input != "d" {
		t.Errorf("failures out of order: %+v", res.Failures)
	}
}

func TestCauseChainAndReportError(t *testing.T) {
	root := errors.New("no such file")
	err := fmt.Errorf("resolve input: %w", fmt.Errorf("stat photo.jpg: %w", root))

	chain := CauseChain(err)
	if len(chain) != 3 || chain[2] != "no such file" {
		t.Fatalf("chain = %q", chain)
	}
	if CauseChain(nil) != nil {
		t.Error("nil error should have no chain")
	}

	var buf bytes.Buffer
	ReportError(&buf, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Error: resolve input") || lines[2] != "Caused by: no such file" {
		t.Errorf("report = %q", buf.String())
	}
}
