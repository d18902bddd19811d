// Package batch drives a conversion run end to end: it schedules the
// resolved jobs, reports the outcome, records history and removes
// originals when asked to.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ah-its-andy/towebp/internal/config"
	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/db"
	"github.com/ah-its-andy/towebp/internal/progress"
	"github.com/ah-its-andy/towebp/internal/utils"
	"github.com/ah-its-andy/towebp/internal/worker"
)

// Scheduler runs jobs under a concurrency cap. *worker.Pool implements it.
type Scheduler interface {
	Run(ctx context.Context, jobs []converter.Job, concurrency int, tracker progress.Tracker) []converter.Outcome
}

var _ Scheduler = (*worker.Pool)(nil)

// Recorder persists finished batches. *db.DB implements it.
type Recorder interface {
	RecordBatch(b *db.Batch) error
}

// TrackerFactory builds the progress tracker for a batch of total jobs.
type TrackerFactory func(total int) progress.Tracker

// Options describe one run.
type Options struct {
	Concurrency   int
	Replace       bool
	ReplacePolicy string // config.ReplaceAll or config.ReplaceOnSuccess

	// Recorded in history only.
	Root    string
	Mode    string
	Codec   string
	Quality int
}

// Orchestrator composes the scheduler, the tracker and the history store.
type Orchestrator struct {
	sched        Scheduler
	newTracker   TrackerFactory
	history      Recorder
	md5ChunkSize int64
	out          io.Writer
	errOut       io.Writer
	log          *zap.SugaredLogger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

func WithTrackerFactory(f TrackerFactory) Option {
	return func(o *Orchestrator) { o.newTracker = f }
}

// WithHistory records every batch in r, hashing sources with chunkSize.
func WithHistory(r Recorder, chunkSize int64) Option {
	return func(o *Orchestrator) {
		o.history = r
		o.md5ChunkSize = chunkSize
	}
}

// WithOutput sets where the report goes: summary lines to out, failure
// details to errOut.
func WithOutput(out, errOut io.Writer) Option {
	return func(o *Orchestrator) {
		o.out = out
		o.errOut = errOut
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func New(sched Scheduler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sched:      sched,
		newTracker: func(total int) progress.Tracker { return progress.NewCounter(total) },
		out:        os.Stdout,
		errOut:     os.Stderr,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run converts every job. An empty job list is reported and returns
// without touching the scheduler. Per-job failures never make Run fail:
// they are reported and returned in the Result.
//
// With Replace set the originals are removed after the whole batch has
// finished. Under ReplaceAll every submitted input is removed, including
// inputs whose own conversion failed; ReplaceOnSuccess keeps those.
// Removal errors are counted and otherwise ignored.
func (o *Orchestrator) Run(ctx context.Context, jobs []converter.Job, opts Options) *Result {
	if len(jobs) == 0 {
		fmt.Fprintln(o.out, "No image files found in the directory.")
		return &Result{}
	}
	fmt.Fprintf(o.out, "Found %d image files to convert.\n", len(jobs))

	started := time.Now()
	tracker := o.newTracker(len(jobs))
	tracker.SetMessage("Converting files...")
	outcomes := o.sched.Run(ctx, jobs, opts.Concurrency, tracker)
	tracker.Finish()

	res := Partition(outcomes)
	fmt.Fprintf(o.out, "%d files converted successfully, %d files failed.\n", res.Succeeded, res.Failed())
	if res.Failed() > 0 {
		ReportFailures(o.errOut, res.Failures)
	}

	records := o.jobRecords(outcomes)

	if opts.Replace {
		res.Deleted, res.DeleteErrors = o.removeOriginals(outcomes, opts.ReplacePolicy)
		fmt.Fprintf(o.out, "%d original files deleted.\n", res.Deleted)
	}

	res.BatchID = o.record(started, opts, res, records)
	o.log.Infof("batch finished: %d succeeded, %d failed, %d deleted in %v",
		res.Succeeded, res.Failed(), res.Deleted, time.Since(started).Round(time.Millisecond))
	return res
}

// RunSingle converts one file. Unlike a batch, a failed conversion is
// returned as an error, and the original is only removed on success.
func (o *Orchestrator) RunSingle(ctx context.Context, job converter.Job, opts Options) error {
	fmt.Fprintf(o.out, "Converting %s to %s...\n", job.Input, job.Output)

	started := time.Now()
	outcomes := o.sched.Run(ctx, []converter.Job{job}, 1, progress.NewCounter(1))
	res := Partition(outcomes)
	records := o.jobRecords(outcomes)

	if res.Failed() > 0 {
		res.BatchID = o.record(started, opts, res, records)
		return res.Failures[0].Err
	}

	if opts.Replace {
		if err := os.Remove(job.Input); err != nil {
			res.DeleteErrors = 1
			o.record(started, opts, res, records)
			return fmt.Errorf("delete original %s: %w", job.Input, err)
		}
		res.Deleted = 1
		fmt.Fprintln(o.out, "Original file deleted.")
	}

	res.BatchID = o.record(started, opts, res, records)
	fmt.Fprintf(o.out, "Conversion completed: %s\n", job.Output)
	return nil
}

func (o *Orchestrator) removeOriginals(outcomes []converter.Outcome, policy string) (deleted, failed int) {
	for _, out := range outcomes {
		if policy == config.ReplaceOnSuccess && !out.OK() {
			continue
		}
		if err := os.Remove(out.Job.Input); err != nil {
			o.log.Debugf("delete original %s: %v", out.Job.Input, err)
			failed++
			continue
		}
		deleted++
	}
	return deleted, failed
}

// jobRecords snapshots the outcomes for history. Sources are hashed here,
// before replace mode gets a chance to remove them.
func (o *Orchestrator) jobRecords(outcomes []converter.Outcome) []db.JobRecord {
	if o.history == nil {
		return nil
	}
	records := make([]db.JobRecord, 0, len(outcomes))
	for i, out := range outcomes {
		rec := db.JobRecord{
			Position:   i,
			InputPath:  out.Job.Input,
			OutputPath: out.Job.Output,
			Status:     db.StatusSuccess,
			DurationMs: out.Duration.Milliseconds(),
		}
		if !out.OK() {
			rec.Status = db.StatusFailed
			rec.Error = out.Err.Error()
		}
		if sum, err := utils.MD5File(out.Job.Input, o.md5ChunkSize); err == nil {
			rec.SourceMD5 = sum
		}
		records = append(records, rec)
	}
	return records
}

// record stores the batch and returns its id, or "" without history.
// A history failure is logged and never fails the run.
func (o *Orchestrator) record(started time.Time, opts Options, res *Result, records []db.JobRecord) string {
	if o.history == nil {
		return ""
	}
	b := &db.Batch{
		ID:        uuid.NewString(),
		Root:      opts.Root,
		Mode:      opts.Mode,
		Codec:     opts.Codec,
		Quality:   opts.Quality,
		Replace:   opts.Replace,
		StartedAt: started,
		EndedAt:   time.Now(),
		Total:     res.Total,
		Succeeded: res.Succeeded,
		Failed:    res.Failed(),
		Deleted:   res.Deleted,
		Jobs:      records,
	}
	if err := o.history.RecordBatch(b); err != nil {
		o.log.Warnf("failed to record batch history: %v", err)
		return ""
	}
	return b.ID
}
