package converter

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker runs exactly one job through a codec. It never retries and sets
// no timeout of its own; a hung encoder holds its caller until ctx ends.
type Worker struct {
	codec        Codec
	quality      int
	preserveTime bool
	log          *zap.SugaredLogger
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithPreserveTime copies the source capture time onto successful outputs.
func WithPreserveTime(enabled bool) WorkerOption {
	return func(w *Worker) { w.preserveTime = enabled }
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(log *zap.SugaredLogger) WorkerOption {
	return func(w *Worker) { w.log = log }
}

func NewWorker(codec Codec, quality int, opts ...WorkerOption) *Worker {
	w := &Worker{codec: codec, quality: quality, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Codec returns the codec this worker drives.
func (w *Worker) Codec() Codec { return w.codec }

// Execute converts job and reports the outcome. Errors are returned as
// data on the Outcome, never panicked or logged as fatal.
func (w *Worker) Execute(ctx context.Context, job Job) Outcome {
	start := time.Now()
	err := w.codec.Convert(ctx, job, w.quality)
	out := Outcome{Job: job, Err: err, Duration: time.Since(start)}
	if err != nil {
		return out
	}

	if w.preserveTime {
		if perr := PreserveCaptureTime(job.Input, job.Output); perr != nil {
			w.log.Warnf("preserve capture time for %s: %v", job.Output, perr)
		}
	}
	return out
}
