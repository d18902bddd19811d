package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/progress"
)

// Executor runs a single job. *converter.Worker is the production one.
type Executor interface {
	Execute(ctx context.Context, job converter.Job) converter.Outcome
}

// Pool runs batches of jobs with a cap on how many execute at once.
type Pool struct {
	exec Executor
	log  *zap.SugaredLogger
}

func NewPool(exec Executor, log *zap.SugaredLogger) *Pool {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pool{exec: exec, log: log}
}

// Run executes every job and returns one outcome per job, in submission
// order. At most concurrency jobs hold a permit at any instant; waiting
// jobs are admitted in no particular order as permits free up. A failed
// job never stops the others. The tracker is incremented once per job
// after its permit has been released.
func (p *Pool) Run(ctx context.Context, jobs []converter.Job, concurrency int, tracker progress.Tracker) []converter.Outcome {
	if concurrency < 1 {
		concurrency = 1
	}
	if tracker == nil {
		tracker = progress.NewCounter(len(jobs))
	}

	outcomes := make([]converter.Outcome, len(jobs))
	permits := semaphore.NewWeighted(int64(concurrency))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job converter.Job) {
			defer wg.Done()
			outcomes[idx] = p.runOne(ctx, permits, idx, job)
			tracker.Inc()
		}(i, job)
	}
	wg.Wait()
	return outcomes
}

func (p *Pool) runOne(ctx context.Context, permits *semaphore.Weighted, idx int, job converter.Job) converter.Outcome {
	if err := permits.Acquire(ctx, 1); err != nil {
		return converter.Outcome{Job: job, Err: fmt.Errorf("waiting for a conversion slot: %w", err)}
	}
	defer permits.Release(1)

	p.log.Debugf("[Job %d] converting %s -> %s", idx, job.Input, job.Output)
	out := p.exec.Execute(ctx, job)
	if out.OK() {
		p.log.Debugf("[Job %d] converted %s in %v", idx, job.Input, out.Duration)
	} else {
		p.log.Warnf("[Job %d] conversion failed for %s: %v", idx, job.Input, out.Err)
	}
	return out
}
