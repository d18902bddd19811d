// Package watcher converts images as they appear under a set of watched
// directory trees.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/ah-its-andy/towebp/internal/batch"
	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/scanner"
	"github.com/ah-its-andy/towebp/internal/utils"
	"github.com/ah-its-andy/towebp/internal/worker"
)

// LockFileName is created in every watched root while a watcher runs.
const LockFileName = ".towebp.lock"

// Runner converts one drained batch. *batch.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, jobs []converter.Job, opts batch.Options) *batch.Result
}

// History answers whether a source with this hash was already converted.
// *db.DB implements it.
type History interface {
	LastSuccess(input, md5 string) (bool, error)
}

// Options configures a Watcher.
type Options struct {
	Output          string // mirror outputs under this directory; empty writes beside inputs
	TargetExt       string
	Interval        time.Duration
	StabilityDelay  time.Duration
	StabilityChecks int // size readings before a still-growing file is queued anyway
	MD5ChunkSize    int64
	Batch           batch.Options
}

type Watcher struct {
	roots   []string
	opts    Options
	runner  Runner
	history History
	queue   *worker.Queue
	fsw     *fsnotify.Watcher
	locks   []*flock.Flock
	log     *zap.SugaredLogger

	mu       sync.Mutex
	settling map[string]struct{}
	wg       sync.WaitGroup
}

// New creates a watcher over roots. history may be nil, in which case
// every discovered image is converted.
func New(roots []string, runner Runner, history History, opts Options, log *zap.SugaredLogger) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no directories to watch")
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		p, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		// fsnotify and WalkDir both need the real directory
		if target, err := filepath.EvalSymlinks(p); err == nil {
			p = target
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", scanner.ErrInputNotFound, r)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("watch %s: not a directory", r)
		}
		abs = append(abs, p)
	}
	if opts.TargetExt == "" {
		opts.TargetExt = "webp"
	}
	if opts.StabilityChecks < 2 {
		opts.StabilityChecks = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:    abs,
		opts:     opts,
		runner:   runner,
		history:  history,
		queue:    worker.NewQueue(),
		fsw:      fsw,
		log:      log,
		settling: make(map[string]struct{}),
	}, nil
}

// Run locks the roots, queues every existing image, then converts new and
// changed images every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.unlock()
	defer w.fsw.Close()

	for _, root := range w.roots {
		w.addTree(root)
	}
	w.ScanAll()
	w.log.Infof("watching %s", strings.Join(w.roots, ", "))

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.queue.StopAccepting()
			w.wg.Wait()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("watcher error: %v", err)
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// ScanAll queues every image currently under the roots.
func (w *Watcher) ScanAll() {
	for _, root := range w.roots {
		files, err := scanner.Scan(root, true, true)
		if err != nil {
			w.log.Warnf("scan %s: %v", root, err)
			continue
		}
		for _, f := range files {
			w.consider(f)
		}
	}
}

// Flush converts everything queued so far as one batch.
func (w *Watcher) Flush(ctx context.Context) *batch.Result {
	paths := w.queue.Take()
	if len(paths) == 0 {
		return nil
	}
	jobs := make([]converter.Job, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			w.log.Debugf("skipping vanished file %s", p)
			continue
		}
		job, err := w.jobFor(p)
		if err != nil {
			w.log.Warnf("%v", err)
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil
	}
	return w.runner.Run(ctx, jobs, w.opts.Batch)
}

func (w *Watcher) jobFor(path string) (converter.Job, error) {
	if w.opts.Output == "" {
		return converter.Job{Input: path, Output: scanner.SiblingPath(path, w.opts.TargetExt)}, nil
	}
	root := w.rootOf(path)
	out := scanner.MirrorPath(path, root, w.opts.Output, w.opts.TargetExt)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return converter.Job{}, fmt.Errorf("create output directory for %s: %w", path, err)
	}
	return converter.Job{Input: path, Output: out}, nil
}

func (w *Watcher) rootOf(path string) string {
	best := filepath.Dir(path)
	bestLen := -1
	for _, r := range w.roots {
		rel, err := filepath.Rel(r, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(r) > bestLen {
			best, bestLen = r, len(r)
		}
	}
	return best
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	fi, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if fi.IsDir() {
		if ev.Has(fsnotify.Create) {
			w.addTree(ev.Name)
			// files may have landed before the watch was registered
			if files, err := scanner.Scan(ev.Name, true, true); err == nil {
				for _, f := range files {
					w.settle(f)
				}
			}
		}
		return
	}
	if scanner.IsImageFile(ev.Name) {
		w.settle(ev.Name)
	}
}

// settle waits for path to stop growing before considering it. Events for
// a path that is already settling are dropped.
func (w *Watcher) settle(path string) {
	w.mu.Lock()
	if _, busy := w.settling[path]; busy {
		w.mu.Unlock()
		return
	}
	w.settling[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.settling, path)
			w.mu.Unlock()
		}()
		if err := utils.WaitFileStable(path, w.opts.StabilityDelay, w.opts.StabilityChecks); err != nil {
			w.log.Debugf("file vanished before it settled: %s", path)
			return
		}
		w.consider(path)
	}()
}

// consider queues path unless history shows this exact content was
// already converted.
func (w *Watcher) consider(path string) {
	if w.history != nil {
		sum, err := utils.MD5File(path, w.opts.MD5ChunkSize)
		if err != nil {
			w.log.Warnf("hash %s: %v", path, err)
			return
		}
		done, err := w.history.LastSuccess(path, sum)
		if err != nil {
			w.log.Warnf("history lookup for %s: %v", path, err)
		} else if done {
			w.log.Debugf("already converted, skipping %s", path)
			return
		}
	}
	if w.queue.Enqueue(path) {
		w.log.Debugf("queued %s", path)
	}
}

func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.log.Warnf("watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) lock() error {
	for _, root := range w.roots {
		fl := flock.New(filepath.Join(root, LockFileName))
		ok, err := fl.TryLock()
		if err != nil {
			w.unlock()
			return fmt.Errorf("lock %s: %w", root, err)
		}
		if !ok {
			w.unlock()
			return fmt.Errorf("another watcher is already running on %s", root)
		}
		w.locks = append(w.locks, fl)
	}
	return nil
}

func (w *Watcher) unlock() {
	for _, fl := range w.locks {
		if err := fl.Unlock(); err != nil {
			w.log.Warnf("release lock %s: %v", fl.Path(), err)
		}
	}
	w.locks = nil
}

// QueueLen is the number of images waiting for the next batch.
func (w *Watcher) QueueLen() int { return w.queue.Len() }
