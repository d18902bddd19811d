// Package progress provides the completion counter shared by every job of
// a batch. One Tracker is created per batch and discarded afterwards.
package progress

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker is incremented once per finished job, whatever its outcome.
// Implementations must be safe for concurrent use and must not block.
type Tracker interface {
	Inc()
	SetMessage(msg string)
	Finish()
}

// Counter is a headless Tracker. Its value never exceeds the total it was
// created with.
type Counter struct {
	total int64
	done  atomic.Int64

	mu       sync.Mutex
	message  string
	finished bool
}

func NewCounter(total int) *Counter {
	return &Counter{total: int64(total)}
}

// inc adds one completion and reports whether the counter moved.
func (c *Counter) inc() bool {
	for {
		cur := c.done.Load()
		if cur >= c.total {
			return false
		}
		if c.done.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (c *Counter) Inc() { c.inc() }

func (c *Counter) SetMessage(msg string) {
	c.mu.Lock()
	c.message = msg
	c.mu.Unlock()
}

func (c *Counter) Finish() {
	c.mu.Lock()
	c.finished = true
	c.mu.Unlock()
}

func (c *Counter) Done() int  { return int(c.done.Load()) }
func (c *Counter) Total() int { return int(c.total) }

func (c *Counter) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

func (c *Counter) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Bar renders a Counter as a terminal progress bar.
type Bar struct {
	*Counter
	bar *progressbar.ProgressBar
}

// NewBar draws on w. When visible is false the bar keeps counting but
// renders nothing.
func NewBar(total int, w io.Writer, visible bool) *Bar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerHead:    ">",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { io.WriteString(w, "\n") }),
	)
	return &Bar{Counter: NewCounter(total), bar: bar}
}

// NewTerminalBar draws on stderr only when stderr is a terminal.
func NewTerminalBar(total int) *Bar {
	return NewBar(total, os.Stderr, IsTerminal(os.Stderr))
}

func (b *Bar) Inc() {
	if b.Counter.inc() {
		_ = b.bar.Add(1)
	}
}

func (b *Bar) SetMessage(msg string) {
	b.Counter.SetMessage(msg)
	b.bar.Describe(msg)
}

func (b *Bar) Finish() {
	b.Counter.Finish()
	_ = b.bar.Finish()
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
