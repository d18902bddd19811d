package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestCounterConcurrentInc(t *testing.T) {
	c := NewCounter(500)
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	if c.Done() != 500 {
		t.Errorf("Done() = %d, want 500", c.Done())
	}
}

func TestCounterNeverExceedsTotal(t *testing.T) {
	c := NewCounter(3)
	for i := 0; i < 10; i++ {
		c.Inc()
	}
	if c.Done() != 3 {
		t.Errorf("Done() = %d, want clamp at 3", c.Done())
	}
}

func TestCounterMessageAndFinish(t *testing.T) {
	c := NewCounter(1)
	c.SetMessage("Converting files...")
	if c.Message() != "Converting files..." {
		t.Errorf("unexpected message %q", c.Message())
	}
	if c.Finished() {
		t.Error("finished before Finish")
	}
	c.Finish()
	if !c.Finished() {
		t.Error("Finish not recorded")
	}
}

func TestBarRendersWhenVisible(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(2, &buf, true)
	b.SetMessage("Converting files...")
	b.Inc()
	b.Inc()
	b.Inc()
	b.Finish()

	if b.Done() != 2 {
		t.Errorf("Done() = %d, want 2", b.Done())
	}
	if !strings.Contains(buf.String(), "2/2") {
		t.Errorf("expected count in bar output, got %q", buf.String())
	}
}

func TestBarSilentWhenHidden(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(1, &buf, false)
	b.Inc()
	b.Finish()
	if b.Done() != 1 {
		t.Errorf("hidden bar must still count, got %d", b.Done())
	}
	if strings.Contains(buf.String(), "1/1") {
		t.Errorf("hidden bar rendered output: %q", buf.String())
	}
}
