package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestProgressRendersCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(200)
	p.Update(50)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "50/200 records") {
		t.Errorf("output missing intermediate count: %q", out)
	}
	if !strings.Contains(out, "200/200 records") {
		t.Errorf("Finish should render the full count: %q", out)
	}
	if !strings.Contains(out, "100.0%") {
		t.Errorf("Finish should render 100%%: %q", out)
	}
}

func TestProgressZeroTotalIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	// An export that matched nothing should not draw a bar.
	p.Start(0)
	p.Update(0)

	if got := buf.String(); got != "" {
		t.Errorf("zero-total progress wrote %q", got)
	}
}

func TestProgressError(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(10)
	p.Error(errors.New("storage unavailable"))

	if !strings.Contains(buf.String(), "storage unavailable") {
		t.Errorf("error output missing cause: %q", buf.String())
	}
}

func TestProgressConcurrentUpdates(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(500)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for j := int64(0); j < 100; j++ {
				p.Update(base + j)
			}
		}(int64(i * 100))
	}
	wg.Wait()
	p.Finish()

	if buf.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestProgressNilWriterDefaultsToStdout(t *testing.T) {
	p := NewProgressReporter(nil)
	if p == nil {
		t.Fatal("NewProgressReporter(nil) returned nil")
	}
}
