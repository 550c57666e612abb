package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer guards a buffer shared with the spinner goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func spinnerTo(ctx context.Context, draw bool) (*Spinner, *lockedBuffer) {
	out := &lockedBuffer{}
	s := newSpinnerWithContext(ctx, "Separating layers...")
	s.out = out
	s.draw = draw
	return s, out
}

func TestSpinnerDraw(t *testing.T) {
	tests := []struct {
		name string
		draw bool
	}{
		{"terminal", true},
		{"not a terminal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out := spinnerTo(context.Background(), tt.draw)
			s.Start()
			time.Sleep(200 * time.Millisecond)
			s.Stop()

			got := out.String()
			if tt.draw && !strings.Contains(got, "Separating layers...") {
				t.Errorf("terminal spinner drew nothing: %q", got)
			}
			if !tt.draw && got != "" {
				t.Errorf("non-terminal spinner wrote %q", got)
			}
		})
	}
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := spinnerTo(ctx, false)
	s.Start()
	if s.Cancelled() {
		t.Fatal("spinner cancelled before its context")
	}
	cancel()
	time.Sleep(50 * time.Millisecond)
	if !s.Cancelled() {
		t.Error("spinner should report cancellation")
	}
}

func TestSpinnerTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s, _ := spinnerTo(ctx, false)
	s.Start()
	time.Sleep(80 * time.Millisecond)
	if !s.Cancelled() {
		t.Error("spinner should stop when its context times out")
	}
}

func TestSpinnerStopTwice(t *testing.T) {
	s, _ := spinnerTo(context.Background(), true)
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithError(t *testing.T) {
	s := newSpinner("Separating layers...")
	s.draw = false
	s.Start()
	s.StopWithError("Separation failed")
}
