package supplier

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPacerFirstCallDoesNotWait(t *testing.T) {
	p := NewPacer(time.Hour)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first call waited %v", elapsed)
	}
}

func TestPacerSpacesCalls(t *testing.T) {
	interval := 50 * time.Millisecond
	p := NewPacer(interval)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval-5*time.Millisecond {
		t.Errorf("second call waited only %v, want ~%v", elapsed, interval)
	}
}

// The pacer is shared between overlapping runs, so concurrent callers must
// be spaced out by the interval, not just callers within one run.
func TestPacerConcurrentCallers(t *testing.T) {
	interval := 30 * time.Millisecond
	p := NewPacer(interval)

	const callers = 4
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Wait(context.Background()); err != nil {
				t.Errorf("Wait: %v", err)
			}
		}()
	}
	wg.Wait()

	// The first caller passes immediately; each of the rest occupies one
	// interval-wide slot.
	want := time.Duration(callers-1) * interval
	if elapsed := time.Since(start); elapsed < want-5*time.Millisecond {
		t.Errorf("%d concurrent callers finished in %v, want at least ~%v", callers, elapsed, want)
	}
}

func TestPacerZeroIntervalNeverWaits(t *testing.T) {
	p := NewPacer(0)
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestPacerCancelledContext(t *testing.T) {
	p := NewPacer(time.Hour)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
