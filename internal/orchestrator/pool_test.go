package orchestrator

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFanOut_PreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 8, 1, 9, 2, 7}
	got := fanOut(context.Background(), 3, slog.Default(), items, func(ctx context.Context, n int) int {
		// Later items finish first, so ordering cannot come for free.
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n * 10
	})

	if len(got) != len(items) {
		t.Fatalf("results = %d; want %d", len(got), len(items))
	}
	for i, n := range items {
		if got[i] != n*10 {
			t.Errorf("results[%d] = %d; want %d", i, got[i], n*10)
		}
	}
}

func TestFanOut_BoundsConcurrency(t *testing.T) {
	const workers = 4
	var inFlight, peak atomic.Int32

	items := make([]int, 32)
	fanOut(context.Background(), workers, slog.Default(), items, func(ctx context.Context, _ int) struct{} {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}
	})

	if p := peak.Load(); p > workers {
		t.Errorf("peak concurrency = %d; want at most %d", p, workers)
	}
}

func TestFanOut_RunsEveryItemExactlyOnce(t *testing.T) {
	const count = 50
	items := make([]int, count)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]int)
	fanOut(context.Background(), 5, slog.Default(), items, func(ctx context.Context, n int) struct{} {
		mu.Lock()
		seen[n]++
		mu.Unlock()
		return struct{}{}
	})

	if len(seen) != count {
		t.Fatalf("distinct items processed = %d; want %d", len(seen), count)
	}
	for n, c := range seen {
		if c != 1 {
			t.Errorf("item %d processed %d times", n, c)
		}
	}
}

func TestFanOut_RefusedUnitsAreLoggedNotLost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var ran atomic.Int32
	got := fanOut(ctx, 2, logger, []int{1, 2, 3, 4}, func(ctx context.Context, n int) int {
		ran.Add(1)
		return n
	})

	// Every unit reports back, run or refused; refusals leave a zero value
	// and must have produced a log line.
	if len(got) != 4 {
		t.Fatalf("results = %d; want 4", len(got))
	}
	if int(ran.Load()) < 4 && !bytes.Contains(buf.Bytes(), []byte("not dispatched")) {
		t.Errorf("refused units produced no log line; log: %q", buf.String())
	}
}

func TestFanOut_EmptyBatch(t *testing.T) {
	got := fanOut(context.Background(), 5, slog.Default(), nil, func(ctx context.Context, n int) int { return n })
	if got != nil {
		t.Errorf("results = %v; want nil", got)
	}
}
