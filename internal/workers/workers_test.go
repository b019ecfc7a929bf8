package workers

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"cpu bound", 1.0, 0, cpus},
		{"io bound", 2.0, 0, cpus * 2},
		{"mixed", 1.5, 0, max(1, int(float64(cpus)*1.5))},
		{"limited", 2.0, 1, 1},
		{"tiny multiplier", 0.0001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name  string
		env   string
		limit int
		want  int
	}{
		{"valid", "8", 0, 8},
		{"capped by limit", "20", 10, 10},
		{"below limit", "5", 10, 5},
		{"non numeric falls back", "many", 0, cpus},
		{"zero falls back", "0", 0, cpus},
		{"negative falls back", "-3", 0, cpus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.env)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count(1.0, %d) with %s=%q = %d, want %d", tt.limit, EnvOverride, tt.env, got, tt.want)
			}
		})
	}
}

func TestHelpersOrdering(t *testing.T) {
	t.Setenv(EnvOverride, "")

	cpu, mixed, io := ForCPU(0), ForMixed(0), ForIO(0)
	if cpu > mixed || mixed > io {
		t.Errorf("ForCPU=%d ForMixed=%d ForIO=%d, want non-decreasing", cpu, mixed, io)
	}
	if got := ForIO(1); got != 1 {
		t.Errorf("ForIO(1) = %d, want 1", got)
	}
}

func TestEachVisitsEveryIndex(t *testing.T) {
	const n = 100
	var (
		mu   sync.Mutex
		seen = make(map[int]int)
	)

	err := Each(context.Background(), 4, n, func(_ context.Context, i int) {
		mu.Lock()
		seen[i]++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if len(seen) != n {
		t.Fatalf("visited %d indexes, want %d", len(seen), n)
	}
	for i, c := range seen {
		if c != 1 {
			t.Errorf("index %d visited %d times", i, c)
		}
	}
}

func TestEachBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	done := make(chan error)
	go func() {
		done <- Each(context.Background(), 2, 10, func(context.Context, int) {
			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			started <- struct{}{}
			<-release
			active.Add(-1)
		})
	}()

	<-started
	<-started
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestEachStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	err := Each(ctx, 1, 1000, func(context.Context, int) {
		if calls.Add(1) == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Each() error = %v, want context.Canceled", err)
	}
	if got := calls.Load(); got >= 1000 {
		t.Errorf("Each() ran %d calls after cancel", got)
	}
}

func TestEachEmpty(t *testing.T) {
	err := Each(context.Background(), 4, 0, func(context.Context, int) {
		t.Error("fn called for empty range")
	})
	if err != nil {
		t.Errorf("Each() error = %v", err)
	}
}
