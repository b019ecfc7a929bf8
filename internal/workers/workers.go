package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "VIEWER_WORKERS"

// Count returns the number of workers for a task type. It follows container
// CPU limits through GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// limit caps the result; 0 means no cap. A positive VIEWER_WORKERS value
// replaces the computed count but is still capped.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns the worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns the worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns the worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Each calls fn for every index in [0, n) on at most workers goroutines.
// Indexes are handed out in ascending order. Once ctx is done no further
// index is started and Each returns ctx.Err() after the running calls finish.
func Each(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) error {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(ctx, i)
			}
		}()
	}

	var err error
feed:
	for i := range n {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return err
}
