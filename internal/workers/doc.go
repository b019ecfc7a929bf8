/*
Package workers sizes worker pools for containerized deployments and runs
bounded fan-out loops.

Container CPU limits show up in GOMAXPROCS, not in runtime.NumCPU, so pool
sizes are derived from GOMAXPROCS:

	n := workers.ForCPU(8)  // thumbnail encoding
	n := workers.ForIO(16)  // archive and library reads
	n := workers.ForMixed(12)

Operators can pin the count with VIEWER_WORKERS; a configured limit still
applies.

Each runs a function over an index range with a fixed number of goroutines
and stops handing out work once its context is done:

	err := workers.Each(ctx, workers.ForMixed(8), len(entries), func(ctx context.Context, i int) {
	    results[i] = load(ctx, entries[i])
	})
*/
package workers
