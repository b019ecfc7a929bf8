/*
Package memory sizes the Go heap for containers and applies backpressure to
bulk image work.

Configure sets GOMEMLIMIT to a share of the container memory limit, unless
GOMEMLIMIT is already set in the environment:

	memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)

Decoding a page of a large scan can allocate hundreds of megabytes, and
thumbnail batches and cover warm-ups decode many pages at once. A Monitor
samples the heap and, above the critical water mark, pauses that work until
usage drops below the high water mark:

	mon := memory.NewMonitor(memory.DefaultConfig())
	mon.Start()
	defer mon.Stop()

	if err := mon.Wait(ctx); err != nil {
	    return err
	}

The Monitor satisfies media.Gate and is passed to media.LoadThumbnails and
library cover warming.
*/
package memory
