// Package bench drives internal/hash.Engine over a synthetic in-memory
// buffer and reports latency/throughput percentiles, backing the
// `benchmark -c CHUNK_SIZE_KB` CLI verb of spec.md §6. Grounded on
// uwedeportivo-romba/service/stats.go's depotstats command, which records
// values into a codahale/hdrhistogram.Histogram and walks its
// CumulativeDistribution to print a count/percentile/value table; here the
// recorded value is per-digest latency in nanoseconds instead of ROM size
// in bytes, and throughput is derived from it rather than recorded
// directly.
package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/dustin/go-humanize"

	"github.com/oxyromon/oxyromon/internal/hash"
)

// Result is one benchmark run's outcome: a histogram of per-digest
// latencies in nanoseconds, alongside the run's totals.
type Result struct {
	ChunkSize  int
	Iterations int64
	TotalBytes int64
	Elapsed    time.Duration
	Latency    *hdrhistogram.Histogram
}

// Throughput returns the run's average bytes/second.
func (r *Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.TotalBytes) / r.Elapsed.Seconds()
}

// Run digests a chunkSizeKB buffer of zero bytes repeatedly through engine
// for duration (or until ctx is done, whichever comes first), recording
// each digest's wall-clock latency. A chunk is re-read from the same
// buffer every iteration; the cost being measured is the Engine's
// CRC32/MD5/SHA1 fan-out, not I/O.
func Run(ctx context.Context, engine *hash.Engine, chunkSizeKB int, duration time.Duration) (*Result, error) {
	if chunkSizeKB <= 0 {
		chunkSizeKB = hash.DefaultChunkSize / 1024
	}

	buf := make([]byte, chunkSizeKB*1024)
	h := hdrhistogram.New(0, int64(time.Minute), 3)

	result := &Result{ChunkSize: chunkSizeKB, Latency: h}

	deadline := time.Now().Add(duration)
	start := time.Now()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			result.Elapsed = time.Since(start)
			return result, ctx.Err()
		default:
		}

		iterStart := time.Now()
		digest, err := engine.Sum(ctx, bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("bench: %w", err)
		}
		latency := time.Since(iterStart)

		if err := h.RecordValue(int64(latency)); err != nil {
			return nil, fmt.Errorf("bench: record latency: %w", err)
		}
		result.Iterations++
		result.TotalBytes += digest.Size
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// Report prints a count/percentile/latency table plus a throughput
// summary, in the same cumulative-distribution-table shape as
// depotstats's rom size report.
func Report(w io.Writer, r *Result) {
	fmt.Fprintf(w, "chunk size = %d KiB\n", r.ChunkSize)
	fmt.Fprintf(w, "iterations = %d\n", r.Iterations)
	fmt.Fprintf(w, "total digested = %s\n", humanize.IBytes(uint64(r.TotalBytes)))
	fmt.Fprintf(w, "elapsed = %s\n", r.Elapsed)
	fmt.Fprintf(w, "throughput = %s/s\n\n", humanize.IBytes(uint64(r.Throughput())))

	fmt.Fprintf(w, "latency cumulative distribution =\n")
	fmt.Fprintf(w, "count, percentile, latency\n")
	bs := r.Latency.CumulativeDistribution()
	for i, b := range bs {
		next := i == len(bs)-1
		if next || b.ValueAt != bs[i+1].ValueAt {
			fmt.Fprintf(w, "%d, %.8f, %s\n", b.Count, b.Quantile, time.Duration(b.ValueAt))
		}
	}
}
