package main

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/bench"
	"github.com/oxyromon/oxyromon/internal/hash"
)

// benchmarkCommand implements `benchmark [-c CHUNK_SIZE_KB]`, wiring
// straight onto internal/bench.Run/Report.
var benchmarkCommand = &cli.Command{
	Name:  "benchmark",
	Usage: "benchmark the hashing engine",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "chunk-size", Aliases: []string{"c"}, Usage: "chunk size in KiB", Value: hash.DefaultChunkSize / 1024},
	},
	Action: runBenchmark,
}

func runBenchmark(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	result, err := bench.Run(ctx, hash.New(), c.Int("chunk-size"), 3*time.Second)
	if err != nil && result == nil {
		return err
	}

	bench.Report(os.Stdout, result)
	return nil
}
