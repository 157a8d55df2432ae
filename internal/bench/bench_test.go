package bench

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/hash"
)

func TestRunRecordsIterationsAndBytes(t *testing.T) {
	engine := hash.New()
	result, err := Run(context.Background(), engine, 4, 50*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 4, result.ChunkSize)
	assert.Greater(t, result.Iterations, int64(0))
	assert.Equal(t, result.Iterations*4*1024, result.TotalBytes)
	assert.Greater(t, result.Throughput(), float64(0))
}

func TestRunDefaultsChunkSize(t *testing.T) {
	engine := hash.New()
	result, err := Run(context.Background(), engine, 0, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, hash.DefaultChunkSize/1024, result.ChunkSize)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	engine := hash.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, engine, 4, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, result)
}

func TestReportWritesSummaryAndDistribution(t *testing.T) {
	engine := hash.New()
	result, err := Run(context.Background(), engine, 4, 20*time.Millisecond)
	require.NoError(t, err)

	var buf bytes.Buffer
	Report(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "chunk size = 4 KiB")
	assert.Contains(t, out, "throughput =")
	assert.Contains(t, out, "latency cumulative distribution =")
}
