package hash

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineSum(t *testing.T) {
	data := []byte("Sonic the Hedgehog")

	e := New()
	d, err := e.Sum(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), d.Size)
	assert.Len(t, d.CRC32Hex(), 8)
	assert.Len(t, d.MD5Hex(), 32)
	assert.Len(t, d.SHA1Hex(), 40)
}

func TestEngineSumChunked(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 10*1024)

	whole := New()
	want, err := whole.Sum(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	chunked := &Engine{ChunkSize: 64}
	got, err := chunked.Sum(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestEngineSumCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	_, err := e.Sum(ctx, bytes.NewReader(bytes.Repeat([]byte{1}, 1024)))
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestEngineSumWithHeaderNES(t *testing.T) {
	header := append([]byte{'N', 'E', 'S', 0x1a}, make([]byte, 12)...)
	payload := []byte("PRG+CHR bytes")
	full := append(header, payload...)

	e := New()
	res, err := e.SumWithHeader(context.Background(), bytes.NewReader(full), EmbeddedHeaderSets["Nintendo - Nintendo Entertainment System"])
	require.NoError(t, err)

	require.NotNil(t, res.Stripped)
	assert.EqualValues(t, 16, res.HeaderLen)

	stripped, err := e.Sum(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, stripped.CRC32Hex(), res.Stripped.CRC32Hex())

	rawWhole, err := e.Sum(context.Background(), bytes.NewReader(full))
	require.NoError(t, err)
	assert.Equal(t, rawWhole.CRC32Hex(), res.Raw.CRC32Hex())
}

func TestEngineSumWithHeaderNoMatch(t *testing.T) {
	payload := []byte("not a headered rom, just sixteen or more bytes of plain data")

	e := New()
	res, err := e.SumWithHeader(context.Background(), bytes.NewReader(payload), EmbeddedHeaderSets["Nintendo - Nintendo Entertainment System"])
	require.NoError(t, err)
	assert.Nil(t, res.Stripped)
}
