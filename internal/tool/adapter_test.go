package tool

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeNotInstalledForUnknownBinary(t *testing.T) {
	a := Adapter{Names: []string{"definitely-not-a-real-tool-binary"}}
	_, err := a.Probe(context.Background())
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestRunExecutesResolvedBinary(t *testing.T) {
	a := Adapter{Names: []string{"echo"}}
	result, err := a.Run(context.Background(), []string{"hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Code)
	assert.Contains(t, result.Stdout, "hello")
}

func TestRunReportsNonZeroExitCode(t *testing.T) {
	a := Adapter{Names: []string{"false"}}
	result, err := a.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, 0, result.Code)
}

func TestConfiguredPathTakesPriority(t *testing.T) {
	a := Adapter{Names: []string{"echo"}, Path: "definitely-does-not-exist-anywhere"}
	_, err := a.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInstalled))
}

func TestMacFallbackOrderInsertsSevenZZAheadOfSevenZ(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("mac-specific fallback order")
	}
	out := macFallbackOrder([]string{"7z"})
	assert.Equal(t, []string{"7zz", "7z"}, out)
}
