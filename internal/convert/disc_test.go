package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/tool"
)

func TestDiscConverterCommandForKnownPairs(t *testing.T) {
	c := &DiscConverter{Chdman: tool.Chdman, MaxCSO: tool.MaxCSO, DolphinTool: tool.DolphinTool}

	adapter, args, err := c.commandFor(DiscFormatCueBin, DiscFormatChd, "in.cue", "out.chd")
	require.NoError(t, err)
	assert.Equal(t, tool.Chdman.Names, adapter.Names)
	assert.Contains(t, args, "createcd")

	adapter, args, err = c.commandFor(DiscFormatIso, DiscFormatCso, "in.iso", "out.cso")
	require.NoError(t, err)
	assert.Equal(t, tool.MaxCSO.Names, adapter.Names)
	assert.Contains(t, args, "in.iso")
}

func TestDiscConverterCommandForRejectsUnknownPair(t *testing.T) {
	c := &DiscConverter{}
	_, _, err := c.commandFor(DiscFormatCso, DiscFormatRvz, "in.cso", "out.rvz")
	assert.Error(t, err)
}

func TestDiscExtensions(t *testing.T) {
	assert.Equal(t, ".chd", discExtension(DiscFormatChd))
	assert.Equal(t, ".iso", discExtension(DiscFormatIso))
	assert.Equal(t, ".cso", discExtension(DiscFormatCso))
	assert.Equal(t, ".rvz", discExtension(DiscFormatRvz))
}
