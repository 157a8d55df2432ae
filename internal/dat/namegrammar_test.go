package dat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNameRegionsAndFlags(t *testing.T) {
	p, err := ParseName("Chrono Trigger (USA) (Rev 1) (Beta)")
	require.NoError(t, err)

	assert.Equal(t, "Chrono Trigger", p.BaseTitle)
	assert.Equal(t, []string{"US"}, p.Regions)
	assert.Equal(t, "1", p.Revision)
	assert.Equal(t, []string{"Beta"}, p.Flags)
}

func TestParseNameLanguages(t *testing.T) {
	p, err := ParseName("Super Mario World (Europe) (En,Fr,De)")
	require.NoError(t, err)

	assert.Equal(t, []string{"EU"}, p.Regions)
	assert.Equal(t, []string{"En", "Fr", "De"}, p.Languages)
}

func TestParseNameDiscIndex(t *testing.T) {
	p, err := ParseName("Final Fantasy VII (USA) (Disc 2)")
	require.NoError(t, err)

	assert.Equal(t, 2, p.DiscIndex)
}

func TestParseNameUnparseable(t *testing.T) {
	_, err := ParseName("(USA) (Rev 1)")
	require.Error(t, err)

	var target *ErrUnparseableName
	assert.ErrorAs(t, err, &target)
}
