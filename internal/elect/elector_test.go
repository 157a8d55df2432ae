package elect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseSettings() Settings {
	return Settings{
		RegionsOne:       []string{"US", "EU", "JP"},
		RegionsOneStrict: true,
	}
}

func TestElectPrefersEarliestRegion(t *testing.T) {
	cluster := []Game{
		{Name: "Game (Europe)", Regions: []string{"EU"}},
		{Name: "Game (USA)", Regions: []string{"US"}},
		{Name: "Game (Japan)", Regions: []string{"JP"}},
	}

	result := Elect(cluster, baseSettings())
	assert.Equal(t, "Game (USA)", result.Winner)
	assert.ElementsMatch(t, []string{"Game (Europe)", "Game (Japan)"}, result.Ignored)
}

func TestElectIneligibleWhenRegionUnranked(t *testing.T) {
	cluster := []Game{
		{Name: "Game (Brazil)", Regions: []string{"BR"}},
	}

	result := Elect(cluster, baseSettings())
	assert.Empty(t, result.Winner)
	assert.Equal(t, []string{"Game (Brazil)"}, result.Ignored)
}

func TestElectRegionsOneStrictFalseRequiresRomsOnDisk(t *testing.T) {
	s := baseSettings()
	s.RegionsOneStrict = false

	cluster := []Game{
		{Name: "Game (USA)", Regions: []string{"US"}, AllRomsOnDisk: false},
		{Name: "Game (Europe)", Regions: []string{"EU"}, AllRomsOnDisk: true},
	}

	result := Elect(cluster, s)
	assert.Equal(t, "Game (Europe)", result.Winner)
}

func TestElectPreferParentsBreaksTieTowardParent(t *testing.T) {
	s := baseSettings()
	s.PreferParents = true

	cluster := []Game{
		{Name: "Game (USA) (Rev 1)", Regions: []string{"US"}, IsParent: false},
		{Name: "Game (USA)", Regions: []string{"US"}, IsParent: true},
	}

	result := Elect(cluster, s)
	assert.Equal(t, "Game (USA)", result.Winner)
}

func TestElectPreferVersionsNewPicksHighestRevision(t *testing.T) {
	s := baseSettings()
	s.PreferVersions = PreferVersionsNew

	cluster := []Game{
		{Name: "Game (USA) (Rev 1)", Regions: []string{"US"}, Revision: 1},
		{Name: "Game (USA) (Rev 2)", Regions: []string{"US"}, Revision: 2},
	}

	result := Elect(cluster, s)
	assert.Equal(t, "Game (USA) (Rev 2)", result.Winner)
}

func TestElectPreferFlagsBreaksTie(t *testing.T) {
	s := baseSettings()
	s.PreferFlags = []string{"Rev A"}

	cluster := []Game{
		{Name: "Game (USA)", Regions: []string{"US"}},
		{Name: "Game (USA) (Rev A)", Regions: []string{"US"}, Flags: []string{"Rev A"}},
	}

	result := Elect(cluster, s)
	assert.Equal(t, "Game (USA) (Rev A)", result.Winner)
}

func TestElectLanguageWhitelistExcludesNonMatching(t *testing.T) {
	s := baseSettings()
	s.Languages = []string{"Fr"}

	cluster := []Game{
		{Name: "Game (Europe) (En)", Regions: []string{"EU"}, Languages: []string{"En"}},
		{Name: "Game (Europe) (Fr)", Regions: []string{"EU"}, Languages: []string{"Fr"}},
	}

	result := Elect(cluster, s)
	assert.Equal(t, "Game (Europe) (Fr)", result.Winner)
}

func TestElectDeterministicTiebreakerIsLowercaseName(t *testing.T) {
	cluster := []Game{
		{Name: "Zeta (USA)", Regions: []string{"US"}},
		{Name: "Alpha (USA)", Regions: []string{"US"}},
	}

	result := Elect(cluster, baseSettings())
	assert.Equal(t, "Alpha (USA)", result.Winner)
}

func TestElectStableAcrossInputOrder(t *testing.T) {
	a := []Game{
		{Name: "Game (USA)", Regions: []string{"US"}},
		{Name: "Game (Europe)", Regions: []string{"EU"}},
	}
	b := []Game{a[1], a[0]}

	assert.Equal(t, Elect(a, baseSettings()).Winner, Elect(b, baseSettings()).Winner)
}
