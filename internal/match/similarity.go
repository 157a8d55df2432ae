package match

import (
	"strings"

	"github.com/xrash/smetrics"
)

// jaroWinklerBoostThreshold and jaroWinklerPrefixSize are smetrics.JaroWinkler's
// tuning knobs; these are the library's own documented defaults.
const (
	jaroWinklerBoostThreshold = 0.7
	jaroWinklerPrefixSize     = 4
)

// similarity scores how alike two names are, normalized to [0,1] via
// Jaro-Winkler, case-insensitive. Used by Matcher step 4 (spec.md §4.5) to
// disambiguate a hash hit that lands on Roms belonging to more than one
// System.
func similarity(a, b string) float64 {
	return smetrics.JaroWinkler(strings.ToLower(a), strings.ToLower(b), jaroWinklerBoostThreshold, jaroWinklerPrefixSize)
}

// clearWinnerMargin is how much better the best score must be than the
// runner-up for auto-selection in unattended mode (spec.md §4.5 step 4a) -
// otherwise the match is surfaced to the PromptAdapter instead.
const clearWinnerMargin = 0.08

// bestMatch returns the index of the candidate with the highest similarity
// to basename, and whether its margin over every other candidate clears
// clearWinnerMargin.
func bestMatch(basename string, candidates []string) (idx int, clear bool) {
	if len(candidates) == 0 {
		return -1, false
	}

	scores := make([]float64, len(candidates))
	best := -1
	for i, c := range candidates {
		scores[i] = similarity(basename, c)
		if best == -1 || scores[i] > scores[best] {
			best = i
		}
	}

	runnerUp := -1.0
	for i, sc := range scores {
		if i == best {
			continue
		}
		if sc > runnerUp {
			runnerUp = sc
		}
	}

	return best, scores[best]-runnerUp >= clearWinnerMargin
}
