package dat

import (
	"regexp"
	"strconv"
	"strings"
)

// regionCodes maps the TOSEC/No-Intro 2-letter region convention to the
// canonical codes the Catalog Store stores on Game.Regions. A parenthesized
// group counts as regions only when every comma-separated part is in this
// table; any other unrecognized token is dropped (§4.2 "unparseable names
// are skipped", but an unknown token alone isn't grounds to skip the whole
// Game - only a totally malformed name is).
var regionCodes = map[string]string{
	"US": "US", "USA": "US",
	"EU": "EU", "Europe": "EU",
	"JP": "JP", "Japan": "JP",
	"UK": "UK", "World": "W", "Asia": "AS",
	"BR": "BR", "Brazil": "BR",
	"CA": "CA", "Canada": "CA",
	"FR": "FR", "France": "FR",
	"DE": "DE", "Germany": "DE",
	"IT": "IT", "Italy": "IT",
	"ES": "ES", "Spain": "ES",
	"AU": "AU", "Australia": "AU",
	"KR": "KR", "Korea": "KR",
	"CN": "CN", "China": "CN",
}

var (
	parenGroup   = regexp.MustCompile(`\(([^()]*)\)`)
	revisionToken = regexp.MustCompile(`(?i)^rev\s*([0-9]+(?:\.[0-9]+)?)$`)
	versionToken  = regexp.MustCompile(`(?i)^v\s*([0-9]+(?:\.[0-9]+)?)$`)
	discToken     = regexp.MustCompile(`(?i)^(?:disc|disk|cd)\s*([0-9]+)`)
	languageToken = regexp.MustCompile(`^[A-Z][a-z](,[A-Z][a-z])*$`)

	knownFlags = map[string]bool{
		"Proto": true, "Beta": true, "Alpha": true, "Demo": true,
		"Sample": true, "Prototype": true, "Unl": true, "Unlicensed": true,
		"Pirate": true, "Hack": true, "Aftermarket": true, "Promo": true,
		"Kiosk": true, "Debug": true, "Program": true, "Test": true,
	}
)

// ParsedName is the output of the naming-convention grammar: base title
// plus everything extracted from parenthesized tokens, per spec.md §4.2.
type ParsedName struct {
	BaseTitle string
	Regions   []string
	Languages []string
	Flags     []string
	Revision  string
	DiscIndex int
	ParentHint string
}

// ErrUnparseableName is returned when name has no recognizable base title
// at all (for example, an empty string before the first parenthesis).
type ErrUnparseableName struct {
	Name string
}

func (e *ErrUnparseableName) Error() string {
	return "dat: unparseable name: " + strconv.Quote(e.Name)
}

// ParseName applies the TOSEC region convention plus No-Intro/Redump flag
// extraction described in spec.md §4.2.
func ParseName(name string) (ParsedName, error) {
	base := strings.TrimSpace(parenGroup.ReplaceAllString(name, ""))
	base = strings.TrimSpace(strings.Join(strings.Fields(base), " "))
	if base == "" {
		return ParsedName{}, &ErrUnparseableName{Name: name}
	}

	p := ParsedName{BaseTitle: base}

	for _, m := range parenGroup.FindAllStringSubmatch(name, -1) {
		token := strings.TrimSpace(m[1])
		if token == "" {
			continue
		}

		switch {
		case isRegionList(token):
			p.Regions = append(p.Regions, splitRegionList(token)...)
		case languageToken.MatchString(token):
			p.Languages = append(p.Languages, strings.Split(token, ",")...)
		case revisionToken.MatchString(token):
			p.Revision = revisionToken.FindStringSubmatch(token)[1]
		case versionToken.MatchString(token):
			p.Revision = versionToken.FindStringSubmatch(token)[1]
		case discToken.MatchString(token):
			if idx, err := strconv.Atoi(discToken.FindStringSubmatch(token)[1]); err == nil {
				p.DiscIndex = idx
			}
		case knownFlags[token]:
			p.Flags = append(p.Flags, token)
		default:
			// Unrecognized parenthesized tokens (e.g. publisher
			// codes, obscure flags) are dropped rather than
			// treated as a parse failure - only a missing base
			// title aborts the whole Game.
		}
	}

	p.ParentHint = p.BaseTitle

	return p, nil
}

func isRegionList(token string) bool {
	for _, part := range strings.Split(token, ",") {
		if _, ok := regionCodes[strings.TrimSpace(part)]; !ok {
			return false
		}
	}
	return true
}

func splitRegionList(token string) []string {
	parts := strings.Split(token, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if code, ok := regionCodes[part]; ok {
			out = append(out, code)
		}
	}
	return out
}
