// Package dat streams Logiqx XML and IRD v9 binary datfiles into the
// normalized entities the Catalog Store persists (spec.md C2).
//
// It generalizes github.com/bodgit/rom/dat's File/Game/ROM structs (which
// xml.Unmarshal a whole document into memory) into a streaming decoder that
// emits one Game at a time, per spec.md §4.2's "streams... to avoid loading
// multi-hundred-megabyte dats into memory."
package dat

// MergingStrategy is a System's arcade ROM-sharing policy.
type MergingStrategy string

const (
	MergingSplit          MergingStrategy = "split"
	MergingNonMerged      MergingStrategy = "non-merged"
	MergingFullNonMerged  MergingStrategy = "full-non-merged"
	MergingNone           MergingStrategy = "none"
)

// RomStatus mirrors Logiqx's status attribute.
type RomStatus string

const (
	StatusGood     RomStatus = "good"
	StatusBadDump  RomStatus = "baddump"
	StatusNoDump   RomStatus = "nodump"
	StatusVerified RomStatus = "verified"
)

// System is the normalized header of a datfile.
type System struct {
	Name       string
	CustomName string
	Description string
	Version    string
	Arcade     bool
	Merging    MergingStrategy
}

// Game is one normalized <game> entry, already run through the name
// grammar.
type Game struct {
	Name     string
	Category string
	Parent   string // empty when this Game has no parent (it may become one)
	Bios     string // name of the BIOS Game this one depends on, if any

	Regions   []string
	Languages []string
	Flags     []string
	Revision  string
	DiscIndex int

	Roms []Rom
}

// Rom is one normalized <rom> entry.
type Rom struct {
	Name   string
	Size   *int64
	CRC32  string
	MD5    string
	SHA1   string
	Status RomStatus
	Parent string
	Bios   bool
}

// ParseSummary is returned alongside a parse, counting what could not be
// understood without aborting the whole import (spec.md §4.2, §7's "item
// skipped with warning; aggregate count surfaced").
type ParseSummary struct {
	GamesParsed     int
	GamesSkipped    int
	SkippedWarnings []string
}
