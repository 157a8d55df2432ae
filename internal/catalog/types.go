// Package catalog persists the normalized System/Game/Rom/Romfile entity
// graph described by spec.md §3, and answers the set-difference queries
// (orphans, missing, foreign) the Sorter and CLI drive from. Grounded on
// retronian-romu/internal/db/db.go's sql.Open+WAL+CREATE TABLE IF NOT
// EXISTS shape, generalized to the full entity set and a single-writer
// mutex per spec.md §4.1/§5.
package catalog

// SystemID, GameID, RomID and RomfileID are opaque integer identifiers, per
// spec.md §3 ("identifiers are opaque integers").
type (
	SystemID   int64
	GameID     int64
	RomID      int64
	RomfileID  int64
	HeaderID   int64
	PatchID    int64
	PlaylistID int64
)

// MergingStrategy is a System's arcade ROM-sharing policy.
type MergingStrategy string

const (
	MergingSplit         MergingStrategy = "split"
	MergingNonMerged     MergingStrategy = "non-merged"
	MergingFullNonMerged MergingStrategy = "full-non-merged"
	MergingNone          MergingStrategy = "none"
)

// Completion is the cached UI rollup described by spec.md §3 invariant 4.
type Completion string

const (
	CompletionNone     Completion = "none"
	CompletionPartial  Completion = "partial"
	CompletionComplete Completion = "complete"
)

// Sorting is a Game's cached UI bucket.
type Sorting string

const (
	SortingAllRegions Sorting = "all-regions"
	SortingOneRegion  Sorting = "one-region"
	SortingIgnored    Sorting = "ignored"
)

// RomStatus mirrors the Logiqx status attribute a Rom was parsed with.
type RomStatus string

const (
	StatusGood     RomStatus = "good"
	StatusBadDump  RomStatus = "baddump"
	StatusNoDump   RomStatus = "nodump"
	StatusVerified RomStatus = "verified"
)

// ParsedSystem is what C2 (internal/dat) hands UpsertSystem.
type ParsedSystem struct {
	Name        string
	Description string
	Version     string
	Arcade      bool
}

// ParsedGame is what C2 hands SyncGames, one per Game in a dat.
type ParsedGame struct {
	Name      string
	Category  string
	Parent    string
	Bios      string
	Regions   []string
	Languages []string
	Flags     []string
	Revision  string
	DiscIndex int
	Roms      []ParsedRom
}

// ParsedRom is one Rom entry within a ParsedGame.
type ParsedRom struct {
	Name   string
	Size   *int64
	CRC32  string
	MD5    string
	SHA1   string
	Status RomStatus
	Parent string
	Bios   bool
}

// System is the persisted, queryable form of a ParsedSystem.
type System struct {
	ID          SystemID
	Name        string
	CustomName  string
	Description string
	Version     string
	Arcade      bool
	Merging     MergingStrategy
	Completion  Completion
}

// Game is the persisted, queryable form of a ParsedGame.
type Game struct {
	ID         GameID
	SystemID   SystemID
	Name       string
	Category   string
	ParentID   *GameID
	BiosID     *GameID
	Regions    []string
	Languages  []string
	Flags      []string
	Revision   string
	DiscIndex  int
	Completion Completion
	Sorting    Sorting
}

// Rom is the persisted, queryable form of a ParsedRom.
type Rom struct {
	ID        RomID
	GameID    GameID
	Name      string
	Size      *int64
	CRC32     string
	MD5       string
	SHA1      string
	Status    RomStatus
	ParentID  *RomID
	Bios      bool
	RomfileID *RomfileID
}

// Romfile is a physical file or directory under ROM_DIRECTORY.
type Romfile struct {
	ID   RomfileID
	Path string
	Size int64
}

// HashQuery is the (possibly partial) hash set FindRomsByHashes matches
// against, in descending order of specificity: sha1, then md5, then
// size+crc32, per spec.md §4.1's "ordered by descending specificity of hash
// hit."
type HashQuery struct {
	Size  *int64
	CRC32 string
	MD5   string
	SHA1  string
}

// SyncSummary reports what SyncGames changed, for CLI/log surfacing.
type SyncSummary struct {
	GamesAdded     int
	GamesUpdated   int
	GamesRemoved   int
	RomsDetached   int
}
