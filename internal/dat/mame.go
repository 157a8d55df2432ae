package dat

// arcadeSignatures lists clrmamepro header program names that promote a
// System to arcade mode on sight, per spec.md §4.2's "clrmamepro headers
// matching known MAME signatures." <machine> elements always win
// unconditionally (handled directly in logiqx.go); this table only matters
// for the handful of older MAME-derived dats whose games are still
// expressed as <game>, not <machine>.
var arcadeSignatures = []string{
	"MAME",
	"Final Burn Neo",
	"FinalBurn Neo",
	"Mame Cabinet",
}

// IsArcadeSignature reports whether name (typically clrmamepro's top-level
// "name" field) matches a known arcade dat generator.
func IsArcadeSignature(name string) bool {
	for _, sig := range arcadeSignatures {
		if name == sig {
			return true
		}
	}
	return false
}
