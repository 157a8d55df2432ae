package catalog

import "errors"

// Sentinel errors returned by Store methods, per spec.md §4.1/§7. Anything
// not matched by errors.Is against one of these is a Fatal (surfaced
// unwrapped, as-is, by callers).
var (
	ErrNotFound  = errors.New("catalog: not found")
	ErrConflict  = errors.New("catalog: conflict")
	ErrMigration = errors.New("catalog: migration failed")
	ErrIo        = errors.New("catalog: io error")
)
