// Package convert implements the Converter, Rebuilder and Exporter
// (spec.md C8): raw<->7Z/ZIP via internal/archive directly, CUE/BIN<->CHD
// and ISO<->CHD/CSO/RVZ/ZSO via internal/tool adapters, arcade rebuilding,
// and out-of-tree lossy export.
package convert

import (
	"errors"
	"fmt"
	"os"

	"github.com/oxyromon/oxyromon/internal/catalog"
)

// State is one node of the single-conversion state machine of spec.md
// §4.8:
//
//	Planned → Staged(tmp) → Encoded(tmp) → Verified(optional) → Published(target) → Reconciled(C1)
//	         ↑                                                                   ↓
//	         └──────────────────── Failed (scoped cleanup, no C1 write) ─────────┘
type State string

const (
	StatePlanned    State = "planned"
	StateStaged     State = "staged"
	StateEncoded    State = "encoded"
	StateVerified   State = "verified"
	StatePublished  State = "published"
	StateReconciled State = "reconciled"
	StateFailed     State = "failed"
)

// ErrInvalidTransition is returned when a caller asks a Job to skip ahead
// or move backward in the state machine.
var ErrInvalidTransition = errors.New("convert: invalid state transition")

// transitions enumerates every edge of the diagram above; Verified is
// optional, so Encoded may go straight to Published.
var transitions = map[State][]State{
	StatePlanned:    {StateStaged, StateFailed},
	StateStaged:     {StateEncoded, StateFailed},
	StateEncoded:    {StateVerified, StatePublished, StateFailed},
	StateVerified:   {StatePublished, StateFailed},
	StatePublished:  {StateReconciled, StateFailed},
	StateReconciled: nil,
	StateFailed:     nil,
}

// Job is one Rom (or one archive member set) moving through the state
// machine. SourcePath is the existing on-disk container; StagedPath and
// EncodedPath are tmp-scoped intermediates; TargetPath is the final
// destination, in tree for the Converter or out of tree for the Exporter.
type Job struct {
	State       State
	Rom         catalog.RomID
	SourcePath  string
	StagedPath  string
	EncodedPath string
	TargetPath  string

	cleanup []string
}

// NewJob starts a Job in Planned for rom, reading from sourcePath.
func NewJob(rom catalog.RomID, sourcePath string) *Job {
	return &Job{State: StatePlanned, Rom: rom, SourcePath: sourcePath}
}

// transitionTo moves the job to next, rejecting any edge not present in
// transitions.
func (j *Job) transitionTo(next State) error {
	for _, allowed := range transitions[j.State] {
		if allowed == next {
			j.State = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, next)
}

// stage records a tmp path for Fail to clean up later, regardless of which
// State field it ends up assigned to.
func (j *Job) stage(path string) {
	j.cleanup = append(j.cleanup, path)
}

// Fail transitions the job to Failed, best-effort removing every tmp path
// staged so far, and returns cause wrapped with any cleanup error. No C1
// write happens once a Job reaches Failed: the caller must not call
// Reconcile.
func (j *Job) Fail(cause error) error {
	j.State = StateFailed

	var cleanupErr error
	for _, p := range j.cleanup {
		if err := os.RemoveAll(p); err != nil && cleanupErr == nil {
			cleanupErr = err
		}
	}
	j.cleanup = nil

	if cleanupErr != nil {
		return fmt.Errorf("%w (cleanup also failed: %v)", cause, cleanupErr)
	}
	return cause
}
