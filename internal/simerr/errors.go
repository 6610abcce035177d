// Package simerr defines the simulation's named error conditions. Sweep
// code (checkpoint, decision cycle, event dispatch) treats all of these
// as skip-and-log for the one actor involved, except ErrCorruptSave,
// which a save/load caller must handle explicitly rather than silently
// treat as an empty save.
package simerr

import "errors"

var (
	ErrMissingComponent = errors.New("simerr: actor missing required component")
	ErrMissingNode      = errors.New("simerr: subzone node not found")
	ErrImpassableTarget = errors.New("simerr: target position is not passable")
	ErrNoPath           = errors.New("simerr: no path to destination")
	ErrDeadActor        = errors.New("simerr: actor is dead")
	ErrCorruptSave      = errors.New("simerr: save file is corrupt")
)
