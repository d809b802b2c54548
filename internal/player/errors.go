package player

import "fmt"

// ErrorClass partitions fatal playback errors by the recovery they allow.
type ErrorClass string

const (
	// ClassNetwork covers transport failures; recovery is a source reload.
	ClassNetwork ErrorClass = "network"
	// ClassMedia covers decode/parse failures; recovery is decoder-level.
	ClassMedia ErrorClass = "media"
	// ClassOther covers everything else; the only option is full teardown.
	ClassOther ErrorClass = "other"
)

// FatalError is a playback error the engine cannot absorb on its own.
type FatalError struct {
	Class ErrorClass
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s playback error: %v", e.Class, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
