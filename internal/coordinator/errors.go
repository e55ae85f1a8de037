package coordinator

import (
	"errors"
	"fmt"
)

// Stage identifies where opening a coordinator failed.
type Stage string

const (
	// StageSchema indicates the model could not be resolved from the bundle.
	StageSchema Stage = "schema"

	// StageMemoryAttach indicates the in-memory store could not be attached.
	StageMemoryAttach Stage = "memory-attach"

	// StageDurableAttach indicates the durable store could not be attached,
	// even after deleting the file and retrying.
	StageDurableAttach Stage = "durable-attach"
)

// FatalError means the stack cannot proceed without a store.
type FatalError struct {
	Stage Stage
	Model string

	// Path is the durable file, when one was involved.
	Path string

	Err error
}

func (e *FatalError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: model %q at %s: %v", e.Stage, e.Model, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: model %q: %v", e.Stage, e.Model, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is or wraps a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// FatalStage returns the stage of a wrapped *FatalError, or "".
func FatalStage(err error) Stage {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return ""
}
