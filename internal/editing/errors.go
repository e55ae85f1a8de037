package editing

import "errors"

var (
	// ErrDeleted is returned when reading or writing an object that has
	// been deleted in this context.
	ErrDeleted = errors.New("object was deleted")
	// ErrForeignObject is returned when an object from another context is
	// passed to Delete.
	ErrForeignObject = errors.New("object belongs to another context")
	// ErrQueueClosed is returned when a parent's queue no longer accepts work.
	ErrQueueClosed = errors.New("context queue is closed")
)
