package schema

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// ErrModelNotFound is returned by Resolve when the bundle holds no model
// resource with the requested name.
var ErrModelNotFound = errors.New("model not found in bundle")

// CompileError represents a model compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationCode categorizes commit validation failures.
type ValidationCode string

const (
	ValidationUnknownEntity    ValidationCode = "UNKNOWN_ENTITY"
	ValidationUnknownAttribute ValidationCode = "UNKNOWN_ATTRIBUTE"
	ValidationMissingRequired  ValidationCode = "MISSING_REQUIRED"
	ValidationTypeMismatch     ValidationCode = "TYPE_MISMATCH"
)

// ValidationError reports an object that violates its entity definition.
// Commit failures surface it unchanged through the persist completion.
type ValidationError struct {
	Code      ValidationCode
	Entity    string
	Attribute string
	ObjectID  string
	Message   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Attribute != "" && e.ObjectID != "":
		return fmt.Sprintf("%s: %s.%s (object=%s): %s", e.Code, e.Entity, e.Attribute, e.ObjectID, e.Message)
	case e.Attribute != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Entity, e.Attribute, e.Message)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
	}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
