// Package errors provides standardized error types and helpers for the
// quizmark codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrStructural indicates a block appeared where the transformer
	// state forbids it.
	ErrStructural = errors.New("structural error")
	// ErrShape indicates a list's contents do not fit the answer shape
	// implied by its classification.
	ErrShape = errors.New("shape error")
	// ErrDirective indicates an unknown inline directive or an invalid
	// value for a known one.
	ErrDirective = errors.New("directive error")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
)

// StructuralError represents a block in a position the transformer's
// state machine forbids. It is terminal for the whole document.
type StructuralError struct {
	Block   string // Block kind that was misplaced (e.g., "list", "code block")
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *StructuralError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("misplaced %s: %s", e.Block, e.Message)
	}
	return e.Message
}

func (e *StructuralError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrStructural
}

// ShapeError represents list contents that contradict the shape the
// classifier chose. It is terminal for the whole document.
type ShapeError struct {
	Shape   string // Shape the list was classified as (e.g., "multichoice")
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ShapeError) Error() string {
	if e.Shape != "" {
		return fmt.Sprintf("%s list: %s", e.Shape, e.Message)
	}
	return e.Message
}

func (e *ShapeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrShape
}

// DirectiveError represents an invalid inline @key=value directive.
// It is terminal for the whole document.
type DirectiveError struct {
	Key     string // Directive key as written (e.g., "shuffle")
	Value   string // Directive value as written
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *DirectiveError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("directive %q: %s", e.Key, e.Message)
	}
	return e.Message
}

func (e *DirectiveError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDirective
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewStructural creates a StructuralError
func NewStructural(block, message string) *StructuralError {
	return &StructuralError{
		Block:   block,
		Message: message,
	}
}

// NewShape creates a ShapeError
func NewShape(shape, message string) *ShapeError {
	return &ShapeError{
		Shape:   shape,
		Message: message,
	}
}

// NewDirective creates a DirectiveError
func NewDirective(key, value, message string) *DirectiveError {
	return &DirectiveError{
		Key:     key,
		Value:   value,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
