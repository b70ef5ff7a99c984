package anvil

import (
	"errors"
	"fmt"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
)

// Error kinds reported by the world. Every failure is reported synchronously
// by the call that caused it; test for a kind with errors.Is.
var (
	// ErrNotFound indicates an unknown or released identifier.
	ErrNotFound = errors.New("anvil: not found")

	// ErrInvalidState indicates a call made in the wrong world state: double
	// init, re-entrant simulate, mutation during a step, or use after shutdown.
	ErrInvalidState = errors.New("anvil: invalid state")

	// ErrTypeMismatch indicates an operation applied to the wrong actor or joint variant.
	ErrTypeMismatch = errors.New("anvil: type mismatch")

	// ErrConstraintViolation indicates malformed input such as a non-positive
	// density or degenerate geometry.
	ErrConstraintViolation = errors.New("anvil: constraint violation")
)

// OpError wraps an error with the operation and the identifier it applied to.
type OpError struct {
	Op  string
	ID  uint64
	Err error
}

func (e *OpError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %d: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, id uint64, err error) error {
	return &OpError{Op: op, ID: id, Err: classify(err)}
}

// classify attaches the world error kind to errors coming from the leaf packages
func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrTypeMismatch), errors.Is(err, ErrConstraintViolation):
		return err
	case errors.Is(err, constraint.ErrJointKind):
		return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	case errors.Is(err, constraint.ErrJointParameter),
		errors.Is(err, actor.ErrInvalidGeometry),
		errors.Is(err, actor.ErrInvalidMaterial),
		errors.Is(err, actor.ErrInvalidMass),
		errors.Is(err, actor.ErrUnsupportedShape):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	return err
}

func notFound(kind string, id uint64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraintViolation, fmt.Sprintf(format, args...))
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}
