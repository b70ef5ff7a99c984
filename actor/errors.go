package actor

import "errors"

var (
	// ErrInvalidGeometry reports degenerate or non-finite geometry parameters.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidMaterial reports negative friction or restitution outside [0,1].
	ErrInvalidMaterial = errors.New("invalid material")
	// ErrInvalidMass reports a dynamic body whose shapes yield no positive mass.
	ErrInvalidMass = errors.New("invalid mass properties")
	// ErrUnsupportedShape reports a geometry that cannot be used on a body of that type.
	ErrUnsupportedShape = errors.New("unsupported shape for body type")
)
