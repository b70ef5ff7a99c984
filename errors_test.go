package anvil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"joint kind", fmt.Errorf("%w: cone limit on a fixed joint", constraint.ErrJointKind), ErrTypeMismatch},
		{"joint parameter", fmt.Errorf("%w: drive", constraint.ErrJointParameter), ErrConstraintViolation},
		{"geometry", fmt.Errorf("%w: sphere radius 0", actor.ErrInvalidGeometry), ErrConstraintViolation},
		{"material", actor.ErrInvalidMaterial, ErrConstraintViolation},
		{"mass", actor.ErrInvalidMass, ErrConstraintViolation},
		{"plane on dynamic", actor.ErrUnsupportedShape, ErrConstraintViolation},
		{"already classified", notFound("actor", 3), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want a %v", tt.err, got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) lost the cause", tt.err)
			}
		})
	}
}

func TestOpError(t *testing.T) {
	err := opError("pose", 42, notFound("actor", 42))

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected an *OpError, got %T", err)
	}
	if opErr.Op != "pose" || opErr.ID != 42 {
		t.Errorf("OpError = %+v", opErr)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("%v should match ErrNotFound", err)
	}
	if want := "pose 42: anvil: not found: actor 42"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if want := "simulate: anvil: invalid state"; opError("simulate", 0, ErrInvalidState).Error() != want {
		t.Errorf("Error() without id = %q, want %q", opError("simulate", 0, ErrInvalidState).Error(), want)
	}
}
