package constraint

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const testStep = 1.0 / 60.0

func createWorldBody() *actor.RigidBody {
	return actor.NewStaticBody(0, actor.NewTransform(), nil)
}

func stepIsland(island *Island, steps int, gravity mgl64.Vec3) []*Joint {
	var broken []*Joint
	for i := 0; i < steps; i++ {
		broken = append(broken, island.Solve(testStep, gravity, DefaultSettings())...)
		for _, rb := range island.Bodies {
			rb.ClearForces()
		}
	}
	return broken
}

func TestJoint_SettingsByKind(t *testing.T) {
	world := createWorldBody()

	tests := []struct {
		name  string
		kind  JointKind
		apply func(j *Joint) error
		want  error
	}{
		{"motion on fixed", JointFixed, func(j *Joint) error { return j.SetMotion(AxisX, MotionFree) }, ErrJointKind},
		{"motion on d6", JointD6, func(j *Joint) error { return j.SetMotion(AxisSwing2, MotionLimited) }, nil},
		{"motion out of range", JointD6, func(j *Joint) error { return j.SetMotion(Axis(9), MotionFree) }, ErrJointParameter},
		{"cone on fixed", JointFixed, func(j *Joint) error { return j.SetLimit(ConeLimit{YAngle: 0.5, ZAngle: 0.5}) }, ErrJointKind},
		{"cone on spherical", JointSpherical, func(j *Joint) error { return j.SetLimit(ConeLimit{YAngle: 0.5, ZAngle: 0.2}) }, nil},
		{"degenerate cone", JointSpherical, func(j *Joint) error { return j.SetLimit(ConeLimit{YAngle: 0, ZAngle: 0.2}) }, ErrJointParameter},
		{"twist on spherical", JointSpherical, func(j *Joint) error { return j.SetLimit(TwistLimit{Lower: -1, Upper: 1}) }, ErrJointKind},
		{"inverted twist", JointD6, func(j *Joint) error { return j.SetLimit(TwistLimit{Lower: 1, Upper: -1}) }, ErrJointParameter},
		{"linear limit on d6", JointD6, func(j *Joint) error { return j.SetLimit(LinearLimit{Axis: AxisY, Lower: -1, Upper: 1}) }, nil},
		{"linear limit on angular axis", JointD6, func(j *Joint) error { return j.SetLimit(LinearLimit{Axis: AxisTwist}) }, ErrJointParameter},
		{"break force on fixed", JointFixed, func(j *Joint) error { return j.SetBreakForce(1000, 100000) }, nil},
		{"break force on d6", JointD6, func(j *Joint) error { return j.SetBreakForce(1000, 100000) }, ErrJointKind},
		{"negative break force", JointFixed, func(j *Joint) error { return j.SetBreakForce(-1, 1) }, ErrJointParameter},
		{"drive on spherical", JointSpherical, func(j *Joint) error { return j.SetDrive(DriveSlerp, Drive{Damping: 1}) }, ErrJointKind},
		{"negative stiffness", JointD6, func(j *Joint) error { return j.SetDrive(DriveX, Drive{Stiffness: -1}) }, ErrJointParameter},
		{"drive target on fixed", JointFixed, func(j *Joint) error { return j.SetDriveTarget(actor.NewTransform()) }, ErrJointKind},
		{"drive velocity on d6", JointD6, func(j *Joint) error { return j.SetDriveVelocity(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createDynamicBody(t, 1, mgl64.Vec3{}, mgl64.Vec3{})
			j := newJoint(5, tt.kind, world, actor.NewTransform(), body, actor.NewTransform())

			if err := tt.apply(j); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewD6Joint_DefaultsLocked(t *testing.T) {
	j := NewD6Joint(1, createWorldBody(), actor.NewTransform(), createWorldBody(), actor.NewTransform())
	for axis := AxisX; axis < axisCount; axis++ {
		if j.Motion(axis) != MotionLocked {
			t.Errorf("Motion(%d) = %v, want locked", axis, j.Motion(axis))
		}
	}
	if !math.IsInf(j.Drive(DriveSlerp).ForceLimit, 1) {
		t.Errorf("default drive force limit = %v, want +Inf", j.Drive(DriveSlerp).ForceLimit)
	}
}

func TestFixedJoint_HoldsAgainstGravity(t *testing.T) {
	body := createDynamicBody(t, 1, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{})
	j := NewFixedJoint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransformAt(mgl64.Vec3{0, 1, 0}))
	island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

	stepIsland(island, 120, mgl64.Vec3{0, -9.81, 0})

	if !vec3AlmostEqual(body.Transform.Position, mgl64.Vec3{0, -1, 0}, 1e-2) {
		t.Errorf("Position = %v, want about {0 -1 0}", body.Transform.Position)
	}
	if angle := 2 * math.Acos(math.Min(1, math.Abs(body.Transform.Rotation.W))); angle > 1e-2 {
		t.Errorf("body rotated by %v rad", angle)
	}
	if j.IsBroken() {
		t.Error("unbreakable joint broke")
	}
}

func TestFixedJoint_Break(t *testing.T) {
	tests := []struct {
		name       string
		breakForce float64
		wantBroken bool
	}{
		{"force above threshold", 100, true},
		{"force below threshold", 1e6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createDynamicBody(t, 1, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{})
			j := NewFixedJoint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransformAt(mgl64.Vec3{0, 1, 0}))
			if err := j.SetBreakForce(tt.breakForce, math.Inf(1)); err != nil {
				t.Fatalf("SetBreakForce() error = %v", err)
			}
			island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

			body.AddForce(mgl64.Vec3{0, -1000, 0})
			broken := island.Solve(testStep, mgl64.Vec3{}, DefaultSettings())
			body.ClearForces()

			if j.IsBroken() != tt.wantBroken || (len(broken) == 1) != tt.wantBroken {
				t.Fatalf("IsBroken() = %v (reported %d), want %v", j.IsBroken(), len(broken), tt.wantBroken)
			}
			if !tt.wantBroken {
				return
			}

			// once broken, the joint no longer holds the body
			velocity := body.Velocity.Y()
			stepIsland(island, 10, mgl64.Vec3{0, -9.81, 0})
			if !almostEqual(body.Velocity.Y(), velocity-10*9.81*testStep, 1e-9) {
				t.Errorf("Velocity.Y = %v, want free fall from %v", body.Velocity.Y(), velocity)
			}
			if j.CheckBreak(testStep) {
				t.Error("a broken joint must not break twice")
			}
		})
	}
}

func TestSphericalJoint_Pendulum(t *testing.T) {
	body := createDynamicBody(t, 1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{})
	j := NewSphericalJoint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransformAt(mgl64.Vec3{-1, 0, 0}))
	island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

	stepIsland(island, 30, mgl64.Vec3{0, -9.81, 0})

	anchor := body.Transform.Apply(mgl64.Vec3{-1, 0, 0})
	if anchor.Len() > 5e-2 {
		t.Errorf("anchor drifted to %v", anchor)
	}
	if body.Transform.Position.Y() > -0.1 {
		t.Errorf("pendulum did not swing down: %v", body.Transform.Position)
	}
	if !almostEqual(body.Transform.Position.Len(), 1, 5e-2) {
		t.Errorf("pendulum length = %v, want 1", body.Transform.Position.Len())
	}
}

func TestSphericalJoint_ConeLimit(t *testing.T) {
	body := createDynamicBody(t, 1, mgl64.Vec3{}, mgl64.Vec3{})
	body.AngularVelocity = mgl64.Vec3{0, 5, 0}
	j := NewSphericalJoint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransform())
	if err := j.SetLimit(ConeLimit{YAngle: 0.3, ZAngle: 0.3}); err != nil {
		t.Fatalf("SetLimit() error = %v", err)
	}
	island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

	maxSwing := 0.0
	for i := 0; i < 60; i++ {
		stepIsland(island, 1, mgl64.Vec3{})
		_, swingY, swingZ := twistSwing(j.RelativePose().Rotation)
		maxSwing = math.Max(maxSwing, math.Hypot(swingY, swingZ))
	}

	if maxSwing > 0.45 {
		t.Errorf("swing reached %v, limit is 0.3", maxSwing)
	}
	if maxSwing < 0.25 {
		t.Errorf("swing only reached %v, the limit should let it rotate to 0.3", maxSwing)
	}
}

func TestD6Joint_Motion(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(j *Joint)
		velocity mgl64.Vec3
		check    func(t *testing.T, position mgl64.Vec3)
	}{
		{
			name:     "locked axes hold",
			setup:    func(j *Joint) {},
			velocity: mgl64.Vec3{1, 1, 0},
			check: func(t *testing.T, position mgl64.Vec3) {
				if position.Len() > 1e-2 {
					t.Errorf("Position = %v, want origin", position)
				}
			},
		},
		{
			name:     "free x slides",
			setup:    func(j *Joint) { _ = j.SetMotion(AxisX, MotionFree) },
			velocity: mgl64.Vec3{1, 1, 0},
			check: func(t *testing.T, position mgl64.Vec3) {
				if !almostEqual(position.X(), 1, 2e-2) || math.Abs(position.Y()) > 1e-2 {
					t.Errorf("Position = %v, want about {1 0 0}", position)
				}
			},
		},
		{
			name: "limited x stops at the limit",
			setup: func(j *Joint) {
				_ = j.SetMotion(AxisX, MotionLimited)
				_ = j.SetLimit(LinearLimit{Axis: AxisX, Lower: -0.5, Upper: 0.5})
			},
			velocity: mgl64.Vec3{2, 0, 0},
			check: func(t *testing.T, position mgl64.Vec3) {
				if position.X() > 0.6 || position.X() < 0.4 {
					t.Errorf("Position.X = %v, want about 0.5", position.X())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createDynamicBody(t, 1, mgl64.Vec3{}, tt.velocity)
			j := NewD6Joint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransform())
			tt.setup(j)
			island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

			stepIsland(island, 60, mgl64.Vec3{})
			tt.check(t, body.Transform.Position)
		})
	}
}

func TestD6Joint_LinearDrive(t *testing.T) {
	tests := []struct {
		name           string
		isAcceleration bool
	}{
		{"force drive", false},
		{"acceleration drive", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createDynamicBody(t, 1, mgl64.Vec3{}, mgl64.Vec3{})
			j := NewD6Joint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransform())
			_ = j.SetMotion(AxisX, MotionFree)
			if err := j.SetDrive(DriveX, Drive{Stiffness: 100, Damping: 20, ForceLimit: math.Inf(1), IsAcceleration: tt.isAcceleration}); err != nil {
				t.Fatalf("SetDrive() error = %v", err)
			}
			if err := j.SetDriveTarget(actor.NewTransformAt(mgl64.Vec3{1, 0, 0})); err != nil {
				t.Fatalf("SetDriveTarget() error = %v", err)
			}
			island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

			stepIsland(island, 300, mgl64.Vec3{})

			if !almostEqual(body.Transform.Position.X(), 1, 2e-2) {
				t.Errorf("Position.X = %v, want about 1", body.Transform.Position.X())
			}
		})
	}
}

func TestD6Joint_ForceLimit(t *testing.T) {
	body := createDynamicBody(t, 1, mgl64.Vec3{}, mgl64.Vec3{})
	j := NewD6Joint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransform())
	_ = j.SetMotion(AxisX, MotionFree)
	_ = j.SetDrive(DriveX, Drive{Stiffness: 1e4, ForceLimit: 1})
	_ = j.SetDriveTarget(actor.NewTransformAt(mgl64.Vec3{10, 0, 0}))
	island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

	stepIsland(island, 60, mgl64.Vec3{})

	// at most 1 N on 1 kg for one second
	if body.Velocity.X() > 1+1e-9 {
		t.Errorf("Velocity.X = %v, drive exceeded its force limit", body.Velocity.X())
	}
	if body.Velocity.X() < 0.9 {
		t.Errorf("Velocity.X = %v, drive should push at its limit", body.Velocity.X())
	}
}

func TestD6Joint_SlerpDamping(t *testing.T) {
	body := createDynamicBody(t, 1, mgl64.Vec3{}, mgl64.Vec3{})
	body.AngularVelocity = mgl64.Vec3{0, 0, 5}
	j := NewD6Joint(2, createWorldBody(), actor.NewTransform(), body, actor.NewTransform())
	for _, axis := range []Axis{AxisTwist, AxisSwing1, AxisSwing2} {
		_ = j.SetMotion(axis, MotionFree)
	}
	_ = j.SetDrive(DriveSlerp, Drive{Damping: 10, ForceLimit: math.Inf(1), IsAcceleration: true})
	island := &Island{Bodies: []*actor.RigidBody{body}, Joints: []*Joint{j}}

	stepIsland(island, 60, mgl64.Vec3{})

	if body.AngularVelocity.Len() > 0.1 {
		t.Errorf("AngularVelocity = %v, want damped close to zero", body.AngularVelocity)
	}
	if body.Transform.Position.Len() > 1e-2 {
		t.Errorf("locked linear axes moved to %v", body.Transform.Position)
	}
}

func TestTwistSwing(t *testing.T) {
	tests := []struct {
		name       string
		rotation   mgl64.Quat
		wantTwist  float64
		wantSwingY float64
		wantSwingZ float64
	}{
		{"identity", mgl64.QuatIdent(), 0, 0, 0},
		{"twist", mgl64.QuatRotate(0.4, mgl64.Vec3{1, 0, 0}), 0.4, 0, 0},
		{"swing about y", mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0}), 0, 0.3, 0},
		{"swing about z", mgl64.QuatRotate(-0.2, mgl64.Vec3{0, 0, 1}), 0, 0, -0.2},
		{"swing after twist", mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0}).Mul(mgl64.QuatRotate(0.4, mgl64.Vec3{1, 0, 0})), 0.4, 0.3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			twist, swingY, swingZ := twistSwing(tt.rotation)
			if !almostEqual(twist, tt.wantTwist, 1e-9) || !almostEqual(swingY, tt.wantSwingY, 1e-9) || !almostEqual(swingZ, tt.wantSwingZ, 1e-9) {
				t.Errorf("twistSwing() = (%v, %v, %v), want (%v, %v, %v)", twist, swingY, swingZ, tt.wantTwist, tt.wantSwingY, tt.wantSwingZ)
			}
		})
	}
}

func TestRotationVector(t *testing.T) {
	axis := mgl64.Vec3{1, 2, 2}.Normalize()
	q := mgl64.QuatRotate(1.2, axis)

	if got := rotationVector(q); !vec3AlmostEqual(got, axis.Mul(1.2), 1e-9) {
		t.Errorf("rotationVector() = %v, want %v", got, axis.Mul(1.2))
	}
	if got := rotationVector(q.Scale(-1)); !vec3AlmostEqual(got, axis.Mul(1.2), 1e-9) {
		t.Errorf("rotationVector(-q) = %v, want the same rotation", got)
	}
}
