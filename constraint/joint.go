package constraint

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrJointKind is returned when a setting does not apply to the joint kind
	ErrJointKind = errors.New("setting not supported by joint kind")
	// ErrJointParameter is returned for malformed joint parameters
	ErrJointParameter = errors.New("invalid joint parameter")
)

// JointKind tags the joint variants
type JointKind int

const (
	JointFixed JointKind = iota
	JointSpherical
	JointD6
)

func (k JointKind) String() string {
	switch k {
	case JointFixed:
		return "fixed"
	case JointSpherical:
		return "spherical"
	case JointD6:
		return "d6"
	}
	return fmt.Sprintf("JointKind(%d)", int(k))
}

// Axis is a degree of freedom of a D6 joint, in the first body's joint frame.
// Twist rotates about X; Swing1 about Y; Swing2 about Z.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisTwist
	AxisSwing1
	AxisSwing2

	axisCount
)

// Motion of a D6 axis
type Motion int

const (
	MotionLocked Motion = iota
	MotionLimited
	MotionFree
)

// DriveAxis selects a D6 drive
type DriveAxis int

const (
	DriveX DriveAxis = iota
	DriveY
	DriveZ
	DriveTwist
	DriveSwing
	DriveSlerp

	driveCount
)

// Drive is a spring-damper pulling an axis towards the drive target.
// IsAcceleration scales stiffness and damping by the axis effective mass, so
// the drive behaves the same regardless of the bodies' masses.
type Drive struct {
	Stiffness      float64
	Damping        float64
	ForceLimit     float64
	IsAcceleration bool
}

func (d Drive) active() bool {
	return d.Stiffness > 0 || d.Damping > 0
}

func (d Drive) validate() error {
	if !finiteValues(d.Stiffness, d.Damping) || d.Stiffness < 0 || d.Damping < 0 {
		return fmt.Errorf("%w: drive stiffness %v damping %v", ErrJointParameter, d.Stiffness, d.Damping)
	}
	if math.IsNaN(d.ForceLimit) || d.ForceLimit < 0 {
		return fmt.Errorf("%w: drive force limit %v", ErrJointParameter, d.ForceLimit)
	}
	return nil
}

// Limit is the union of the joint limit kinds. LinearLimit bounds the offset
// along a linear axis; TwistLimit bounds the twist angle; ConeLimit bounds
// the swing angles about Y and Z with an ellipse.
type Limit interface {
	limit()
}

type LinearLimit struct {
	Axis         Axis
	Lower, Upper float64
}

type TwistLimit struct {
	Lower, Upper float64
}

type ConeLimit struct {
	YAngle, ZAngle float64
}

func (LinearLimit) limit() {}
func (TwistLimit) limit()  {}
func (ConeLimit) limit()   {}

// Joint constrains the relative motion of two bodies, each through a local
// attachment frame. Either body may be a static body.
type Joint struct {
	ID     uint64
	Kind   JointKind
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	FrameA actor.Transform
	FrameB actor.Transform

	BreakForce  float64
	BreakTorque float64

	motions      [axisCount]Motion
	linearLimits [3]LinearLimit
	twistLimit   TwistLimit
	coneLimit    ConeLimit
	hasCone      bool

	drives       [driveCount]Drive
	driveTarget  actor.Transform
	driveLinear  mgl64.Vec3
	driveAngular mgl64.Vec3
	broken       bool

	rows         []row
	lastImpulses [rowSlotCount]float64

	// impulses of the last solve, in world space
	LinearImpulse  mgl64.Vec3
	AngularImpulse mgl64.Vec3
}

func newJoint(id uint64, kind JointKind, a *actor.RigidBody, frameA actor.Transform, b *actor.RigidBody, frameB actor.Transform) *Joint {
	j := &Joint{
		ID:          id,
		Kind:        kind,
		BodyA:       a,
		BodyB:       b,
		FrameA:      frameA.Normalized(),
		FrameB:      frameB.Normalized(),
		BreakForce:  math.Inf(1),
		BreakTorque: math.Inf(1),
		driveTarget: actor.NewTransform(),
	}
	for i := range j.linearLimits {
		j.linearLimits[i] = LinearLimit{Axis: Axis(i), Lower: math.Inf(-1), Upper: math.Inf(1)}
	}
	for i := range j.drives {
		j.drives[i].ForceLimit = math.Inf(1)
	}
	j.twistLimit = TwistLimit{Lower: -math.Pi / 2, Upper: math.Pi / 2}
	j.coneLimit = ConeLimit{YAngle: math.Pi / 2, ZAngle: math.Pi / 4}
	return j
}

// NewFixedJoint locks all six degrees of freedom
func NewFixedJoint(id uint64, a *actor.RigidBody, frameA actor.Transform, b *actor.RigidBody, frameB actor.Transform) *Joint {
	return newJoint(id, JointFixed, a, frameA, b, frameB)
}

// NewSphericalJoint keeps the frame origins together and leaves rotation free
func NewSphericalJoint(id uint64, a *actor.RigidBody, frameA actor.Transform, b *actor.RigidBody, frameB actor.Transform) *Joint {
	j := newJoint(id, JointSpherical, a, frameA, b, frameB)
	j.motions[AxisTwist] = MotionFree
	j.motions[AxisSwing1] = MotionFree
	j.motions[AxisSwing2] = MotionFree
	return j
}

// NewD6Joint creates a D6 joint with every axis locked
func NewD6Joint(id uint64, a *actor.RigidBody, frameA actor.Transform, b *actor.RigidBody, frameB actor.Transform) *Joint {
	return newJoint(id, JointD6, a, frameA, b, frameB)
}

func (j *Joint) IsBroken() bool {
	return j.broken
}

// Other returns the body at the other end of the joint
func (j *Joint) Other(rb *actor.RigidBody) *actor.RigidBody {
	if j.BodyA == rb {
		return j.BodyB
	}
	return j.BodyA
}

// Motion returns the motion of a D6 axis
func (j *Joint) Motion(axis Axis) Motion {
	return j.motions[axis]
}

// SetMotion sets the motion of one D6 axis
func (j *Joint) SetMotion(axis Axis, motion Motion) error {
	if j.Kind != JointD6 {
		return fmt.Errorf("%w: motion on a %s joint", ErrJointKind, j.Kind)
	}
	if axis < AxisX || axis >= axisCount || motion < MotionLocked || motion > MotionFree {
		return fmt.Errorf("%w: axis %d motion %d", ErrJointParameter, axis, motion)
	}
	j.motions[axis] = motion
	return nil
}

// SetDrive configures one D6 drive
func (j *Joint) SetDrive(axis DriveAxis, drive Drive) error {
	if j.Kind != JointD6 {
		return fmt.Errorf("%w: drive on a %s joint", ErrJointKind, j.Kind)
	}
	if axis < DriveX || axis >= driveCount {
		return fmt.Errorf("%w: drive axis %d", ErrJointParameter, axis)
	}
	if err := drive.validate(); err != nil {
		return err
	}
	j.drives[axis] = drive
	return nil
}

func (j *Joint) Drive(axis DriveAxis) Drive {
	return j.drives[axis]
}

// SetDriveTarget sets the pose of frame B relative to frame A the drives pull towards
func (j *Joint) SetDriveTarget(target actor.Transform) error {
	if j.Kind != JointD6 {
		return fmt.Errorf("%w: drive target on a %s joint", ErrJointKind, j.Kind)
	}
	if !target.IsValid() {
		return fmt.Errorf("%w: drive target %v", ErrJointParameter, target)
	}
	j.driveTarget = target.Normalized()
	return nil
}

// SetDriveVelocity sets the target velocities, expressed in frame A
func (j *Joint) SetDriveVelocity(linear, angular mgl64.Vec3) error {
	if j.Kind != JointD6 {
		return fmt.Errorf("%w: drive velocity on a %s joint", ErrJointKind, j.Kind)
	}
	if !finiteValues(linear[0], linear[1], linear[2], angular[0], angular[1], angular[2]) {
		return fmt.Errorf("%w: drive velocity", ErrJointParameter)
	}
	j.driveLinear, j.driveAngular = linear, angular
	return nil
}

// SetLimit applies a limit. Spherical joints accept a ConeLimit; D6 joints
// accept all limit kinds; fixed joints none.
func (j *Joint) SetLimit(limit Limit) error {
	switch l := limit.(type) {
	case ConeLimit:
		if j.Kind != JointSpherical && j.Kind != JointD6 {
			return fmt.Errorf("%w: cone limit on a %s joint", ErrJointKind, j.Kind)
		}
		if !finiteValues(l.YAngle, l.ZAngle) || l.YAngle <= 0 || l.ZAngle <= 0 || l.YAngle >= math.Pi || l.ZAngle >= math.Pi {
			return fmt.Errorf("%w: cone angles (%v, %v)", ErrJointParameter, l.YAngle, l.ZAngle)
		}
		j.coneLimit = l
		j.hasCone = true
	case TwistLimit:
		if j.Kind != JointD6 {
			return fmt.Errorf("%w: twist limit on a %s joint", ErrJointKind, j.Kind)
		}
		if !finiteValues(l.Lower, l.Upper) || l.Lower > l.Upper || l.Lower < -math.Pi || l.Upper > math.Pi {
			return fmt.Errorf("%w: twist range [%v, %v]", ErrJointParameter, l.Lower, l.Upper)
		}
		j.twistLimit = l
	case LinearLimit:
		if j.Kind != JointD6 {
			return fmt.Errorf("%w: linear limit on a %s joint", ErrJointKind, j.Kind)
		}
		if l.Axis < AxisX || l.Axis > AxisZ || math.IsNaN(l.Lower) || math.IsNaN(l.Upper) || l.Lower > l.Upper {
			return fmt.Errorf("%w: linear limit %+v", ErrJointParameter, l)
		}
		j.linearLimits[l.Axis] = l
	default:
		return fmt.Errorf("%w: limit %T", ErrJointParameter, limit)
	}
	return nil
}

// SetBreakForce sets the thresholds above which a fixed joint breaks
func (j *Joint) SetBreakForce(force, torque float64) error {
	if j.Kind != JointFixed {
		return fmt.Errorf("%w: break force on a %s joint", ErrJointKind, j.Kind)
	}
	if math.IsNaN(force) || math.IsNaN(torque) || force <= 0 || torque <= 0 {
		return fmt.Errorf("%w: break force %v torque %v", ErrJointParameter, force, torque)
	}
	j.BreakForce, j.BreakTorque = force, torque
	return nil
}

// CheckBreak marks the joint broken when the impulses of the last solve,
// converted to force and torque over dt, exceed the thresholds.
// It reports whether the joint broke during this call.
func (j *Joint) CheckBreak(dt float64) bool {
	if j.broken {
		return false
	}

	j.LinearImpulse, j.AngularImpulse = mgl64.Vec3{}, mgl64.Vec3{}
	for i := range j.rows {
		r := &j.rows[i]
		if r.linear {
			j.LinearImpulse = j.LinearImpulse.Add(r.linB.Mul(r.impulse))
		} else {
			j.AngularImpulse = j.AngularImpulse.Add(r.angB.Mul(r.impulse))
		}
	}

	if j.Kind != JointFixed {
		return false
	}
	if j.LinearImpulse.Len()/dt > j.BreakForce || j.AngularImpulse.Len()/dt > j.BreakTorque {
		j.broken = true
		j.rows = j.rows[:0]
		return true
	}
	return false
}

// frames returns the world poses of both attachment frames
func (j *Joint) frames() (actor.Transform, actor.Transform) {
	return j.BodyA.Transform.Compose(j.FrameA), j.BodyB.Transform.Compose(j.FrameB)
}

// RelativePose returns frame B expressed in frame A
func (j *Joint) RelativePose() actor.Transform {
	a, b := j.frames()
	return a.Inverse().Compose(b)
}

func finiteValues(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
