package constraint

import (
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Row slots keep accumulated impulses addressable across steps for warm starting
const (
	rowLinear0 = iota
	rowLinear1
	rowLinear2
	rowAngular0
	rowAngular1
	rowAngular2
	rowCone
	rowLinearDrive0
	rowLinearDrive1
	rowLinearDrive2
	rowAngularDrive0
	rowAngularDrive1
	rowAngularDrive2

	rowSlotCount
)

// row is one scalar constraint J·v + bias + gamma·λ = 0, λ clamped to [lower, upper]
type row struct {
	slot   int
	linear bool

	linA, angA, linB, angB mgl64.Vec3
	// inverse mass weighted jacobians
	mLinA, mAngA, mLinB, mAngB mgl64.Vec3

	mass    float64
	bias    float64
	gamma   float64
	lower   float64
	upper   float64
	impulse float64
}

// jointState holds the world quantities shared by the rows of one joint
type jointState struct {
	dt       float64
	settings Settings

	invMassA, invMassB float64
	invIA, invIB       mgl64.Mat3

	rA, rB mgl64.Vec3
	// anchor B minus anchor A
	d    mgl64.Vec3
	axes [3]mgl64.Vec3

	// frame B relative to frame A, with a non-negative scalar part
	relative mgl64.Quat
	offset   mgl64.Vec3

	twist, swingY, swingZ float64
}

func (j *Joint) newState(dt float64, settings Settings) *jointState {
	frameA, frameB := j.frames()

	s := &jointState{
		dt:       dt,
		settings: settings,
		invMassA: j.BodyA.InverseMass(),
		invMassB: j.BodyB.InverseMass(),
		invIA:    j.BodyA.GetInverseInertiaWorld(),
		invIB:    j.BodyB.GetInverseInertiaWorld(),
		rA:       frameA.Position.Sub(j.BodyA.WorldCenterOfMass()),
		rB:       frameB.Position.Sub(j.BodyB.WorldCenterOfMass()),
		d:        frameB.Position.Sub(frameA.Position),
	}
	for i := 0; i < 3; i++ {
		var unit mgl64.Vec3
		unit[i] = 1
		s.axes[i] = frameA.Rotation.Rotate(unit)
	}
	s.offset = frameA.RotateInverse(s.d)

	s.relative = frameA.Rotation.Conjugate().Mul(frameB.Rotation)
	if s.relative.W < 0 {
		s.relative = s.relative.Scale(-1)
	}
	s.twist, s.swingY, s.swingZ = twistSwing(s.relative)

	return s
}

// twistSwing decomposes q = swing * twist with the twist about X. Swing
// angles are the Y and Z components of the swing rotation vector.
func twistSwing(q mgl64.Quat) (float64, float64, float64) {
	twistQ := mgl64.Quat{W: q.W, V: mgl64.Vec3{q.V.X(), 0, 0}}
	if twistQ.Len() < 1e-9 {
		twistQ = mgl64.QuatIdent()
	} else {
		twistQ = twistQ.Normalize()
	}
	swing := q.Mul(twistQ.Conjugate())

	twist := rotationVector(twistQ).X()
	swingVector := rotationVector(swing)
	return twist, swingVector.Y(), swingVector.Z()
}

// rotationVector returns angle * axis of q, taking the shortest rotation
func rotationVector(q mgl64.Quat) mgl64.Vec3 {
	if q.W < 0 {
		q = q.Scale(-1)
	}
	sinHalf := q.V.Len()
	if sinHalf < 1e-12 {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(sinHalf, q.W)
	return q.V.Mul(angle / sinHalf)
}

// Prepare rebuilds the rows for the current poses. Accumulated impulses of
// the previous step are kept per slot.
func (j *Joint) Prepare(dt float64, settings Settings) {
	clear(j.lastImpulses[:])
	for _, r := range j.rows {
		j.lastImpulses[r.slot] = r.impulse
	}
	j.rows = j.rows[:0]
	if j.broken {
		return
	}

	s := j.newState(dt, settings)

	switch j.Kind {
	case JointFixed:
		for i := 0; i < 3; i++ {
			j.addLinearLock(s, i)
		}
		for i := 0; i < 3; i++ {
			j.addAngularLock(s, i)
		}
	case JointSpherical:
		for i := 0; i < 3; i++ {
			j.addLinearLock(s, i)
		}
		if j.hasCone {
			j.addConeLimit(s)
		}
	case JointD6:
		j.prepareD6(s)
	}

	for i := range j.rows {
		r := &j.rows[i]
		if settings.WarmStarting {
			r.impulse = math.Max(r.lower, math.Min(j.lastImpulses[r.slot], r.upper))
		}
	}
}

func (j *Joint) prepareD6(s *jointState) {
	for i := 0; i < 3; i++ {
		switch j.motions[AxisX+Axis(i)] {
		case MotionLocked:
			j.addLinearLock(s, i)
		case MotionLimited:
			j.addLinearLimit(s, i)
		}
	}

	angles := [3]float64{s.twist, s.swingY, s.swingZ}
	for i := 0; i < 3; i++ {
		if j.motions[AxisTwist+Axis(i)] == MotionLocked {
			j.addAngularLock(s, i)
		}
	}

	if j.motions[AxisTwist] == MotionLimited {
		j.addAngularLimit(s, 0, angles[0], j.twistLimit.Lower, j.twistLimit.Upper)
	}

	swing1, swing2 := j.motions[AxisSwing1], j.motions[AxisSwing2]
	if swing1 == MotionLimited && swing2 == MotionLimited {
		j.addConeLimit(s)
	} else {
		if swing1 == MotionLimited {
			j.addAngularLimit(s, 1, angles[1], -j.coneLimit.YAngle, j.coneLimit.YAngle)
		}
		if swing2 == MotionLimited {
			j.addAngularLimit(s, 2, angles[2], -j.coneLimit.ZAngle, j.coneLimit.ZAngle)
		}
	}

	j.addDrives(s)
}

func (j *Joint) linearJacobian(s *jointState, axis int) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	ax := s.axes[axis]
	return ax.Mul(-1), s.rA.Add(s.d).Cross(ax).Mul(-1), ax, s.rB.Cross(ax)
}

func (j *Joint) addRow(s *jointState, r row) *row {
	r.mLinA = r.linA.Mul(s.invMassA)
	r.mAngA = s.invIA.Mul3x1(r.angA)
	r.mLinB = r.linB.Mul(s.invMassB)
	r.mAngB = s.invIB.Mul3x1(r.angB)

	k := r.linA.Dot(r.mLinA) + r.angA.Dot(r.mAngA) + r.linB.Dot(r.mLinB) + r.angB.Dot(r.mAngB)
	if k+r.gamma < 1e-12 {
		return nil
	}
	r.mass = 1 / (k + r.gamma)

	j.rows = append(j.rows, r)
	return &j.rows[len(j.rows)-1]
}

func (j *Joint) addLinearLock(s *jointState, axis int) {
	linA, angA, linB, angB := j.linearJacobian(s, axis)
	j.addRow(s, row{
		slot:   rowLinear0 + axis,
		linear: true,
		linA:   linA, angA: angA, linB: linB, angB: angB,
		bias:  s.settings.JointBaumgarte / s.dt * s.offset[axis],
		lower: math.Inf(-1),
		upper: math.Inf(1),
	})
}

func (j *Joint) addLinearLimit(s *jointState, axis int) {
	limit := j.linearLimits[axis]
	if math.IsInf(limit.Lower, -1) && math.IsInf(limit.Upper, 1) {
		return
	}
	bias, lower, upper := limitRow(s, s.offset[axis], limit.Lower, limit.Upper)

	linA, angA, linB, angB := j.linearJacobian(s, axis)
	j.addRow(s, row{
		slot:   rowLinear0 + axis,
		linear: true,
		linA:   linA, angA: angA, linB: linB, angB: angB,
		bias:  bias,
		lower: lower,
		upper: upper,
	})
}

// limitRow bounds the nearest side of [lowerLimit, upperLimit]. Inside the
// range the row is speculative: it only stops motion that would cross the
// limit within this step. Past the limit, the violation is fed back with the
// joint Baumgarte factor.
func limitRow(s *jointState, position, lowerLimit, upperLimit float64) (float64, float64, float64) {
	if lowerLimit == upperLimit {
		return s.settings.JointBaumgarte / s.dt * (position - lowerLimit), math.Inf(-1), math.Inf(1)
	}

	if position-lowerLimit < upperLimit-position {
		c := position - lowerLimit
		if c > 0 {
			return c / s.dt, 0, math.Inf(1)
		}
		return s.settings.JointBaumgarte / s.dt * c, 0, math.Inf(1)
	}

	c := position - upperLimit
	if c < 0 {
		return c / s.dt, math.Inf(-1), 0
	}
	return s.settings.JointBaumgarte / s.dt * c, math.Inf(-1), 0
}

func (j *Joint) addAngularLock(s *jointState, axis int) {
	angles := [3]float64{s.twist, s.swingY, s.swingZ}
	ax := s.axes[axis]
	j.addRow(s, row{
		slot:  rowAngular0 + axis,
		angA:  ax.Mul(-1),
		angB:  ax,
		bias:  s.settings.JointBaumgarte / s.dt * angles[axis],
		lower: math.Inf(-1),
		upper: math.Inf(1),
	})
}

func (j *Joint) addAngularLimit(s *jointState, axis int, angle, lowerAngle, upperAngle float64) {
	bias, lower, upper := limitRow(s, angle, lowerAngle, upperAngle)

	ax := s.axes[axis]
	j.addRow(s, row{
		slot:  rowAngular0 + axis,
		angA:  ax.Mul(-1),
		angB:  ax,
		bias:  bias,
		lower: lower,
		upper: upper,
	})
}

// addConeLimit keeps the swing inside the ellipse (y/Y)² + (z/Z)² <= 1,
// pushing back along the ellipse gradient. Like limitRow, the row is
// speculative while the swing is inside the cone.
func (j *Joint) addConeLimit(s *jointState) {
	limitY, limitZ := j.coneLimit.YAngle, j.coneLimit.ZAngle
	if limitY <= 0 || limitZ <= 0 {
		return
	}

	f := (s.swingY*s.swingY)/(limitY*limitY) + (s.swingZ*s.swingZ)/(limitZ*limitZ)
	if f < 1e-6 {
		return
	}

	gradient := mgl64.Vec3{0, s.swingY / (limitY * limitY), s.swingZ / (limitZ * limitZ)}.Normalize()

	// distance to the ellipse along the swing direction, projected on the gradient
	c := (1 - 1/math.Sqrt(f)) * (s.swingY*gradient.Y() + s.swingZ*gradient.Z())
	bias := c / s.dt
	if c > 0 {
		bias = s.settings.JointBaumgarte / s.dt * c
	}

	ax := s.axes[1].Mul(gradient.Y()).Add(s.axes[2].Mul(gradient.Z()))
	j.addRow(s, row{
		slot:  rowCone,
		angA:  ax.Mul(-1),
		angB:  ax,
		bias:  bias,
		lower: math.Inf(-1),
		upper: 0,
	})
}

// addDrives adds the soft rows of active drives on unlocked axes
func (j *Joint) addDrives(s *jointState) {
	for i := 0; i < 3; i++ {
		drive := j.drives[DriveX+DriveAxis(i)]
		if !drive.active() || j.motions[AxisX+Axis(i)] == MotionLocked {
			continue
		}
		linA, angA, linB, angB := j.linearJacobian(s, i)
		j.addSoftRow(s, drive, row{
			slot:   rowLinearDrive0 + i,
			linear: true,
			linA:   linA, angA: angA, linB: linB, angB: angB,
		}, s.offset[i]-j.driveTarget.Position[i], j.driveLinear[i])
	}

	// rotation left to reach the target, in frame A
	errorQ := s.relative.Mul(j.driveTarget.Rotation.Conjugate())
	angularError := rotationVector(errorQ)

	slerp := j.drives[DriveSlerp]
	for i := 0; i < 3; i++ {
		if j.motions[AxisTwist+Axis(i)] == MotionLocked {
			continue
		}

		drive := slerp
		if !slerp.active() {
			drive = j.drives[DriveSwing]
			if i == 0 {
				drive = j.drives[DriveTwist]
			}
		}
		if !drive.active() {
			continue
		}

		ax := s.axes[i]
		j.addSoftRow(s, drive, row{
			slot: rowAngularDrive0 + i,
			angA: ax.Mul(-1),
			angB: ax,
		}, angularError[i], j.driveAngular[i])
	}
}

// addSoftRow turns r into a spring-damper: the impulse converges to
// -h·(k·positionError + c·(velocity - targetVelocity)).
func (j *Joint) addSoftRow(s *jointState, drive Drive, r row, positionError, targetVelocity float64) {
	stiffness, damping := drive.Stiffness, drive.Damping
	if drive.IsAcceleration {
		k := r.linA.Dot(r.linA)*s.invMassA + r.angA.Dot(s.invIA.Mul3x1(r.angA)) +
			r.linB.Dot(r.linB)*s.invMassB + r.angB.Dot(s.invIB.Mul3x1(r.angB))
		if k < 1e-12 {
			return
		}
		stiffness /= k
		damping /= k
	}

	h := s.dt
	denominator := h * (damping + h*stiffness)
	if denominator <= 0 {
		return
	}
	r.gamma = 1 / denominator
	r.bias = h*stiffness*r.gamma*positionError - targetVelocity

	maxImpulse := drive.ForceLimit * h
	r.lower, r.upper = -maxImpulse, maxImpulse

	j.addRow(s, r)
}

// WarmStart applies the impulses restored by Prepare
func (j *Joint) WarmStart() {
	for i := range j.rows {
		j.apply(&j.rows[i], j.rows[i].impulse)
	}
}

// SolveVelocity runs one Gauss-Seidel pass over the rows
func (j *Joint) SolveVelocity(dt float64) {
	a, b := j.BodyA, j.BodyB
	for i := range j.rows {
		r := &j.rows[i]

		jv := r.linA.Dot(a.Velocity) + r.angA.Dot(a.AngularVelocity) +
			r.linB.Dot(b.Velocity) + r.angB.Dot(b.AngularVelocity)
		lambda := -r.mass * (jv + r.bias + r.gamma*r.impulse)

		previous := r.impulse
		r.impulse = math.Max(r.lower, math.Min(previous+lambda, r.upper))
		j.apply(r, r.impulse-previous)
	}
}

func (j *Joint) apply(r *row, lambda float64) {
	if lambda == 0 {
		return
	}
	applyRow(j.BodyA, r.mLinA, r.mAngA, lambda)
	applyRow(j.BodyB, r.mLinB, r.mAngB, lambda)
}

func applyRow(rb *actor.RigidBody, linear, angular mgl64.Vec3, lambda float64) {
	if rb.IsStatic() {
		return
	}
	rb.Velocity = rb.Velocity.Add(linear.Mul(lambda))
	rb.AngularVelocity = rb.AngularVelocity.Add(angular.Mul(lambda))
}
