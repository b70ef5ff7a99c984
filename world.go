package anvil

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

type worldState int

const (
	stateUninit worldState = iota
	stateIdle
	stateSimulating
	stateShutdown
)

func (s worldState) String() string {
	switch s {
	case stateUninit:
		return "uninitialized"
	case stateIdle:
		return "idle"
	case stateSimulating:
		return "simulating"
	case stateShutdown:
		return "shut down"
	}
	return fmt.Sprintf("worldState(%d)", int(s))
}

// bodyState is the committed view of a body read by the queries
type bodyState struct {
	pose            actor.Transform
	velocity        mgl64.Vec3
	angularVelocity mgl64.Vec3
	sleeping        bool
}

// stepStats is filled by the step goroutine and read after it finished
type stepStats struct {
	duration  time.Duration
	pairs     int
	contacts  int
	islands   int
	awake     int
	estimated int
	broken    int
}

// World owns every actor, shape and joint of a scene and steps them.
//
// A step runs on a background goroutine between Simulate and FetchResults.
// Meanwhile the queries read the results committed by the previous step, and
// every mutation fails with ErrInvalidState.
type World struct {
	mu    sync.RWMutex
	state worldState

	cfg      Config
	settings constraint.Settings

	log        logr.Logger
	limiter    *rate.Limiter
	registerer prometheus.Registerer
	metrics    *metrics

	dispatcher *Dispatcher
	reg        *registry
	broadPhase BroadPhase
	cache      *constraint.ContactCache
	events     Events

	// done is closed when the outstanding step finished
	done  chan struct{}
	stats stepStats

	committed   map[ActorID]bodyState
	brokenJoint map[JointID]bool
}

type Option func(*World)

// WithLogger sets the logger; lifecycle messages are logged at V(1) and
// per-step details at V(2).
func WithLogger(log logr.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

// WithRegisterer registers the world metrics on reg instead of a private registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(w *World) {
		w.registerer = reg
	}
}

// New returns an uninitialized world
func New(opts ...Option) *World {
	w := &World{
		log:    logr.Discard(),
		events: NewEvents(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewWorld returns an initialized world
func NewWorld(cfg Config, opts ...Option) (*World, error) {
	w := New(opts...)
	if err := w.Init(cfg); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) Init(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateUninit {
		return opError("init", 0, fmt.Errorf("%w: world %s", ErrInvalidState, w.state))
	}
	if err := cfg.Validate(); err != nil {
		return opError("init", 0, err)
	}

	if w.registerer == nil {
		w.registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(w.registerer)
	if err != nil {
		return opError("init", 0, err)
	}

	w.cfg = cfg
	w.settings = cfg.settings()
	w.metrics = m
	w.limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	w.dispatcher = NewDispatcher(cfg.Workers)
	w.reg = newRegistry()
	w.broadPhase = newBroadPhase(cfg)
	w.cache = constraint.NewContactCache()
	w.committed = make(map[ActorID]bodyState)
	w.brokenJoint = make(map[JointID]bool)
	w.state = stateIdle

	w.log.V(1).Info("world initialized",
		"workers", cfg.Workers,
		"substeps", cfg.Substeps,
		"broadPhase", cfg.BroadPhase,
		"gravity", cfg.Gravity)
	return nil
}

// Shutdown waits for an outstanding step, then releases everything. Any
// later call fails with ErrInvalidState.
func (w *World) Shutdown() error {
	w.mu.Lock()
	if w.state == stateShutdown {
		w.mu.Unlock()
		return opError("shutdown", 0, errShutdown)
	}
	if w.state == stateSimulating {
		done := w.done
		w.mu.Unlock()
		<-done
		w.mu.Lock()
	}
	defer w.mu.Unlock()

	if w.state == stateShutdown {
		return opError("shutdown", 0, errShutdown)
	}
	if w.state != stateUninit {
		w.dispatcher.Close()
		w.metrics.unregister()
		w.reg.clear()
		clear(w.committed)
		clear(w.brokenJoint)
		w.cache.Clear()
	}
	w.done = nil
	w.state = stateShutdown

	w.log.V(1).Info("world shut down")
	return nil
}

var errShutdown = fmt.Errorf("%w: world shut down", ErrInvalidState)

// require returns the error of a call made outside the allowed states. After
// shutdown, calls naming an id also match ErrNotFound.
func (w *World) require(withID bool, allowed ...worldState) error {
	if slices.Contains(allowed, w.state) {
		return nil
	}
	if w.state == stateShutdown {
		if withID {
			return fmt.Errorf("%w: %w", errShutdown, ErrNotFound)
		}
		return errShutdown
	}
	if w.state == stateSimulating {
		return fmt.Errorf("%w: step in progress", ErrInvalidState)
	}
	return fmt.Errorf("%w: world %s", ErrInvalidState, w.state)
}

// mutable checks the world accepts mutations
func (w *World) mutable(withID bool) error {
	return w.require(withID, stateIdle)
}

// readable checks the committed results may be read
func (w *World) readable(withID bool) error {
	return w.require(withID, stateIdle, stateSimulating)
}

func (w *World) Config() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Subscribe registers a listener. Listeners run on the goroutine calling
// FetchResults, after the world is unlocked.
func (w *World) Subscribe(eventType EventType, listener EventListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events.Subscribe(eventType, listener)
}

// Simulate starts advancing the world by dt. Results are visible once
// FetchResults returns true.
func (w *World) Simulate(dt float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(false); err != nil {
		return opError("simulate", 0, err)
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return opError("simulate", 0, violation("time step %v", dt))
	}

	done := make(chan struct{})
	w.done = done
	w.state = stateSimulating

	go func() {
		defer close(done)
		w.stats = w.step(dt)
	}()
	return nil
}

// FetchResults commits the outstanding step and dispatches its events. When
// block is false and the step is still running it returns false.
func (w *World) FetchResults(block bool) (bool, error) {
	w.mu.Lock()
	if w.state != stateSimulating {
		err := w.require(false, stateSimulating)
		if w.state == stateIdle {
			err = fmt.Errorf("%w: no step in progress", ErrInvalidState)
		}
		w.mu.Unlock()
		return false, opError("fetch results", 0, err)
	}
	done := w.done
	w.mu.Unlock()

	if block {
		<-done
	} else {
		select {
		case <-done:
		default:
			return false, nil
		}
	}

	w.mu.Lock()
	if w.done != done {
		// committed by a concurrent FetchResults
		w.mu.Unlock()
		return true, nil
	}
	w.commit()
	calls := w.events.flush()
	w.mu.Unlock()

	for _, call := range calls {
		call()
	}
	return true, nil
}

// Step simulates dt and waits for the results
func (w *World) Step(dt float64) error {
	if err := w.Simulate(dt); err != nil {
		return err
	}
	_, err := w.FetchResults(true)
	return err
}

// commit publishes the state of the finished step. Called with mu held.
func (w *World) commit() {
	for _, rb := range w.reg.bodies {
		w.committed[ActorID(rb.ID)] = snapshotOf(rb)
	}
	for _, j := range w.reg.jointList {
		w.brokenJoint[JointID(j.ID)] = j.IsBroken()
	}

	stats := w.stats
	w.metrics.stepDuration.Observe(stats.duration.Seconds())
	w.metrics.pairs.Set(float64(stats.pairs))
	w.metrics.contacts.Set(float64(stats.contacts))
	w.metrics.islands.Set(float64(stats.islands))
	w.metrics.awakeBodies.Set(float64(stats.awake))

	w.done = nil
	w.state = stateIdle
}

func snapshotOf(rb *actor.RigidBody) bodyState {
	return bodyState{
		pose:            rb.Transform,
		velocity:        rb.Velocity,
		angularVelocity: rb.AngularVelocity,
		sleeping:        rb.IsSleeping,
	}
}

// step runs on its own goroutine while the world is simulating. It owns the
// bodies, joints, broad phase and contact cache until it returns.
func (w *World) step(dt float64) stepStats {
	start := time.Now()
	var stats stepStats

	h := dt / float64(w.cfg.Substeps)
	for range w.cfg.Substeps {
		w.substep(h, &stats)
	}

	for _, rb := range w.reg.bodies {
		rb.ClearForces()
		if isAwake(rb) {
			stats.awake++
		}
	}

	w.events.processSleepEvents(w.reg.bodies)
	w.events.processCollisionEvents(w.resting)

	if stats.estimated > 0 {
		w.metrics.epaFallbacks.Add(float64(stats.estimated))
		if w.limiter.Allow() {
			w.log.Info("penetration depth estimated after EPA did not converge", "contacts", stats.estimated)
		}
	}

	stats.duration = time.Since(start)
	w.log.V(2).Info("step",
		"dt", dt,
		"pairs", stats.pairs,
		"contacts", stats.contacts,
		"islands", stats.islands,
		"awake", stats.awake,
		"duration", stats.duration)
	return stats
}

func (w *World) substep(h float64, stats *stepStats) {
	for _, rb := range w.reg.bodies {
		if isAwake(rb) && len(rb.Colliders) > 0 {
			w.broadPhase.Update(ActorID(rb.ID), rb.Bounds().Expand(w.cfg.ContactOffset+sweepDistance(rb, h)))
		}
	}

	pairs := w.broadPhase.Pairs()
	jointed := w.reg.jointedPairs()

	candidates := make([]bodyPair, 0, len(pairs))
	for _, p := range pairs {
		a, b := w.reg.actors[p.A], w.reg.actors[p.B]
		if !isAwake(a) && !isAwake(b) {
			continue
		}
		if jointed[p] {
			continue
		}
		margin := w.settings.SpeculativeDistance + sweepDistance(a, h) + sweepDistance(b, h)
		candidates = append(candidates, bodyPair{a: a, b: b, margin: margin})
	}

	results := narrowPhase(w.dispatcher, candidates, w.cache, w.settings)

	var contacts []*constraint.ContactConstraint
	for i, r := range results {
		pair := makePair(ActorID(candidates[i].a.ID), ActorID(candidates[i].b.ID))
		if r.trigger {
			w.events.recordContact(pair, true)
		}
		if r.touching {
			w.events.recordContact(pair, false)
		}
		contacts = append(contacts, r.contacts...)
		stats.estimated += r.estimated
	}

	joints := w.wakeTouched(contacts)

	bodies := make([]*actor.RigidBody, 0, len(w.reg.bodies))
	for _, rb := range w.reg.bodies {
		if isAwake(rb) {
			bodies = append(bodies, rb)
		}
	}

	islands := buildIslands(bodies, contacts, joints)
	broken := make([][]*constraint.Joint, len(islands))
	task(w.dispatcher, islands, func(i int, island *constraint.Island) {
		broken[i] = island.Solve(h, w.cfg.Gravity, w.settings)
		w.trySleep(island, h)
		for _, rb := range island.Bodies {
			rb.UpdateColliders()
		}
	})

	if w.settings.WarmStarting {
		w.cache.Rebuild(contacts)
	}

	for _, joints := range broken {
		for _, j := range joints {
			w.log.Info("joint broken", "joint", j.ID, "actorA", j.BodyA.ID, "actorB", j.BodyB.ID)
			w.metrics.brokenJoints.Inc()
			w.events.emitJointBreak(JointID(j.ID), ActorID(j.BodyA.ID), ActorID(j.BodyB.ID))
			stats.broken++
		}
	}

	stats.pairs = len(pairs)
	stats.contacts = len(contacts)
	stats.islands = len(islands)
}

// wakeTouched wakes the sleeping bodies touched by an awake body or held by
// a joint to one, and returns the unbroken joints to solve.
func (w *World) wakeTouched(contacts []*constraint.ContactConstraint) []*constraint.Joint {
	for _, c := range contacts {
		wakePair(c.BodyA, c.BodyB)
	}

	var joints []*constraint.Joint
	for changed := true; changed; {
		changed = false
		for _, j := range w.reg.jointList {
			if !j.IsBroken() && wakePair(j.BodyA, j.BodyB) {
				changed = true
			}
		}
	}
	for _, j := range w.reg.jointList {
		if !j.IsBroken() && (isAwake(j.BodyA) || isAwake(j.BodyB)) {
			joints = append(joints, j)
		}
	}
	return joints
}

// wakePair wakes one body of the pair when the other is awake
func wakePair(a, b *actor.RigidBody) bool {
	switch {
	case isAwake(a) && !b.IsStatic() && b.IsSleeping:
		b.Awake()
	case isAwake(b) && !a.IsStatic() && a.IsSleeping:
		a.Awake()
	default:
		return false
	}
	return true
}

// trySleep puts the island to sleep once all its bodies stayed slow for
// Sleep.Time. A zero time disables sleeping.
func (w *World) trySleep(island *constraint.Island, h float64) {
	if w.cfg.Sleep.Time <= 0 {
		return
	}

	minTimer := math.Inf(1)
	for _, rb := range island.Bodies {
		minTimer = math.Min(minTimer, rb.UpdateSleepTimer(h, w.cfg.Sleep.LinearThreshold, w.cfg.Sleep.AngularThreshold))
	}
	if minTimer < w.cfg.Sleep.Time {
		return
	}
	for _, rb := range island.Bodies {
		rb.Sleep()
	}
}

// resting reports whether neither actor of the pair can move
func (w *World) resting(p Pair) bool {
	a, okA := w.reg.actors[p.A]
	b, okB := w.reg.actors[p.B]
	return okA && okB && !isAwake(a) && !isAwake(b)
}

func isAwake(rb *actor.RigidBody) bool {
	return !rb.IsStatic() && !rb.IsSleeping
}
