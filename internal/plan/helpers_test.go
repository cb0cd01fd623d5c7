package plan

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// fakeTrajectory is a straight-line stand-in for a planned curve: constant
// velocity from startPos to endPos over duration, with canned control
// points and knots for publish tests. Queries clamp to [0, duration] per
// the Trajectory contract.
type fakeTrajectory struct {
	start    time.Time
	duration float64
	startPos r3.Vec
	endPos   r3.Vec
	cps      []r3.Vec
	knots    []float64
}

func (f *fakeTrajectory) StartTime() time.Time  { return f.start }
func (f *fakeTrajectory) Duration() float64     { return f.duration }
func (f *fakeTrajectory) StartPosition() r3.Vec { return f.startPos }

func (f *fakeTrajectory) clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > f.duration {
		return f.duration
	}
	return t
}

func (f *fakeTrajectory) PositionAt(t float64) r3.Vec {
	frac := f.clamp(t) / f.duration
	return r3.Add(f.startPos, r3.Scale(frac, r3.Sub(f.endPos, f.startPos)))
}

func (f *fakeTrajectory) VelocityAt(t float64) r3.Vec {
	return r3.Scale(1/f.duration, r3.Sub(f.endPos, f.startPos))
}

func (f *fakeTrajectory) AccelerationAt(t float64) r3.Vec { return r3.Vec{} }
func (f *fakeTrajectory) ControlPoints() []r3.Vec         { return f.cps }
func (f *fakeTrajectory) Knots() []float64                { return f.knots }

type fakeYawTrajectory struct {
	cps []float64
	dt  float64
}

func (f *fakeYawTrajectory) YawAt(t float64) (float64, float64, float64) {
	if len(f.cps) == 0 {
		return 0, 0, 0
	}
	return f.cps[0], 0, 0
}
func (f *fakeYawTrajectory) ControlPoints() []float64 { return f.cps }
func (f *fakeYawTrajectory) SampleInterval() float64  { return f.dt }

// scriptedPlanner fails the next failures calls to Replan, then produces
// straight-line fakeTrajectories. It records every boundary condition it
// was handed.
type scriptedPlanner struct {
	failures int
	duration float64
	now      func() time.Time

	planCalls int
	yawCalls  int
	lastBC    BoundaryConditions

	collisionSafe bool
	collisionDist float64
}

func newScriptedPlanner(now func() time.Time) *scriptedPlanner {
	return &scriptedPlanner{
		duration:      10.0,
		now:           now,
		collisionSafe: true,
		collisionDist: 5.0,
	}
}

func (p *scriptedPlanner) Replan(bc BoundaryConditions) (Trajectory, error) {
	p.planCalls++
	p.lastBC = bc
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("no feasible kinodynamic path")
	}
	return &fakeTrajectory{
		start:    p.now(),
		duration: p.duration,
		startPos: bc.StartPos,
		endPos:   bc.EndPos,
		cps:      []r3.Vec{bc.StartPos, r3.Scale(0.5, r3.Add(bc.StartPos, bc.EndPos)), bc.EndPos},
		knots:    []float64{0, 0, 0, 1, 1, 1},
	}, nil
}

func (p *scriptedPlanner) PlanYaw(startYaw [3]float64) (YawTrajectory, error) {
	p.yawCalls++
	return &fakeYawTrajectory{cps: []float64{startYaw[0], startYaw[0]}, dt: 0.2}, nil
}

func (p *scriptedPlanner) CheckTrajectoryCollision() (bool, float64) {
	return p.collisionSafe, p.collisionDist
}

// funcField adapts a closure into a DistanceField.
type funcField func(pt r3.Vec, atTime float64) float64

func (f funcField) Clearance(pt r3.Vec, atTime float64) float64 { return f(pt, atTime) }

// openField reports generous clearance everywhere.
var openField = funcField(func(r3.Vec, float64) float64 { return 10.0 })

// capturePublisher records published trajectories and replan signals.
type capturePublisher struct {
	msgs    []*TrajectoryMessage
	signals int
	err     error
}

func (p *capturePublisher) PublishTrajectory(msg *TrajectoryMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *capturePublisher) SignalReplan() { p.signals++ }

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	return Config{
		TargetMode:       "manual",
		ThreshReplan:     1.5,
		ThreshNoReplan:   2.0,
		SafetyMargin:     0.3,
		ExecTick:         10 * time.Millisecond,
		SafetyTick:       50 * time.Millisecond,
		StateDigestTicks: 100,
	}
}

// newTestController wires a controller with scripted collaborators and a
// fake clock. The clock is shared with the planner so trajectory start
// times line up with controller time.
func newTestController() (*Controller, *scriptedPlanner, *capturePublisher, *fakeClock) {
	clock := newFakeClock()
	planner := newScriptedPlanner(clock.Now)
	pub := &capturePublisher{}
	c := NewController(testConfig(), planner, openField, pub)
	c.SetClock(clock.Now)
	return c, planner, pub, clock
}

// validOdometry returns an identity-orientation odometry sample at origin.
func validOdometry() Odometry {
	return Odometry{
		Position:    r3.Vec{X: 0, Y: 0, Z: 1},
		Velocity:    r3.Vec{},
		Orientation: quat.Number{Real: 1},
	}
}
