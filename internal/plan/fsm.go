package plan

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinoreplan/internal/config"
	"github.com/banshee-data/kinoreplan/internal/monitoring"
)

// Config holds the controller parameters. Build one from a loaded
// TuningConfig via ConfigFromTuning, or from the canonical defaults file
// via DefaultConfig.
type Config struct {
	TargetMode string   // config.TargetManual or config.TargetPreset
	Waypoints  []r3.Vec // preset goal cycle, bounded at config.MaxWaypoints

	ThreshReplan   float64 // minimum progress along the trajectory before a replan (metres)
	ThreshNoReplan float64 // goal proximity below which replans are suppressed (metres)

	SafetyMargin       float64 // goal clearance at or below which relocation triggers (metres)
	DynamicEnvironment bool    // select the time-indexed clearance query

	ExecTick   time.Duration // FSM tick period
	SafetyTick time.Duration // safety monitor tick period

	StateDigestTicks int // exec ticks between periodic state digests
}

// DefaultConfig returns controller configuration loaded from the canonical
// planner defaults file (config/planner.defaults.json). Panics if the file
// cannot be found — intended for tests and binaries that have already
// validated config availability.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig. Use this in
// production code where the TuningConfig is already loaded and validated.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	wps := make([]r3.Vec, len(cfg.Waypoints))
	for i, wp := range cfg.Waypoints {
		wps[i] = r3.Vec{X: wp.X, Y: wp.Y, Z: wp.Z}
	}
	return Config{
		TargetMode:         cfg.GetFlightTargetMode(),
		Waypoints:          wps,
		ThreshReplan:       cfg.GetThreshReplan(),
		ThreshNoReplan:     cfg.GetThreshNoReplan(),
		SafetyMargin:       cfg.GetSafetyMargin(),
		DynamicEnvironment: cfg.GetDynamicEnvironment(),
		ExecTick:           cfg.GetExecTick(),
		SafetyTick:         cfg.GetSafetyTick(),
		StateDigestTicks:   cfg.GetStateDigestTicks(),
	}
}

// Controller owns the planning state machine. Two periodic activities (the
// FSM tick and the safety tick) and two asynchronous handlers (odometry,
// goal) funnel through a single mutex, preserving the run-to-completion
// ordering the policies assume: no activity ever observes another
// mid-update, and a safety-forced transition is visible to the very next
// FSM tick.
//
// The planner call happens under the lock. A slow replan therefore delays
// the next tick rather than racing it — accepted, since replans are rare
// relative to the tick rate and there is no cancellation semantic for an
// in-flight plan.
type Controller struct {
	mu sync.Mutex

	cfg     Config
	planner Planner
	field   DistanceField
	pub     Publisher

	viz      Visualizer // optional
	recorder Recorder   // optional
	now      func() time.Time

	state     State
	flight    FlightState
	waypoints *WaypointCycle

	traj    Trajectory
	yawTraj YawTrajectory
	trajID  int64

	tickCount int
}

// NewController wires a controller from its collaborators. planner, field
// and pub are required; the visualizer and recorder are optional and set
// via SetVisualizer / SetRecorder before Run.
func NewController(cfg Config, planner Planner, field DistanceField, pub Publisher) *Controller {
	return &Controller{
		cfg:       cfg,
		planner:   planner,
		field:     field,
		pub:       pub,
		now:       time.Now,
		state:     StateInit,
		waypoints: NewWaypointCycle(cfg.Waypoints),
	}
}

// SetVisualizer attaches the best-effort drawing sink.
func (c *Controller) SetVisualizer(v Visualizer) { c.viz = v }

// SetRecorder attaches the flight log sink.
func (c *Controller) SetRecorder(r Recorder) { c.recorder = r }

// SetClock replaces the controller's time source. Test hook.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// State returns the current planning state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Flight returns a snapshot of the shared flight state.
func (c *Controller) Flight() FlightState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight
}

// ActiveTrajectory returns the active trajectory, or nil before the first
// successful plan.
func (c *Controller) ActiveTrajectory() Trajectory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traj
}

// Run drives the FSM tick and the safety tick until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	execTicker := time.NewTicker(c.cfg.ExecTick)
	defer execTicker.Stop()
	safetyTicker := time.NewTicker(c.cfg.SafetyTick)
	defer safetyTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-execTicker.C:
			c.Tick()
		case <-safetyTicker.C:
			c.SafetyTick()
		}
	}
}

// OnOdometry ingests an odometry update. Last-writer-wins: a burst of
// updates simply overwrites the snapshot.
func (c *Controller) OnOdometry(odom Odometry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flight.Odom = odom
	c.flight.HaveOdom = true
}

// OnGoal ingests a goal message. Sentinel messages (first-pose z below the
// guard bound) are silently dropped. A valid message latches the trigger,
// resolves the goal position according to the target mode, clears the goal
// velocity and — depending on the current state — forces the matching
// planning transition.
func (c *Controller) OnGoal(msg GoalMessage) {
	if msg.Sentinel() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	monitoring.Logf("goal triggered")
	c.flight.Triggered = true

	switch c.cfg.TargetMode {
	case config.TargetPreset:
		if c.waypoints.Len() == 0 {
			return // validated at load time; defensive for direct construction
		}
		c.flight.GoalPosition = c.waypoints.Next()
	default: // manual: first pose, flight altitude pinned
		p := msg.Poses[0].Position
		c.flight.GoalPosition = r3.Vec{X: p.X, Y: p.Y, Z: 1.0}
	}

	if c.viz != nil {
		c.viz.DrawGoal(c.flight.GoalPosition)
	}
	c.flight.GoalVelocity = r3.Vec{}
	c.flight.HaveGoal = true

	switch c.state {
	case StateWaitTarget:
		c.changeState(StateGenNewTraj, "TRIG")
	case StateExecTraj:
		c.changeState(StateReplanTraj, "TRIG")
	}
}

// Tick runs one step of the state machine. Exported so tests and external
// schedulers can drive the controller without Run.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tickCount++
	if c.cfg.StateDigestTicks > 0 && c.tickCount%c.cfg.StateDigestTicks == 0 {
		monitoring.Logf("[FSM]: state: %s", c.state)
		if !c.flight.HaveOdom {
			monitoring.Logf("[FSM]: no odom")
		}
		if !c.flight.Triggered {
			monitoring.Logf("[FSM]: wait for goal")
		}
	}

	switch c.state {
	case StateInit:
		if !c.flight.HaveOdom || !c.flight.Triggered {
			return
		}
		c.changeState(StateWaitTarget, "FSM")

	case StateWaitTarget:
		if !c.flight.HaveGoal {
			return
		}
		c.changeState(StateGenNewTraj, "FSM")

	case StateGenNewTraj:
		bc := c.boundaryFromOdometry()
		if c.callReplan(bc) {
			c.changeState(StateExecTraj, "FSM")
		} else {
			c.changeState(StateGenNewTraj, "FSM")
		}

	case StateExecTraj:
		tCur := c.elapsedOnTrajectory()
		pos := c.traj.PositionAt(tCur)

		switch DecideReplan(tCur, c.traj.Duration(), pos, c.flight.GoalPosition,
			c.traj.StartPosition(), c.cfg.ThreshNoReplan, c.cfg.ThreshReplan) {
		case DecisionExhausted:
			c.flight.HaveGoal = false
			c.changeState(StateWaitTarget, "FSM")
		case DecisionHoldNearGoal, DecisionHoldNearStart:
			// continue on the current trajectory
		case DecisionReplan:
			c.changeState(StateReplanTraj, "FSM")
		}

	case StateReplanTraj:
		// The safety monitor can force this state before any trajectory has
		// been planned. There is nothing to sample a boundary from, so plan
		// fresh from odometry instead of dereferencing a missing trajectory.
		if c.traj == nil {
			c.changeState(StateGenNewTraj, "FSM")
			return
		}
		bc := c.boundaryFromTrajectory()
		c.pub.SignalReplan()
		if c.callReplan(bc) {
			c.changeState(StateExecTraj, "FSM")
		} else {
			c.changeState(StateGenNewTraj, "FSM")
		}
	}
}

// boundaryFromOdometry builds boundary conditions for a fresh trajectory:
// current pose and velocity, zero acceleration, heading from the odometry
// quaternion with zero rate and acceleration.
func (c *Controller) boundaryFromOdometry() BoundaryConditions {
	return BoundaryConditions{
		StartPos: c.flight.Odom.Position,
		StartVel: c.flight.Odom.Velocity,
		StartAcc: r3.Vec{},
		StartYaw: [3]float64{c.flight.Odom.Yaw(), 0, 0},
		EndPos:   c.flight.GoalPosition,
		EndVel:   c.flight.GoalVelocity,
	}
}

// boundaryFromTrajectory builds boundary conditions for a replan-in-flight:
// every start quantity is sampled from the active trajectory at the current
// elapsed time, so the handoff between old and new trajectory is continuous.
func (c *Controller) boundaryFromTrajectory() BoundaryConditions {
	tCur := c.elapsedOnTrajectory()

	bc := BoundaryConditions{
		StartPos: c.traj.PositionAt(tCur),
		StartVel: c.traj.VelocityAt(tCur),
		StartAcc: c.traj.AccelerationAt(tCur),
		EndPos:   c.flight.GoalPosition,
		EndVel:   c.flight.GoalVelocity,
	}
	if c.yawTraj != nil {
		yaw, yawRate, yawAcc := c.yawTraj.YawAt(tCur)
		bc.StartYaw = [3]float64{yaw, yawRate, yawAcc}
	}
	return bc
}

// elapsedOnTrajectory returns seconds since the active trajectory started,
// clamped to its duration.
func (c *Controller) elapsedOnTrajectory() float64 {
	t := c.now().Sub(c.traj.StartTime()).Seconds()
	if t < 0 {
		t = 0
	}
	if d := c.traj.Duration(); t > d {
		t = d
	}
	return t
}

// callReplan invokes the planner with the given boundary conditions and, on
// success, installs the new trajectory, plans yaw, publishes the outbound
// message and fires the visualization side effects. Returns false on plan
// failure; the caller decides the recovery transition.
func (c *Controller) callReplan(bc BoundaryConditions) bool {
	traj, err := c.planner.Replan(bc)
	if err != nil {
		monitoring.Logf("trajectory generation failed: %v", err)
		return false
	}

	yawTraj, err := c.planner.PlanYaw(bc.StartYaw)
	if err != nil {
		// Position plan stands; fly it with the yaw curve missing rather
		// than discarding a feasible trajectory.
		monitoring.Logf("yaw planning failed: %v", err)
		yawTraj = nil
	}

	c.traj = traj
	c.yawTraj = yawTraj
	c.trajID++

	msg := NewTrajectoryMessage(c.trajID, traj, yawTraj)
	if err := c.pub.PublishTrajectory(msg); err != nil {
		monitoring.Logf("trajectory publish failed: %v", err)
	}
	if c.recorder != nil {
		c.recorder.RecordTrajectory(msg)
	}

	if c.viz != nil {
		c.viz.DrawGeometricPath(sampleGeometricPath(traj))
		c.viz.DrawCurve(traj)
	}

	return true
}

// sampleGeometricPath samples the planned curve for the geometric-path
// drawing side effect.
func sampleGeometricPath(traj Trajectory) []r3.Vec {
	const step = 0.1 // seconds between samples
	d := traj.Duration()
	n := int(d/step) + 1
	path := make([]r3.Vec, 0, n+1)
	for t := 0.0; t < d; t += step {
		path = append(path, traj.PositionAt(t))
	}
	path = append(path, traj.PositionAt(d))
	return path
}

// changeState performs a state transition and logs it with the triggering
// caller. Must be called with the controller mutex held.
func (c *Controller) changeState(next State, caller string) {
	prev := c.state
	c.state = next
	monitoring.Logf("[%s]: from %s to %s", caller, prev, next)
	if c.recorder != nil {
		c.recorder.RecordTransition(prev, next, caller)
	}
}
