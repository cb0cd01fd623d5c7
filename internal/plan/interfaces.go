package plan

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// NoTime is the sentinel passed to DistanceField.Clearance when the query
// should use the static field rather than a time-indexed one.
const NoTime = -1.0

// Trajectory is the read-only view of the active trajectory produced by the
// replanning collaborator. All time-indexed queries take an offset in seconds
// from StartTime and must clamp to [0, Duration]: sampling past the end
// returns the final state, never an undefined value.
type Trajectory interface {
	StartTime() time.Time
	Duration() float64

	// StartPosition is the position the curve was planned from. Used by the
	// replan decision policy to suppress replans immediately after takeover.
	StartPosition() r3.Vec

	PositionAt(t float64) r3.Vec
	VelocityAt(t float64) r3.Vec
	AccelerationAt(t float64) r3.Vec

	// ControlPoints and Knots expose the underlying B-spline for publishing.
	ControlPoints() []r3.Vec
	Knots() []float64
}

// YawTrajectory is the yaw curve planned alongside a position trajectory.
type YawTrajectory interface {
	// YawAt returns yaw, yaw rate and yaw acceleration at offset t, clamped
	// to the curve's domain.
	YawAt(t float64) (yaw, yawRate, yawAcc float64)

	ControlPoints() []float64
	SampleInterval() float64
}

// BoundaryConditions is the transient request value handed to the planner.
// It is built fresh before every planning call, either from raw odometry
// (new trajectory) or from a time-sampled point on the active trajectory
// (replan-in-flight).
type BoundaryConditions struct {
	StartPos r3.Vec
	StartVel r3.Vec
	StartAcc r3.Vec
	StartYaw [3]float64 // yaw, yaw rate, yaw acceleration

	EndPos r3.Vec
	EndVel r3.Vec
}

// Planner is the replanning collaborator: the kinodynamic search front-end
// plus trajectory-optimization back-end, consumed as a single synchronous
// interface. A failed plan is an ordinary error, never fatal: the controller
// recovers by re-entering its generation state.
type Planner interface {
	Replan(bc BoundaryConditions) (Trajectory, error)
	PlanYaw(startYaw [3]float64) (YawTrajectory, error)

	// CheckTrajectoryCollision reports whether the most recently planned
	// trajectory is still collision-free against the planner's environment,
	// and the clearance distance at the closest approach.
	CheckTrajectoryCollision() (safe bool, dist float64)
}

// DistanceField answers conservative obstacle clearance queries.
// atTime selects the time-indexed field for dynamic environments; pass
// NoTime for a static query.
type DistanceField interface {
	Clearance(pt r3.Vec, atTime float64) float64
}

// Publisher is the outbound messaging boundary. Implementations must not
// block the controller tick.
type Publisher interface {
	PublishTrajectory(msg *TrajectoryMessage) error

	// SignalReplan emits the zero-payload replan notification, once per
	// replanning attempt initiated from REPLAN_TRAJ or from a failed goal
	// relocation.
	SignalReplan()
}

// Visualizer receives best-effort drawing side effects. Implementations must
// swallow their own failures; the controller ignores them entirely.
type Visualizer interface {
	DrawGoal(goal r3.Vec)
	DrawGeometricPath(path []r3.Vec)
	DrawCurve(traj Trajectory)
}

// Recorder persists controller events for post-flight analysis. Optional;
// a nil recorder disables persistence.
type Recorder interface {
	RecordTransition(from, to State, caller string)
	RecordTrajectory(msg *TrajectoryMessage)
	RecordSafetyEvent(kind, detail string)
}
