package plan

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the authoritative planning phase of the controller. Exactly one
// value is live at any time; the controller is its sole steady-state writer,
// with the safety monitor as the one sanctioned out-of-band writer.
type State string

const (
	StateInit       State = "INIT"         // waiting for odometry and the first trigger
	StateWaitTarget State = "WAIT_TARGET"  // odometry present, awaiting a goal
	StateGenNewTraj State = "GEN_NEW_TRAJ" // planning a fresh trajectory from odometry
	StateExecTraj   State = "EXEC_TRAJ"    // trajectory active, monitoring progress
	StateReplanTraj State = "REPLAN_TRAJ"  // planning a takeover trajectory in flight

	// StateReplanNew is declared by the upstream planner vocabulary but has
	// no transitions here; reserved for a future planning mode.
	StateReplanNew State = "REPLAN_NEW"
)

// Odometry is the last known vehicle pose and twist.
type Odometry struct {
	Position    r3.Vec
	Velocity    r3.Vec
	Orientation quat.Number // unit quaternion, body to world
}

// Yaw extracts the heading angle from the orientation quaternion: the
// rotated body-x axis projected onto the world xy-plane.
func (o Odometry) Yaw() float64 {
	x := quat.Number{Imag: 1}
	q := o.Orientation
	rotated := quat.Mul(quat.Mul(q, x), quat.Conj(q))
	return math.Atan2(rotated.Jmag, rotated.Imag)
}

// FlightState is the shared mutable snapshot written by the asynchronous
// input handlers and read by the periodic ticks. It is owned by the
// Controller and only ever touched under the controller mutex.
type FlightState struct {
	Odom     Odometry
	HaveOdom bool

	GoalPosition r3.Vec
	GoalVelocity r3.Vec
	HaveGoal     bool

	// Triggered latches once any valid goal message has arrived. It never
	// clears: INIT waits for it exactly once per flight.
	Triggered bool
}

// GoalPose is a single pose of an incoming goal message.
type GoalPose struct {
	Position r3.Vec
}

// GoalMessage is the inbound goal payload: an ordered pose sequence of which
// only the first entry is consumed. A first-pose z below SentinelZ marks the
// whole message as a sentinel to be ignored.
type GoalMessage struct {
	Poses []GoalPose
}

// SentinelZ is the guard coordinate: goal messages whose first pose sits
// below this z are invalid/sentinel messages and are silently dropped.
const SentinelZ = -0.1

// Sentinel reports whether the message should be ignored.
func (m GoalMessage) Sentinel() bool {
	return len(m.Poses) == 0 || m.Poses[0].Position.Z < SentinelZ
}

// WaypointCycle is a bounded ordered sequence of preset goals with an
// explicit cyclic index. The sequence is immutable after construction; the
// index is the only mutable field and advances modulo the length each time
// a goal is consumed.
type WaypointCycle struct {
	points []r3.Vec
	next   int
}

// NewWaypointCycle builds a cycle over the given points. Returns nil for an
// empty list: callers treat a nil cycle as "no preset goals configured".
func NewWaypointCycle(points []r3.Vec) *WaypointCycle {
	if len(points) == 0 {
		return nil
	}
	owned := make([]r3.Vec, len(points))
	copy(owned, points)
	return &WaypointCycle{points: owned}
}

// Next returns the current waypoint and advances the index.
func (w *WaypointCycle) Next() r3.Vec {
	p := w.points[w.next]
	w.next = (w.next + 1) % len(w.points)
	return p
}

// Len returns the number of waypoints in the cycle.
func (w *WaypointCycle) Len() int {
	if w == nil {
		return 0
	}
	return len(w.points)
}
