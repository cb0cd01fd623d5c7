package plan

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinoreplan/internal/monitoring"
)

// SafetyTick runs one step of the safety monitor: goal clearance checking
// with relocation, then active-trajectory collision checking. It runs on
// its own schedule, interleaved with the FSM tick, and is the only other
// writer of the planning state. Both run under the controller mutex, so a
// forced transition here is always observed by the next FSM tick.
func (c *Controller) SafetyTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flight.HaveGoal {
		c.checkGoalSafety()
	}

	if c.state == StateExecTraj {
		safe, dist := c.planner.CheckTrajectoryCollision()
		if !safe {
			monitoring.Warnf("current trajectory in collision (clearance %.2f)", dist)
			if c.recorder != nil {
				c.recorder.RecordSafetyEvent("trajectory_collision",
					fmt.Sprintf("clearance=%.3f", dist))
			}
			c.changeState(StateReplanTraj, "SAFETY")
		}
	}
}

// checkGoalSafety verifies the commanded goal still has clearance and, when
// it does not, runs the relocation search. A safe candidate replaces the
// goal and forces a replan if one is executing; with no safe candidate the
// goal is kept and the controller is pushed into its retry loop instead of
// halting — the one thing this monitor must never do is stop the vehicle
// from producing decisions.
func (c *Controller) checkGoalSafety() {
	atTime := c.clearanceQueryTime()

	dist := c.field.Clearance(c.flight.GoalPosition, atTime)
	if dist > c.cfg.SafetyMargin {
		return
	}

	goal, maxDist := RelocateGoal(c.flight.GoalPosition, c.field, atTime)

	if maxDist > c.cfg.SafetyMargin {
		monitoring.Logf("goal unsafe (clearance %.2f), relocated to (%.2f, %.2f, %.2f)",
			dist, goal.X, goal.Y, goal.Z)
		if c.recorder != nil {
			c.recorder.RecordSafetyEvent("goal_relocated",
				fmt.Sprintf("clearance=%.3f new=(%.2f,%.2f,%.2f)", maxDist, goal.X, goal.Y, goal.Z))
		}

		c.flight.GoalPosition = goal
		c.flight.GoalVelocity = r3.Vec{}
		c.flight.HaveGoal = true

		if c.state == StateExecTraj {
			c.changeState(StateReplanTraj, "SAFETY")
		}
		if c.viz != nil {
			c.viz.DrawGoal(goal)
		}
		return
	}

	// No candidate clears the margin. Keep the goal and keep retrying.
	monitoring.Logf("goal near collision, no safe candidate, keep retry")
	if c.recorder != nil {
		c.recorder.RecordSafetyEvent("goal_unsafe_retry",
			fmt.Sprintf("clearance=%.3f best=%.3f", dist, maxDist))
	}
	c.changeState(StateReplanTraj, "SAFETY")
	c.pub.SignalReplan()
}

// clearanceQueryTime selects the distance-field query variant: the
// time-indexed field at the active trajectory's horizon for dynamic
// environments, the static sentinel otherwise.
func (c *Controller) clearanceQueryTime() float64 {
	if c.cfg.DynamicEnvironment && c.traj != nil {
		return c.traj.Duration()
	}
	return NoTime
}
