package plan

import "gonum.org/v1/gonum/spatial/r3"

// Decision is the outcome of the replan decision policy for one tick of
// EXEC_TRAJ.
type Decision int

const (
	// DecisionExhausted means the trajectory has run out: clear the goal and
	// fall back to WAIT_TARGET.
	DecisionExhausted Decision = iota
	// DecisionHoldNearGoal means the vehicle is close enough to the goal
	// that replanning would only destabilise arrival.
	DecisionHoldNearGoal
	// DecisionHoldNearStart means the current trajectory is too young:
	// replanning this early wastes compute and risks near-degenerate
	// boundary conditions for the optimizer.
	DecisionHoldNearStart
	// DecisionReplan means progress and geometry warrant a fresh plan.
	DecisionReplan
)

func (d Decision) String() string {
	switch d {
	case DecisionExhausted:
		return "exhausted"
	case DecisionHoldNearGoal:
		return "hold-near-goal"
	case DecisionHoldNearStart:
		return "hold-near-start"
	case DecisionReplan:
		return "replan"
	default:
		return "unknown"
	}
}

// exhaustionEps is the slack subtracted from the trajectory duration when
// testing for exhaustion, in seconds.
const exhaustionEps = 1e-2

// DecideReplan is the pure replan decision policy. tCur is the elapsed time
// since trajectory start, clamped internally to [0, duration]; pos is the
// trajectory sample at that time; goal and trajStart are the goal position
// and the trajectory's start position. The two thresholds both exist to
// avoid replan churn at either end of a trajectory's life.
func DecideReplan(tCur, duration float64, pos, goal, trajStart r3.Vec, noReplanThresh, replanThresh float64) Decision {
	if tCur < 0 {
		tCur = 0
	}
	if tCur > duration {
		tCur = duration
	}

	switch {
	case tCur > duration-exhaustionEps:
		return DecisionExhausted
	case r3.Norm(r3.Sub(goal, pos)) < noReplanThresh:
		return DecisionHoldNearGoal
	case r3.Norm(r3.Sub(trajStart, pos)) < replanThresh:
		return DecisionHoldNearStart
	default:
		return DecisionReplan
	}
}
