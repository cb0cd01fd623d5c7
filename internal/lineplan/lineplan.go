// Package lineplan is the built-in replanning collaborator: a straight-line
// constant-speed planner checked against the distance field. It stands in
// when no external kinodynamic planner is attached, which keeps the
// controller runnable end to end.
package lineplan

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinoreplan/internal/plan"
)

// sampleStep is the spatial step used when sweeping a segment against the
// distance field.
const sampleStep = 0.1

// controlPointCount is the number of control points exposed for publishing.
const controlPointCount = 6

// Planner plans straight constant-speed segments from the boundary start to
// the boundary end, rejecting segments that pass within Margin of an
// obstacle.
type Planner struct {
	Field  plan.DistanceField
	Speed  float64 // cruise speed in m/s
	Margin float64 // minimum clearance along the segment in metres

	mu   sync.Mutex
	last *lineTrajectory
}

// NewPlanner builds a line planner over the given field.
func NewPlanner(field plan.DistanceField, speed, margin float64) *Planner {
	if speed <= 0 {
		speed = 1.0
	}
	return &Planner{Field: field, Speed: speed, Margin: margin}
}

// Replan returns a straight segment from bc.StartPos to bc.EndPos, or an
// error when the segment is blocked.
func (p *Planner) Replan(bc plan.BoundaryConditions) (plan.Trajectory, error) {
	seg := r3.Sub(bc.EndPos, bc.StartPos)
	length := r3.Norm(seg)

	steps := int(length/sampleStep) + 1
	for i := 0; i <= steps; i++ {
		pt := r3.Add(bc.StartPos, r3.Scale(float64(i)/float64(steps), seg))
		if d := p.Field.Clearance(pt, plan.NoTime); d <= p.Margin {
			return nil, fmt.Errorf("segment blocked at %.2f,%.2f,%.2f (clearance %.2f)",
				pt.X, pt.Y, pt.Z, d)
		}
	}

	dur := length / p.Speed
	if dur < sampleStep {
		dur = sampleStep
	}
	traj := &lineTrajectory{
		start: time.Now(),
		p0:    bc.StartPos,
		p1:    bc.EndPos,
		dur:   dur,
	}

	p.mu.Lock()
	p.last = traj
	p.mu.Unlock()
	return traj, nil
}

// PlanYaw returns a constant-yaw curve pointing along the latest segment.
func (p *Planner) PlanYaw(startYaw [3]float64) (plan.YawTrajectory, error) {
	p.mu.Lock()
	traj := p.last
	p.mu.Unlock()
	if traj == nil {
		return nil, fmt.Errorf("no trajectory planned")
	}

	seg := r3.Sub(traj.p1, traj.p0)
	yaw := startYaw[0]
	if r3.Norm(seg) > 1e-6 {
		yaw = math.Atan2(seg.Y, seg.X)
	}
	return &yawCurve{yaw: yaw, interval: traj.dur / (controlPointCount - 1)}, nil
}

// CheckTrajectoryCollision sweeps the latest segment against the field.
func (p *Planner) CheckTrajectoryCollision() (bool, float64) {
	p.mu.Lock()
	traj := p.last
	p.mu.Unlock()
	if traj == nil {
		return true, math.Inf(1)
	}

	minDist := math.Inf(1)
	for t := 0.0; t <= traj.dur; t += sampleStep {
		if d := p.Field.Clearance(traj.PositionAt(t), plan.NoTime); d < minDist {
			minDist = d
		}
	}
	return minDist > p.Margin, minDist
}

// lineTrajectory is a constant-speed straight segment.
type lineTrajectory struct {
	start  time.Time
	p0, p1 r3.Vec
	dur    float64
}

func (l *lineTrajectory) StartTime() time.Time  { return l.start }
func (l *lineTrajectory) Duration() float64     { return l.dur }
func (l *lineTrajectory) StartPosition() r3.Vec { return l.p0 }

func (l *lineTrajectory) PositionAt(t float64) r3.Vec {
	frac := clamp(t/l.dur, 0, 1)
	return r3.Add(l.p0, r3.Scale(frac, r3.Sub(l.p1, l.p0)))
}

func (l *lineTrajectory) VelocityAt(t float64) r3.Vec {
	if t < 0 || t > l.dur {
		return r3.Vec{}
	}
	return r3.Scale(1/l.dur, r3.Sub(l.p1, l.p0))
}

func (l *lineTrajectory) AccelerationAt(t float64) r3.Vec { return r3.Vec{} }

func (l *lineTrajectory) ControlPoints() []r3.Vec {
	pts := make([]r3.Vec, controlPointCount)
	for i := range pts {
		pts[i] = l.PositionAt(l.dur * float64(i) / (controlPointCount - 1))
	}
	return pts
}

// Knots returns a clamped uniform knot vector for the published control
// points at the trajectory's curve order.
func (l *lineTrajectory) Knots() []float64 {
	degree := plan.CurveOrder
	knots := make([]float64, controlPointCount+degree+1)
	interior := controlPointCount - degree
	for i := range knots {
		switch {
		case i <= degree:
			knots[i] = 0
		case i >= controlPointCount:
			knots[i] = l.dur
		default:
			knots[i] = l.dur * float64(i-degree) / float64(interior)
		}
	}
	return knots
}

// yawCurve is a constant heading.
type yawCurve struct {
	yaw      float64
	interval float64
}

func (y *yawCurve) YawAt(t float64) (float64, float64, float64) { return y.yaw, 0, 0 }

func (y *yawCurve) ControlPoints() []float64 {
	pts := make([]float64, controlPointCount)
	for i := range pts {
		pts[i] = y.yaw
	}
	return pts
}

func (y *yawCurve) SampleInterval() float64 { return y.interval }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
