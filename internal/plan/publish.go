package plan

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// CurveOrder is the fixed B-spline order of published trajectories.
const CurveOrder = 3

// TrajectoryMessage is the outbound payload handed to the downstream
// trajectory executor. The JSON shape is the wire contract: re-parsing a
// published message must reproduce the source curve exactly.
type TrajectoryMessage struct {
	Order        int       `json:"order"`
	StartTime    time.Time `json:"start_time"`
	TrajectoryID int64     `json:"trajectory_id"`

	PositionControlPoints [][3]float64 `json:"position_control_points"`
	Knots                 []float64    `json:"knots"`

	YawControlPoints  []float64 `json:"yaw_control_points"`
	YawSampleInterval float64   `json:"yaw_sample_interval"`
}

// NewTrajectoryMessage packages a freshly planned position and yaw curve
// into the outbound message. id must be assigned monotonically by the
// caller.
func NewTrajectoryMessage(id int64, traj Trajectory, yaw YawTrajectory) *TrajectoryMessage {
	msg := &TrajectoryMessage{
		Order:        CurveOrder,
		StartTime:    traj.StartTime(),
		TrajectoryID: id,
	}

	cps := traj.ControlPoints()
	msg.PositionControlPoints = make([][3]float64, len(cps))
	for i, cp := range cps {
		msg.PositionControlPoints[i] = [3]float64{cp.X, cp.Y, cp.Z}
	}

	msg.Knots = append([]float64(nil), traj.Knots()...)

	if yaw != nil {
		msg.YawControlPoints = append([]float64(nil), yaw.ControlPoints()...)
		msg.YawSampleInterval = yaw.SampleInterval()
	}

	return msg
}

// PositionPoints converts the packed control points back to vectors, the
// inverse of the packing done by NewTrajectoryMessage.
func (m *TrajectoryMessage) PositionPoints() []r3.Vec {
	pts := make([]r3.Vec, len(m.PositionControlPoints))
	for i, cp := range m.PositionControlPoints {
		pts[i] = r3.Vec{X: cp[0], Y: cp[1], Z: cp[2]}
	}
	return pts
}
