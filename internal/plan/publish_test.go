package plan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewTrajectoryMessage(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	traj := &fakeTrajectory{
		start:    start,
		duration: 8,
		startPos: r3.Vec{},
		endPos:   r3.Vec{X: 4},
		cps:      []r3.Vec{{X: 0, Y: 0, Z: 1}, {X: 2, Y: 1, Z: 1}, {X: 4, Y: 0, Z: 1}},
		knots:    []float64{0, 0, 0, 0.5, 1, 1, 1},
	}
	yaw := &fakeYawTrajectory{cps: []float64{0.1, 0.2, 0.3}, dt: 0.25}

	msg := NewTrajectoryMessage(7, traj, yaw)

	assert.Equal(t, CurveOrder, msg.Order)
	assert.Equal(t, start, msg.StartTime)
	assert.Equal(t, int64(7), msg.TrajectoryID)
	assert.Equal(t, [][3]float64{{0, 0, 1}, {2, 1, 1}, {4, 0, 1}}, msg.PositionControlPoints)
	assert.Equal(t, []float64{0, 0, 0, 0.5, 1, 1, 1}, msg.Knots)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, msg.YawControlPoints)
	assert.Equal(t, 0.25, msg.YawSampleInterval)
}

func TestNewTrajectoryMessage_NilYaw(t *testing.T) {
	t.Parallel()

	traj := &fakeTrajectory{
		start:    time.Now(),
		duration: 1,
		cps:      []r3.Vec{{}, {X: 1}},
		knots:    []float64{0, 1},
	}
	msg := NewTrajectoryMessage(1, traj, nil)
	assert.Empty(t, msg.YawControlPoints)
	assert.Zero(t, msg.YawSampleInterval)
}

// A published message re-parsed from its wire form must reproduce the
// source curve exactly: control points, knots, order and start time.
func TestTrajectoryMessage_RoundTrip(t *testing.T) {
	t.Parallel()

	traj := &fakeTrajectory{
		start:    time.Date(2026, 8, 1, 12, 0, 0, 123456789, time.UTC),
		duration: 12.5,
		cps: []r3.Vec{
			{X: 0.125, Y: -3.25, Z: 1.0},
			{X: 1.0625, Y: -2.5, Z: 1.5},
			{X: 2.75, Y: 0.5, Z: 1.25},
		},
		knots: []float64{0, 0, 0, 0.25, 0.75, 1, 1, 1},
	}
	yaw := &fakeYawTrajectory{cps: []float64{-0.5, 0, 0.5}, dt: 0.2}

	msg := NewTrajectoryMessage(42, traj, yaw)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed TrajectoryMessage
	require.NoError(t, json.Unmarshal(data, &parsed))

	if diff := cmp.Diff(msg, &parsed); diff != "" {
		t.Errorf("round-trip mismatch (-sent +parsed):\n%s", diff)
	}
	assert.Equal(t, traj.ControlPoints(), parsed.PositionPoints())
	assert.True(t, traj.StartTime().Equal(parsed.StartTime))
}
