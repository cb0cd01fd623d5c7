package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinoreplan/internal/plan"
)

// csvFieldCount is the field count of a CSV odometry frame:
// px,py,pz,vx,vy,vz,qw,qx,qy,qz.
const csvFieldCount = 10

// jsonFrame is the wire shape of a JSON odometry frame.
type jsonFrame struct {
	Pos  []float64 `json:"pos"`
	Vel  []float64 `json:"vel"`
	Quat []float64 `json:"quat"`
}

// ParseOdometryFrame parses one odometry line, in either CSV or JSON form.
// Frames with missing fields, non-finite values, or a degenerate orientation
// quaternion are rejected.
func ParseOdometryFrame(line string) (plan.Odometry, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return plan.Odometry{}, fmt.Errorf("empty frame")
	}

	if strings.HasPrefix(line, "{") {
		return parseJSONFrame(line)
	}
	return parseCSVFrame(line)
}

func parseJSONFrame(line string) (plan.Odometry, error) {
	var f jsonFrame
	if err := json.Unmarshal([]byte(line), &f); err != nil {
		return plan.Odometry{}, fmt.Errorf("parsing JSON frame: %w", err)
	}
	if len(f.Pos) != 3 || len(f.Vel) != 3 || len(f.Quat) != 4 {
		return plan.Odometry{}, fmt.Errorf("JSON frame has pos=%d vel=%d quat=%d fields, want 3/3/4",
			len(f.Pos), len(f.Vel), len(f.Quat))
	}

	vals := make([]float64, 0, csvFieldCount)
	vals = append(vals, f.Pos...)
	vals = append(vals, f.Vel...)
	vals = append(vals, f.Quat...)
	return assembleFrame(vals)
}

func parseCSVFrame(line string) (plan.Odometry, error) {
	parts := strings.Split(line, ",")
	if len(parts) != csvFieldCount {
		return plan.Odometry{}, fmt.Errorf("CSV frame has %d fields, want %d", len(parts), csvFieldCount)
	}

	vals := make([]float64, csvFieldCount)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return plan.Odometry{}, fmt.Errorf("parsing field %d: %w", i, err)
		}
		vals[i] = v
	}
	return assembleFrame(vals)
}

// assembleFrame validates and builds an odometry update from the ten frame
// values in CSV order.
func assembleFrame(vals []float64) (plan.Odometry, error) {
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return plan.Odometry{}, fmt.Errorf("field %d is not finite", i)
		}
	}

	q := quat.Number{Real: vals[6], Imag: vals[7], Jmag: vals[8], Kmag: vals[9]}
	if quat.Abs(q) < 1e-6 {
		return plan.Odometry{}, fmt.Errorf("degenerate orientation quaternion")
	}

	return plan.Odometry{
		Position:    r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]},
		Velocity:    r3.Vec{X: vals[3], Y: vals[4], Z: vals[5]},
		Orientation: q,
	}, nil
}
