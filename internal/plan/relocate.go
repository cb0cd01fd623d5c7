package plan

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Relocation grid geometry. The search is a fixed, exhaustive candidate set
// rather than a gradient descent: bounded worst-case cost matters more here
// than candidate quality, since the search runs inside the safety tick.
const (
	relocateRadiusStep     = 0.5  // metres per radial ring
	relocateRadiusRings    = 5    // rings searched, radius up to 2.5 m
	relocateAzimuthStepDeg = 30.0 // degrees between azimuth samples
	relocateVerticalStep   = 0.3  // metres between vertical samples
	relocateVerticalBand   = 0.3  // symmetric vertical extent searched
)

// RelocateGoal sweeps the fixed grid of offsets around goal and returns the
// candidate with maximum clearance, together with that clearance. atTime is
// forwarded to the distance field (NoTime for static environments).
//
// The sweep is fully deterministic: identical goal and clearance oracle
// always select the same candidate. Azimuth runs a full circle plus overlap
// (-90° to 270°) and the vertical band is scanned top-down, matching the
// candidate ordering the rest of the stack was tuned against.
func RelocateGoal(goal r3.Vec, field DistanceField, atTime float64) (r3.Vec, float64) {
	best := goal
	maxDist := -1.0

	dr := relocateRadiusStep
	for r := dr; r <= float64(relocateRadiusRings)*dr+1e-3; r += dr {
		for thetaDeg := -90.0; thetaDeg <= 270.0; thetaDeg += relocateAzimuthStepDeg {
			theta := thetaDeg * math.Pi / 180.0
			for dz := relocateVerticalBand; dz >= -relocateVerticalBand-1e-9; dz -= relocateVerticalStep {
				candidate := r3.Vec{
					X: goal.X + r*math.Cos(theta),
					Y: goal.Y + r*math.Sin(theta),
					Z: goal.Z + dz,
				}
				if dist := field.Clearance(candidate, atTime); dist > maxDist {
					best = candidate
					maxDist = dist
				}
			}
		}
	}

	return best, maxDist
}
