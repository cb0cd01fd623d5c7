package lineplan

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere is one spherical obstacle of a static world model.
type Sphere struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"radius"`
}

// SphereField is a static distance field over a set of spherical obstacles.
// An empty field reports unbounded clearance everywhere.
type SphereField struct {
	spheres []Sphere
}

// NewSphereField builds a field over the given obstacles.
func NewSphereField(spheres []Sphere) *SphereField {
	return &SphereField{spheres: spheres}
}

// LoadSphereField reads a JSON obstacle list from path. An empty path yields
// an empty field.
func LoadSphereField(path string) (*SphereField, error) {
	if path == "" {
		return &SphereField{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading obstacle file: %w", err)
	}

	var spheres []Sphere
	if err := json.Unmarshal(data, &spheres); err != nil {
		return nil, fmt.Errorf("parsing obstacle file %s: %w", path, err)
	}
	return &SphereField{spheres: spheres}, nil
}

// Clearance returns the distance from pt to the nearest obstacle surface.
// The field is static, so atTime is ignored.
func (f *SphereField) Clearance(pt r3.Vec, atTime float64) float64 {
	minDist := math.Inf(1)
	for _, s := range f.spheres {
		d := r3.Norm(r3.Sub(pt, r3.Vec{X: s.X, Y: s.Y, Z: s.Z})) - s.Radius
		if d < minDist {
			minDist = d
		}
	}
	return minDist
}
