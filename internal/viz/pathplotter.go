// Package viz renders best-effort flight visualizations: the geometric
// path of each planned trajectory and the fitted curve, as top-down PNG
// plots. Drawing failures are logged and swallowed — visualization must
// never block or fail a trajectory publish.
package viz

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/kinoreplan/internal/monitoring"
	"github.com/banshee-data/kinoreplan/internal/plan"
)

// curveSampleStep is the time spacing when sampling a fitted curve for
// drawing, in seconds.
const curveSampleStep = 0.05

// PathPlotter implements plan.Visualizer by writing PNG files into a
// per-flight output directory. A disabled plotter (empty output dir)
// discards every call.
type PathPlotter struct {
	mu        sync.Mutex
	outputDir string
	enabled   bool

	goal     *r3.Vec
	pathIdx  int
	curveIdx int
}

// NewPathPlotter creates a plotter writing into outputDir. An empty
// outputDir disables plotting entirely.
func NewPathPlotter(outputDir string) *PathPlotter {
	pp := &PathPlotter{outputDir: outputDir}
	if outputDir == "" {
		return pp
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		monitoring.Logf("viz: create output dir: %v", err)
		return pp
	}
	pp.enabled = true
	return pp
}

// IsEnabled reports whether the plotter writes output.
func (pp *PathPlotter) IsEnabled() bool {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.enabled
}

// DrawGoal remembers the latest goal so subsequent path plots can mark it.
func (pp *PathPlotter) DrawGoal(goal r3.Vec) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	g := goal
	pp.goal = &g
}

// DrawGeometricPath plots the sampled path top-down and writes
// path_NNNN.png.
func (pp *PathPlotter) DrawGeometricPath(path []r3.Vec) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if !pp.enabled || len(path) == 0 {
		return
	}

	pp.pathIdx++
	name := filepath.Join(pp.outputDir, fmt.Sprintf("path_%04d.png", pp.pathIdx))
	if err := pp.writeXYPlot(name, "Geometric Path", toXYs(path)); err != nil {
		monitoring.Logf("viz: draw geometric path: %v", err)
	}
}

// DrawCurve samples the fitted curve over its duration, plots it top-down
// and writes curve_NNNN.png.
func (pp *PathPlotter) DrawCurve(traj plan.Trajectory) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if !pp.enabled || traj == nil {
		return
	}

	d := traj.Duration()
	pts := make([]r3.Vec, 0, int(d/curveSampleStep)+2)
	for t := 0.0; t < d; t += curveSampleStep {
		pts = append(pts, traj.PositionAt(t))
	}
	pts = append(pts, traj.PositionAt(d))

	pp.curveIdx++
	name := filepath.Join(pp.outputDir, fmt.Sprintf("curve_%04d.png", pp.curveIdx))
	if err := pp.writeXYPlot(name, "Fitted Curve", toXYs(pts)); err != nil {
		monitoring.Logf("viz: draw curve: %v", err)
	}
}

// writeXYPlot renders one top-down line plot. Must be called with the
// plotter mutex held.
func (pp *PathPlotter) writeXYPlot(name, title string, pts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build line: %w", err)
	}
	p.Add(line)

	if pp.goal != nil {
		scatter, err := plotter.NewScatter(plotter.XYs{{X: pp.goal.X, Y: pp.goal.Y}})
		if err == nil {
			p.Add(scatter)
			p.Legend.Add("goal", scatter)
		}
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, name); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func toXYs(path []r3.Vec) plotter.XYs {
	pts := make(plotter.XYs, len(path))
	for i, p := range path {
		pts[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return pts
}
