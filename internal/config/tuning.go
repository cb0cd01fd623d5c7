package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical planner defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/planner.defaults.json"

// MaxWaypoints bounds the preset waypoint cycle. Configurations listing more
// waypoints than this are rejected at load time.
const MaxWaypoints = 50

// Target modes recognised in the flight_target_mode field.
const (
	TargetManual    = "manual"    // goal taken from incoming goal messages
	TargetPreset    = "preset"    // goal cycles through the configured waypoint list
	TargetReference = "reference" // reserved, not implemented
)

// Waypoint is one entry of the preset waypoint cycle.
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TuningConfig represents the root configuration for planner parameters.
// The schema matches the /api/planner/params endpoint so the same JSON can be
// used for both startup configuration and runtime inspection. All fields are
// pointers so partial configs are safe: omitted fields fall back to the
// defaults baked into the Get* accessors.
type TuningConfig struct {
	// Goal selection
	FlightTargetMode *string    `json:"flight_target_mode,omitempty"` // "manual" | "preset" | "reference"
	Waypoints        []Waypoint `json:"waypoints,omitempty"`
	WaypointNum      *int       `json:"waypoint_num,omitempty"` // validated against len(Waypoints)

	// Replan decision thresholds (metres)
	ThreshReplan   *float64 `json:"thresh_replan,omitempty"`    // minimum progress before replanning
	ThreshNoReplan *float64 `json:"thresh_no_replan,omitempty"` // goal proximity below which no replan

	// Safety
	SafetyMargin       *float64 `json:"safety_margin,omitempty"` // goal clearance margin (metres)
	DynamicEnvironment *bool    `json:"dynamic_environment,omitempty"`

	// Tick periods (duration strings like "10ms")
	ExecTick   *string `json:"exec_tick,omitempty"`
	SafetyTick *string `json:"safety_tick,omitempty"`

	// Diagnostics
	StateDigestTicks *int `json:"state_digest_ticks,omitempty"` // exec ticks between state digests
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical planner defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FlightTargetMode != nil {
		switch *c.FlightTargetMode {
		case TargetManual, TargetPreset:
		case TargetReference:
			return fmt.Errorf("flight_target_mode %q is reserved and not implemented", TargetReference)
		default:
			return fmt.Errorf("unknown flight_target_mode %q", *c.FlightTargetMode)
		}
	}

	if len(c.Waypoints) > MaxWaypoints {
		return fmt.Errorf("too many waypoints: %d (max %d)", len(c.Waypoints), MaxWaypoints)
	}

	// The waypoint count is validated against the actual list length instead
	// of being trusted: a stale count silently truncating or overrunning the
	// cycle is exactly the failure mode this guards against.
	if c.WaypointNum != nil && *c.WaypointNum != len(c.Waypoints) {
		return fmt.Errorf("waypoint_num is %d but %d waypoints are configured", *c.WaypointNum, len(c.Waypoints))
	}

	if c.GetFlightTargetMode() == TargetPreset && len(c.Waypoints) == 0 {
		return fmt.Errorf("flight_target_mode %q requires at least one waypoint", TargetPreset)
	}

	if c.ThreshReplan != nil && *c.ThreshReplan <= 0 {
		return fmt.Errorf("thresh_replan must be positive, got %f", *c.ThreshReplan)
	}
	if c.ThreshNoReplan != nil && *c.ThreshNoReplan <= 0 {
		return fmt.Errorf("thresh_no_replan must be positive, got %f", *c.ThreshNoReplan)
	}
	if c.SafetyMargin != nil && *c.SafetyMargin <= 0 {
		return fmt.Errorf("safety_margin must be positive, got %f", *c.SafetyMargin)
	}

	if c.ExecTick != nil && *c.ExecTick != "" {
		if _, err := time.ParseDuration(*c.ExecTick); err != nil {
			return fmt.Errorf("invalid exec_tick '%s': %w", *c.ExecTick, err)
		}
	}
	if c.SafetyTick != nil && *c.SafetyTick != "" {
		if _, err := time.ParseDuration(*c.SafetyTick); err != nil {
			return fmt.Errorf("invalid safety_tick '%s': %w", *c.SafetyTick, err)
		}
	}

	if c.StateDigestTicks != nil && *c.StateDigestTicks <= 0 {
		return fmt.Errorf("state_digest_ticks must be positive, got %d", *c.StateDigestTicks)
	}

	return nil
}

// GetFlightTargetMode returns the flight_target_mode value or the default.
func (c *TuningConfig) GetFlightTargetMode() string {
	if c.FlightTargetMode == nil {
		return TargetManual
	}
	return *c.FlightTargetMode
}

// GetThreshReplan returns the thresh_replan value or the default.
func (c *TuningConfig) GetThreshReplan() float64 {
	if c.ThreshReplan == nil {
		return 1.5
	}
	return *c.ThreshReplan
}

// GetThreshNoReplan returns the thresh_no_replan value or the default.
func (c *TuningConfig) GetThreshNoReplan() float64 {
	if c.ThreshNoReplan == nil {
		return 2.0
	}
	return *c.ThreshNoReplan
}

// GetSafetyMargin returns the safety_margin value or the default.
func (c *TuningConfig) GetSafetyMargin() float64 {
	if c.SafetyMargin == nil {
		return 0.3
	}
	return *c.SafetyMargin
}

// GetDynamicEnvironment returns the dynamic_environment value or the default.
func (c *TuningConfig) GetDynamicEnvironment() bool {
	if c.DynamicEnvironment == nil {
		return false
	}
	return *c.DynamicEnvironment
}

// GetExecTick parses and returns the ExecTick as a time.Duration.
func (c *TuningConfig) GetExecTick() time.Duration {
	if c.ExecTick == nil || *c.ExecTick == "" {
		return 10 * time.Millisecond // 100 Hz
	}
	d, err := time.ParseDuration(*c.ExecTick)
	if err != nil {
		return 10 * time.Millisecond
	}
	return d
}

// GetSafetyTick parses and returns the SafetyTick as a time.Duration.
func (c *TuningConfig) GetSafetyTick() time.Duration {
	if c.SafetyTick == nil || *c.SafetyTick == "" {
		return 50 * time.Millisecond // 20 Hz
	}
	d, err := time.ParseDuration(*c.SafetyTick)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}

// GetStateDigestTicks returns the state_digest_ticks value or the default.
func (c *TuningConfig) GetStateDigestTicks() int {
	if c.StateDigestTicks == nil {
		return 100
	}
	return *c.StateDigestTicks
}
