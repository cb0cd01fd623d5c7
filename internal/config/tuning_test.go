package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "flight_target_mode": "preset",
  "waypoints": [
    {"x": 0, "y": 0, "z": 1.0},
    {"x": 5.0, "y": 2.0, "z": 1.5}
  ],
  "waypoint_num": 2,
  "thresh_replan": 1.0,
  "thresh_no_replan": 2.5,
  "exec_tick": "20ms",
  "safety_tick": "100ms"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetFlightTargetMode() != TargetPreset {
		t.Errorf("GetFlightTargetMode() = %q, want %q", cfg.GetFlightTargetMode(), TargetPreset)
	}
	if len(cfg.Waypoints) != 2 {
		t.Errorf("len(Waypoints) = %d, want 2", len(cfg.Waypoints))
	}
	if cfg.GetThreshReplan() != 1.0 {
		t.Errorf("GetThreshReplan() = %f, want 1.0", cfg.GetThreshReplan())
	}
	if cfg.GetThreshNoReplan() != 2.5 {
		t.Errorf("GetThreshNoReplan() = %f, want 2.5", cfg.GetThreshNoReplan())
	}
	if cfg.GetExecTick() != 20*time.Millisecond {
		t.Errorf("GetExecTick() = %v, want 20ms", cfg.GetExecTick())
	}
	if cfg.GetSafetyTick() != 100*time.Millisecond {
		t.Errorf("GetSafetyTick() = %v, want 100ms", cfg.GetSafetyTick())
	}
}

func TestLoadTuningConfig_PartialFallsBackToDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	if err := os.WriteFile(configPath, []byte(`{"thresh_replan": 0.8}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetThreshReplan() != 0.8 {
		t.Errorf("GetThreshReplan() = %f, want 0.8", cfg.GetThreshReplan())
	}
	// Everything else should be defaults
	if cfg.GetThreshNoReplan() != 2.0 {
		t.Errorf("GetThreshNoReplan() = %f, want default 2.0", cfg.GetThreshNoReplan())
	}
	if cfg.GetFlightTargetMode() != TargetManual {
		t.Errorf("GetFlightTargetMode() = %q, want default %q", cfg.GetFlightTargetMode(), TargetManual)
	}
	if cfg.GetSafetyMargin() != 0.3 {
		t.Errorf("GetSafetyMargin() = %f, want default 0.3", cfg.GetSafetyMargin())
	}
	if cfg.GetExecTick() != 10*time.Millisecond {
		t.Errorf("GetExecTick() = %v, want default 10ms", cfg.GetExecTick())
	}
	if cfg.GetStateDigestTicks() != 100 {
		t.Errorf("GetStateDigestTicks() = %d, want default 100", cfg.GetStateDigestTicks())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	// Wrong extension
	badExt := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(badExt, []byte("{}"), 0644)
	if _, err := LoadTuningConfig(badExt); err == nil {
		t.Error("Expected error for non-.json extension")
	}

	// Missing file
	if _, err := LoadTuningConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	// Malformed JSON
	badJSON := filepath.Join(tmpDir, "bad.json")
	os.WriteFile(badJSON, []byte("{not json"), 0644)
	if _, err := LoadTuningConfig(badJSON); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr bool
	}{
		{"empty config is valid", func(c *TuningConfig) {}, false},
		{"reference mode rejected", func(c *TuningConfig) {
			mode := TargetReference
			c.FlightTargetMode = &mode
		}, true},
		{"unknown mode rejected", func(c *TuningConfig) {
			mode := "autopilot"
			c.FlightTargetMode = &mode
		}, true},
		{"waypoint_num mismatch rejected", func(c *TuningConfig) {
			n := 3
			c.WaypointNum = &n
			c.Waypoints = []Waypoint{{X: 1}}
		}, true},
		{"preset mode without waypoints rejected", func(c *TuningConfig) {
			mode := TargetPreset
			c.FlightTargetMode = &mode
		}, true},
		{"negative thresh_replan rejected", func(c *TuningConfig) {
			v := -1.0
			c.ThreshReplan = &v
		}, true},
		{"zero safety_margin rejected", func(c *TuningConfig) {
			v := 0.0
			c.SafetyMargin = &v
		}, true},
		{"bad exec_tick rejected", func(c *TuningConfig) {
			v := "fast"
			c.ExecTick = &v
		}, true},
		{"zero state_digest_ticks rejected", func(c *TuningConfig) {
			v := 0
			c.StateDigestTicks = &v
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EmptyTuningConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_TooManyWaypoints(t *testing.T) {
	cfg := EmptyTuningConfig()
	cfg.Waypoints = make([]Waypoint, MaxWaypoints+1)
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for waypoint list over the bound")
	}
}
