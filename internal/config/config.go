// YAML config loader with CUE validation integration
package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// EmergencyConfig tunes the alert state machine.
type EmergencyConfig struct {
	CountdownSeconds int               `yaml:"countdown_seconds"`
	DialNumbers      map[string]string `yaml:"dial_numbers"`
}

// RouteConfig tunes the route tracker.
type RouteConfig struct {
	MinPointDistanceM    float64 `yaml:"min_point_distance_m"`
	MaxPoints            int     `yaml:"max_points"`
	ShareIntervalSeconds int     `yaml:"share_interval_seconds"`
	AutoStopMinutes      int     `yaml:"auto_stop_minutes"`
}

// LocationConfig tunes the location feed.
type LocationConfig struct {
	SignificantMoveM      float64 `yaml:"significant_move_m"`
	AccuracyHighM         float64 `yaml:"accuracy_high_m"`
	AccuracyMediumM       float64 `yaml:"accuracy_medium_m"`
	CacheTTLMinutes       int     `yaml:"cache_ttl_minutes"`
	CurrentTimeoutSeconds int     `yaml:"current_timeout_seconds"`
}

// SimConfig drives the simulated walk provider used by the run command.
type SimConfig struct {
	Scenario       string  `yaml:"scenario"`
	HomeLat        float64 `yaml:"home_lat"`
	HomeLon        float64 `yaml:"home_lon"`
	UpdateSeconds  int     `yaml:"update_seconds"`
	JitterM        float64 `yaml:"jitter_m"`
	PermissionDeny bool    `yaml:"permission_deny"`
}

// Config is the root configuration for the safewalk daemon.
type Config struct {
	StorePath string          `yaml:"store_path"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Route     RouteConfig     `yaml:"route"`
	Location  LocationConfig  `yaml:"location"`
	Sim       SimConfig       `yaml:"sim"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		StorePath: "safewalk.db",
		Emergency: EmergencyConfig{
			CountdownSeconds: 10,
			DialNumbers: map[string]string{
				"sos":     "911",
				"medical": "911",
				"fire":    "911",
				"police":  "911",
			},
		},
		Route: RouteConfig{
			MinPointDistanceM:    10,
			MaxPoints:            1000,
			ShareIntervalSeconds: 30,
			AutoStopMinutes:      60,
		},
		Location: LocationConfig{
			SignificantMoveM:      50,
			AccuracyHighM:         20,
			AccuracyMediumM:       50,
			CacheTTLMinutes:       5,
			CurrentTimeoutSeconds: 10,
		},
		Sim: SimConfig{
			Scenario:      "evening-walk",
			HomeLat:       48.2082,
			HomeLon:       16.3738,
			UpdateSeconds: 1,
			JitterM:       4,
		},
	}
}

// Load loads YAML config and validates it against a CUE schema.
// Fields left unset in the file keep their built-in defaults.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read %s", configPath)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrap(err, "config: parse yaml")
	}
	return cfg, nil
}
