package scenario

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Walk defines a scripted walking route for the simulated location provider.
type Walk struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Loop        bool   `yaml:"loop,omitempty"`
	Legs        []Leg  `yaml:"legs"`
}

// Leg is one segment endpoint of a walk. The walker moves toward it at
// PaceKmh and optionally pauses there before continuing.
type Leg struct {
	Lat          float64 `yaml:"lat"`
	Lon          float64 `yaml:"lon"`
	PaceKmh      float64 `yaml:"pace_kmh,omitempty"`
	PauseSeconds int     `yaml:"pause_seconds,omitempty"`
}

// Load reads a YAML walk definition from disk.
func Load(path string) (*Walk, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "scenario: read walk")
	}
	var w Walk
	if err := yaml.Unmarshal(b, &w); err != nil {
		return nil, eris.Wrap(err, "scenario: parse walk")
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks that every leg carries plausible coordinates.
func (w *Walk) Validate() error {
	if len(w.Legs) == 0 {
		return eris.New("scenario: walk has no legs")
	}
	for i, l := range w.Legs {
		if l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
			return eris.Errorf("scenario: leg %d has out-of-range coordinates (%f, %f)", i, l.Lat, l.Lon)
		}
		if l.PaceKmh < 0 {
			return eris.Errorf("scenario: leg %d has negative pace", i)
		}
	}
	return nil
}

// Pace returns the pace toward leg i in km/h, defaulting to a brisk walk.
func (w *Walk) Pace(i int) float64 {
	if i >= 0 && i < len(w.Legs) && w.Legs[i].PaceKmh > 0 {
		return w.Legs[i].PaceKmh
	}
	return 5
}
