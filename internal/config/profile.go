package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Profile holds the camera settings that may change while acquisition is
// running. Exposure and gain are legal to push in any connected state, so
// the profile watcher can apply a reload between frames without stopping
// the stream.
type Profile struct {
	ExposureMicros float64 `toml:"exposure_us"`
	GainDB         float64 `toml:"gain_db"`
}

// LoadProfile reads a camera profile TOML file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if p.ExposureMicros < 0 {
		return Profile{}, fmt.Errorf("profile exposure_us must not be negative, got %g", p.ExposureMicros)
	}
	return p, nil
}
