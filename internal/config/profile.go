package config

import (
	"errors"
	"fmt"
	"os"

	"ambient-light-meter/internal/sensor"
	"gopkg.in/yaml.v3"
)

// Profile is an installation specific calibration file:
//
//	glass_attenuation: 1.2
//	device_factor: 310
//	ranges:
//	  - {gain: 60, integration_code: 0x00, min_count: 0, max_count: 20000}
//	  - {gain: 1, integration_code: 0xC0, min_count: 15740, max_count: 0}
//
// Omitted fields keep their defaults.
type Profile struct {
	Calibration sensor.Calibration
	Ranges      sensor.RangeTable
}

type profileFile struct {
	GlassAttenuation *float64                 `yaml:"glass_attenuation"`
	DeviceFactor     *float64                 `yaml:"device_factor"`
	Ranges           []sensor.RangeDescriptor `yaml:"ranges"`
}

func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read calibration profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Profile{}, fmt.Errorf("parse calibration profile: %w", err)
	}

	p := Profile{Calibration: sensor.DefaultCalibration, Ranges: sensor.DefaultRanges}
	if f.GlassAttenuation != nil {
		if *f.GlassAttenuation <= 0 {
			return Profile{}, errors.New("glass_attenuation must be > 0")
		}
		p.Calibration.GlassAttenuation = *f.GlassAttenuation
	}
	if f.DeviceFactor != nil {
		if *f.DeviceFactor <= 0 {
			return Profile{}, errors.New("device_factor must be > 0")
		}
		p.Calibration.DeviceFactor = *f.DeviceFactor
	}
	if len(f.Ranges) > 0 {
		t, err := sensor.NewRangeTable(f.Ranges)
		if err != nil {
			return Profile{}, fmt.Errorf("calibration ranges: %w", err)
		}
		p.Ranges = t
	}
	return p, nil
}
