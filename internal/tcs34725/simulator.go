package tcs34725

import (
	"errors"
	"math"
	"sync"

	"ambient-light-meter/internal/sensor"
)

// Scene describes the light falling on a simulated sensor.
type Scene struct {
	Lux float64
	// Relative channel responses to the scene, normalized to green.
	Red, Green, Blue, Clear float64
}

// WhiteScene approximates daylight on the bare sensor.
func WhiteScene(lux float64) Scene {
	return Scene{Lux: lux, Red: 0.95, Green: 1.0, Blue: 0.85, Clear: 2.9}
}

// Simulator stands in for the hardware. Counts grow with gain and
// integration time and clip at the ADC full scale for the active ATIME.
type Simulator struct {
	mu         sync.Mutex
	scene      Scene
	gain       sensor.Gain
	atime      uint8
	configured bool
	Missing    bool
}

func NewSimulator(scene Scene) *Simulator {
	return &Simulator{scene: scene}
}

func (s *Simulator) Probe() error {
	if s.Missing {
		return errors.New("no device at address")
	}
	return nil
}

func (s *Simulator) Configure(gain sensor.Gain, atime uint8) error {
	if _, err := gainBits(gain); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = gain
	s.atime = atime
	s.configured = true
	return nil
}

func (s *Simulator) ReadRaw() (sensor.RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured {
		return sensor.RawSample{}, errors.New("simulator not configured")
	}

	cycles := 256 - int(s.atime)
	full := math.Min(65535, float64(1024*cycles))
	// Inverse of the counts-per-lux relation for a neutral scene.
	base := s.scene.Lux * sensor.IntegrationMs(s.atime) * float64(s.gain) / sensor.DefaultCalibration.DeviceFactor
	count := func(weight float64) uint16 {
		return uint16(math.Min(full, math.Max(0, math.Round(base*weight))))
	}
	return sensor.RawSample{
		Red:   count(s.scene.Red),
		Green: count(s.scene.Green),
		Blue:  count(s.scene.Blue),
		Clear: count(s.scene.Clear),
	}, nil
}
