package main

import (
	"ambient-light-meter/internal/config"
	"ambient-light-meter/internal/sensor"
	"ambient-light-meter/internal/tcs34725"
	"github.com/rs/zerolog/log"
)

// openDevice returns the configured sensor and a function that releases it.
func openDevice(cfg config.Config) (sensor.Device, func(), error) {
	switch cfg.SensorDriver {
	case config.DriverTCS34725:
		dev, bus, err := tcs34725.Open(cfg.I2CBus, cfg.I2CAddr)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("device", dev.String()).Msg("using TCS34725")
		return dev, func() {
			if err := dev.Halt(); err != nil {
				log.Warn().Err(err).Msg("power down sensor")
			}
			_ = bus.Close()
		}, nil
	default:
		log.Info().Float64("lux", cfg.SimSceneLux).Msg("using simulated sensor")
		return tcs34725.NewSimulator(tcs34725.WhiteScene(cfg.SimSceneLux)), func() {}, nil
	}
}
