package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"ambient-light-meter/internal/sensor"
	"github.com/joho/godotenv"
)

const (
	DriverTCS34725 = "tcs34725"
	DriverSim      = "sim"
)

type Config struct {
	ListenAddr           string
	DataPath             string
	ReadingsDBPath       string
	SensorDriver         string
	I2CBus               string
	I2CAddr              uint16
	SimSceneLux          float64
	SampleIntervalSec    int
	MeasureTimeoutSec    int
	HistoryLimit         int
	ReadingRetentionDays int
	MDNSEnabled          bool
	MDNSInstance         string
	MDNSService          string
	CalibrationPath      string
	LogLevel             string
	LogJSON              bool

	Calibration sensor.Calibration
	Ranges      sensor.RangeTable
}

func Load() (Config, error) {
	_ = godotenv.Load()

	addr, err := getEnvUint16("I2C_ADDR", 0x29)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		DataPath:             getEnv("DATA_PATH", "./data/state.json"),
		ReadingsDBPath:       getEnv("READINGS_DB_PATH", "./data/readings.sqlite"),
		SensorDriver:         strings.ToLower(getEnv("SENSOR_DRIVER", DriverSim)),
		I2CBus:               getEnv("I2C_BUS", ""),
		I2CAddr:              addr,
		SimSceneLux:          getEnvFloat("SIM_SCENE_LUX", 400),
		SampleIntervalSec:    getEnvInt("SAMPLE_INTERVAL_SEC", 60),
		MeasureTimeoutSec:    getEnvInt("MEASURE_TIMEOUT_SEC", 5),
		HistoryLimit:         getEnvInt("HISTORY_LIMIT", 100),
		ReadingRetentionDays: getEnvInt("READING_RETENTION_DAYS", 30),
		MDNSEnabled:          getEnvBool("MDNS_ENABLED", true),
		MDNSInstance:         getEnv("MDNS_INSTANCE", "light-meter"),
		MDNSService:          getEnv("MDNS_SERVICE", "_lightmeter._tcp"),
		CalibrationPath:      getEnv("CALIBRATION_PATH", ""),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogJSON:              getEnvBool("LOG_JSON", false),
		Calibration:          sensor.DefaultCalibration,
		Ranges:               sensor.DefaultRanges,
	}

	if cfg.SensorDriver != DriverTCS34725 && cfg.SensorDriver != DriverSim {
		return Config{}, fmt.Errorf("unknown sensor driver %q", cfg.SensorDriver)
	}
	if cfg.SampleIntervalSec < 0 {
		return Config{}, errors.New("sample interval sec must be >= 0")
	}
	if cfg.MeasureTimeoutSec <= 0 {
		return Config{}, errors.New("measure timeout sec must be > 0")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, errors.New("history limit must be > 0")
	}
	if cfg.ReadingRetentionDays < 0 {
		return Config{}, errors.New("reading retention days must be >= 0")
	}
	if cfg.SimSceneLux < 0 {
		return Config{}, errors.New("sim scene lux must be >= 0")
	}
	if _, err := cfg.ListenPort(); err != nil {
		return Config{}, err
	}

	if cfg.CalibrationPath != "" {
		p, err := LoadProfile(cfg.CalibrationPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Calibration = p.Calibration
		cfg.Ranges = p.Ranges
	}

	return cfg, nil
}

func (c Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSec) * time.Second
}

func (c Config) MeasureTimeout() time.Duration {
	return time.Duration(c.MeasureTimeoutSec) * time.Second
}

func (c Config) Retention() time.Duration {
	return time.Duration(c.ReadingRetentionDays) * 24 * time.Hour
}

// ListenPort extracts the TCP port from ListenAddr.
func (c Config) ListenPort() (int, error) {
	_, port, err := net.SplitHostPort(c.ListenAddr)
	if err != nil {
		return 0, fmt.Errorf("listen addr %q: %w", c.ListenAddr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("listen addr %q: invalid port", c.ListenAddr)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvUint16 accepts decimal or 0x prefixed hex. Unlike the other getters a
// malformed value is an error.
func getEnvUint16(key string, fallback uint16) (uint16, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return uint16(n), nil
}
