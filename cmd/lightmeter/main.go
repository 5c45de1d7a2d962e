package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ambient-light-meter/internal/config"
	"ambient-light-meter/internal/model"
	"ambient-light-meter/internal/sensor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagCount    int
	flagInterval time.Duration
	version      = "dev" // Injected at build time via ldflags
)

var rootCmd = &cobra.Command{
	Use:           "lightmeter",
	Short:         "Autoranging RGBC light meter with an HTTP, WebSocket and mDNS front end",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service and background sampler",
	RunE:  runServe,
}

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Take readings and print them as JSON lines",
	RunE:  runMeasure,
}

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Print the effective autorange table",
	RunE:  runRanges,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	measureCmd.Flags().IntVarP(&flagCount, "count", "n", 1, "number of readings to take")
	measureCmd.Flags().DurationVar(&flagInterval, "interval", time.Second, "pause between readings")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(rangesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("lightmeter")
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.LogLevel, cfg.LogJSON)
	return cfg, nil
}

func runMeasure(cmd *cobra.Command, args []string) error {
	if flagCount <= 0 {
		return fmt.Errorf("count must be > 0")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dev, closeDev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer closeDev()

	ctrl := sensor.NewController(dev, cfg.Ranges, cfg.Calibration)
	if err := ctrl.Initialize(); err != nil {
		return err
	}

	ctx := cmd.Context()
	enc := json.NewEncoder(cmd.OutOrStdout())
	for i := 0; i < flagCount; i++ {
		if i > 0 {
			select {
			case <-time.After(flagInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		sr, err := ctrl.Measure(ctx)
		if err != nil {
			return err
		}
		if err := enc.Encode(model.NewReading(uuid.NewString(), "cli", time.Now(), sr)); err != nil {
			return err
		}
	}
	return nil
}

func runRanges(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"calibration": map[string]float64{
			"glass_attenuation": cfg.Calibration.GlassAttenuation,
			"device_factor":     cfg.Calibration.DeviceFactor,
		},
		"ranges": model.NewRangeViews(cfg.Ranges, -1),
	})
}

func setupLogging(level string, useJSON bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
