package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambient-light-meter/internal/api"
	"ambient-light-meter/internal/discovery"
	"ambient-light-meter/internal/readlog"
	"ambient-light-meter/internal/sensor"
	"ambient-light-meter/internal/service"
	"ambient-light-meter/internal/storage"
	"ambient-light-meter/internal/ws"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev, closeDev, err := openDevice(cfg)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}
	defer closeDev()

	ctrl := sensor.NewController(dev, cfg.Ranges, cfg.Calibration)
	if err := ctrl.Initialize(); err != nil {
		log.Warn().Err(err).Msg("sensor unavailable, measurements will be refused")
	}

	store, err := storage.NewStore(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	readings, err := readlog.Open(cfg.ReadingsDBPath)
	if err != nil {
		return fmt.Errorf("open readings log: %w", err)
	}
	defer readings.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	meter := service.NewMeterService(cfg, ctrl, store, readings, hub)
	go meter.RunSampler(ctx, cfg.SampleInterval())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(cfg, hub, meter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.MDNSEnabled {
		port, err := cfg.ListenPort()
		if err != nil {
			return err
		}
		adv, err := discovery.Advertise(cfg.MDNSInstance, cfg.MDNSService, port, discovery.TXTRecords(version, api.ReadingPath))
		if err != nil {
			log.Warn().Err(err).Msg("mdns advertise failed")
		} else {
			log.Info().Str("service", cfg.MDNSService).Int("port", port).Msg("mdns advertising")
			defer adv.Shutdown()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	return nil
}
