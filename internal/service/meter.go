package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ambient-light-meter/internal/config"
	"ambient-light-meter/internal/model"
	"ambient-light-meter/internal/readlog"
	"ambient-light-meter/internal/sensor"
	"ambient-light-meter/internal/storage"
	"ambient-light-meter/internal/ws"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SourceHTTP    = "http"
	SourceSampler = "sampler"
)

var ErrSensorUnavailable = errors.New("sensor unavailable")

// MeterService is the single caller of the sensor controller. It stamps each
// reading, persists it and publishes it. Measurements are serialized so the
// stored latest reading is always the most recent one.
type MeterService struct {
	mu       sync.Mutex
	cfg      config.Config
	ctrl     *sensor.Controller
	store    *storage.Store
	readings *readlog.Log
	hub      *ws.Hub
	now      func() time.Time
}

func NewMeterService(cfg config.Config, ctrl *sensor.Controller, store *storage.Store, readings *readlog.Log, hub *ws.Hub) *MeterService {
	return &MeterService{
		cfg:      cfg,
		ctrl:     ctrl,
		store:    store,
		readings: readings,
		hub:      hub,
		now:      time.Now,
	}
}

func (s *MeterService) Available() bool {
	return s.ctrl.Available()
}

func (s *MeterService) Ranges() []model.RangeView {
	return model.NewRangeViews(s.ctrl.Ranges(), s.ctrl.Index())
}

// Measure takes one reading, or returns ErrSensorUnavailable when the sensor
// failed to initialize.
func (s *MeterService) Measure(ctx context.Context, source string) (model.Reading, error) {
	if !s.ctrl.Available() {
		return model.Reading{}, ErrSensorUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.MeasureTimeout())
	defer cancel()

	prev := s.ctrl.Index()
	sr, err := s.ctrl.Measure(ctx)
	if err != nil {
		return model.Reading{}, fmt.Errorf("measure: %w", err)
	}
	r := model.NewReading(uuid.NewString(), source, s.now(), sr)

	if err := s.store.RecordReading(r); err != nil {
		return model.Reading{}, fmt.Errorf("save reading: %w", err)
	}
	if err := s.readings.Append(ctx, r); err != nil {
		// The state file already holds the reading.
		log.Error().Err(err).Str("id", r.ID).Msg("append reading log")
	}

	now := s.now().UnixMilli()
	if sr.Adjusted {
		log.Debug().
			Int("from", prev).
			Int("to", sr.RangeIndex).
			Uint16("clear", sr.Raw.Clear).
			Int("gain", sr.GainMultiplier).
			Float64("integration_ms", sr.IntegrationMs).
			Msg("range changed")
		s.hub.BroadcastEvent(model.Event{
			Type:      "range.changed",
			Payload:   map[string]int{"from": prev, "to": sr.RangeIndex},
			CreatedAt: now,
		})
	}
	if sr.Saturated {
		log.Warn().Uint16("clear", sr.Raw.Clear).Int("threshold", sr.SaturationCount75).Msg("sensor saturated")
	}
	s.hub.BroadcastEvent(model.Event{Type: "reading.updated", Payload: r, CreatedAt: now})
	return r, nil
}

func (s *MeterService) Latest() *model.Reading {
	return s.store.GetLatestReading()
}

func (s *MeterService) History(ctx context.Context, limit int) ([]model.Reading, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.readings.Recent(ctx, limit)
}

// Stats returns the stored counters and the number of rows in the reading
// log, which shrinks as old readings are pruned.
func (s *MeterService) Stats(ctx context.Context) (model.Stats, error) {
	st := s.store.Snapshot()
	st.LatestReading = nil
	n, err := s.readings.Count(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("count readings: %w", err)
	}
	return model.Stats{StoredState: st, LoggedReadings: n}, nil
}
