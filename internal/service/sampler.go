package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const pruneEvery = time.Hour

// RunSampler measures every interval until ctx ends and prunes readings
// older than the retention window. A zero interval disables sampling.
func (s *MeterService) RunSampler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Info().Msg("background sampling disabled")
		return
	}
	log.Info().Dur("interval", interval).Msg("background sampling started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastPrune := time.Time{}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("background sampling stopped")
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
			if time.Since(lastPrune) >= pruneEvery {
				s.prune(ctx)
				lastPrune = time.Now()
			}
		}
	}
}

func (s *MeterService) sampleOnce(ctx context.Context) {
	if !s.Available() {
		return
	}
	r, err := s.Measure(ctx, SourceSampler)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("sample")
		}
		return
	}
	ev := log.Debug().Str("id", r.ID).Int("range", r.Attributes.RangeIndex)
	if r.Attributes.Illuminance != nil {
		ev = ev.Float64("lux", *r.Attributes.Illuminance)
	}
	ev.Msg("sampled")
}

func (s *MeterService) prune(ctx context.Context) {
	retention := s.cfg.Retention()
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention).UnixMilli()
	n, err := s.readings.Prune(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("prune reading log")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("pruned reading log")
	}
}
