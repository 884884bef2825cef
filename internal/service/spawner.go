package service

import (
	"context"
	"fmt"
	"time"

	"citiescrowl/internal/models"

	"github.com/rs/zerolog/log"
)

// SpawnConfig holds the spawn loop timing. A nil Clock means wall time.
type SpawnConfig struct {
	WarmUp          time.Duration
	Interval        time.Duration
	Lifetime        time.Duration
	BurstFactor     int
	ReferenceHeight int
	Clock           Clock
}

// SpawnScheduler drives the floating labels of a page.
type SpawnScheduler struct {
	store   *models.RecordStore
	sampler *Sampler
	factory *LabelFactory
	expiry  *ExpiryScheduler
	cfg     SpawnConfig
}

// NewSpawnScheduler creates a new spawn scheduler
func NewSpawnScheduler(store *models.RecordStore, sampler *Sampler, factory *LabelFactory, expiry *ExpiryScheduler, cfg SpawnConfig) *SpawnScheduler {
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &SpawnScheduler{
		store:   store,
		sampler: sampler,
		factory: factory,
		expiry:  expiry,
		cfg:     cfg,
	}
}

// BurstSize is the number of labels spawned per tick for a viewport height.
func BurstSize(height, factor, referenceHeight int) int {
	if height <= 0 || factor <= 0 || referenceHeight <= 0 {
		return 0
	}
	return factor * height / referenceHeight
}

// Ready reports whether the store can feed a spawn loop.
func (s *SpawnScheduler) Ready() error {
	if s.store.Count() == 0 {
		return fmt.Errorf("service: %w", models.ErrEmptyStore)
	}
	return nil
}

// Run waits for the warm-up delay, then spawns one burst per interval until
// ctx is cancelled. A failing label is logged and skipped. Run refuses to
// start on an empty store or a document lacking the panel elements.
func (s *SpawnScheduler) Run(ctx context.Context, doc Document) error {
	if err := s.Ready(); err != nil {
		return fmt.Errorf("service: refusing to spawn: %w", err)
	}
	if err := doc.Require(s.factory.panel.IDs()...); err != nil {
		return fmt.Errorf("service: refusing to spawn: %w", err)
	}

	if err := sleep(ctx, s.cfg.Clock, s.cfg.WarmUp); err != nil {
		return err
	}

	for {
		if err := sleep(ctx, s.cfg.Clock, s.cfg.Interval); err != nil {
			return err
		}

		n := BurstSize(doc.ViewportHeight(), s.cfg.BurstFactor, s.cfg.ReferenceHeight)
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := s.SpawnOne(ctx, doc); err != nil {
				log.Warn().Err(err).Msg("skipping label")
			}
		}
	}
}

// SpawnOne creates a single label with a fresh record and fresh parameters
// and arms its removal.
func (s *SpawnScheduler) SpawnOne(ctx context.Context, doc Document) (label models.Label, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("service: label creation panicked: %v", r)
		}
	}()

	index, err := s.sampler.SampleIndex(s.store.Count())
	if err != nil {
		return models.Label{}, err
	}

	label, err = s.factory.Create(doc, index, s.sampler.SampleVisualParams())
	if err != nil {
		return models.Label{}, err
	}

	s.expiry.ScheduleRemoval(ctx, doc, label.ID, s.cfg.Lifetime)
	return label, nil
}

func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := clock.AfterFunc(d, func() { close(done) })
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}
