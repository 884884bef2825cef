package service

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"citiescrowl/internal/models"
)

// Visual parameter ranges.
const (
	MinSizeTier       = 1
	MaxSizeTier       = 4
	MinSpeedScale     = 0.8
	MaxSpeedScale     = 1.5
	MinVerticalOffset = -5.0
	MaxVerticalOffset = 100.0
)

// Sampler draws record indexes and visual parameters uniformly.
// It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a sampler with a fixed seed, for reproducible runs.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSampler seeds a sampler from crypto/rand.
func NewRandomSampler() (*Sampler, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("service: read random seed: %w", err)
	}
	return NewSampler(binary.LittleEndian.Uint64(b[:])), nil
}

// SampleIndex returns an index in [0, count).
func (s *Sampler) SampleIndex(count int) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("service: cannot sample index: %w", models.ErrEmptyStore)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(count), nil
}

// SampleVisualParams draws each field independently.
func (s *Sampler) SampleVisualParams() models.VisualParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.VisualParams{
		SizeTier:       MinSizeTier + s.rng.IntN(MaxSizeTier-MinSizeTier+1),
		SpeedScale:     MinSpeedScale + s.rng.Float64()*(MaxSpeedScale-MinSpeedScale),
		VerticalOffset: MinVerticalOffset + s.rng.Float64()*(MaxVerticalOffset-MinVerticalOffset),
	}
}
