package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
)

// PitchRepository はメモリ上のピッチ一覧
type PitchRepository struct {
	mu      sync.RWMutex
	pitches []*pitch.Pitch
}

func NewPitchRepository(pitches ...*pitch.Pitch) *PitchRepository {
	return &PitchRepository{pitches: pitches}
}

func (r *PitchRepository) ListActive(ctx context.Context) ([]*pitch.Pitch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*pitch.Pitch, 0, len(r.pitches))
	for _, p := range r.pitches {
		if p.Active {
			c := *p
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PitchID < result[j].PitchID })
	return result, nil
}
