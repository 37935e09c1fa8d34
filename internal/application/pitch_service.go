package application

import (
	"context"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
)

type PitchService struct {
	pitchRepo pitch.Repository
}

func NewPitchService(pitchRepo pitch.Repository) *PitchService {
	return &PitchService{pitchRepo: pitchRepo}
}

// ListPitches は有効なピッチを返す
func (s *PitchService) ListPitches(ctx context.Context) ([]*pitch.Pitch, error) {
	pitches, err := s.pitchRepo.ListActive(ctx)
	if err != nil {
		return nil, booking.Unavailable("ピッチ一覧の取得に失敗", err)
	}
	return pitches, nil
}
