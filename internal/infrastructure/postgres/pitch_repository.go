package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
)

type pitchRow struct {
	ID          string    `db:"id"`
	PitchID     int       `db:"pitch_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Surface     string    `db:"surface_type"`
	Features    []byte    `db:"features"`
	ImageURL    string    `db:"image_url"`
	Active      bool      `db:"active_flag"`
	CreatedAt   time.Time `db:"created_at"`
}

type PitchRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPitchRepository(db *sqlx.DB, timeout time.Duration) *PitchRepository {
	return &PitchRepository{db: db, timeout: timeout}
}

func (r *PitchRepository) ListActive(ctx context.Context) ([]*pitch.Pitch, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT id, pitch_id, name, description, surface_type, features, image_url, active_flag, created_at
		FROM cricket_pitches WHERE active_flag ORDER BY pitch_id`
	var rows []pitchRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("ピッチ一覧取得に失敗: %w", err)
	}

	pitches := make([]*pitch.Pitch, 0, len(rows))
	for _, row := range rows {
		features := []string{}
		if len(row.Features) > 0 {
			if err := json.Unmarshal(row.Features, &features); err != nil {
				return nil, fmt.Errorf("ピッチ %d の features が不正です: %w", row.PitchID, err)
			}
		}
		pitches = append(pitches, &pitch.Pitch{
			ID:          row.ID,
			PitchID:     row.PitchID,
			Name:        row.Name,
			Description: row.Description,
			Surface:     row.Surface,
			Features:    features,
			ImageURL:    row.ImageURL,
			Active:      row.Active,
			CreatedAt:   row.CreatedAt,
		})
	}
	return pitches, nil
}
