package pitch

import (
	"context"
	"errors"
	"time"
)

var ErrPitchNotFound = errors.New("ピッチが見つかりません")

// Pitch は予約ページに表示するピッチ情報
type Pitch struct {
	ID          string
	PitchID     int
	Name        string
	Description string
	Surface     string
	Features    []string
	ImageURL    string
	Active      bool
	CreatedAt   time.Time
}

// Repository はピッチリポジトリのインターフェース
type Repository interface {
	// ListActive は有効なピッチを pitch_id 昇順で返す
	ListActive(ctx context.Context) ([]*Pitch, error)
}
