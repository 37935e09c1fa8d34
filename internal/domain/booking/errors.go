package booking

import (
	"errors"
	"fmt"
)

// Booking ドメインのエラー定義
var (
	ErrValidation          = errors.New("入力値が不正です")
	ErrPastDate            = errors.New("過去の日付は予約できません")
	ErrHorizonExceeded     = errors.New("予約できるのは365日先までです")
	ErrOutOfHours          = errors.New("営業時間外の時間帯です")
	ErrInvalidDuration     = errors.New("利用時間が範囲外です")
	ErrRateLimited         = errors.New("予約リクエストが多すぎます。しばらくしてから再度お試しください")
	ErrTimeConflict        = errors.New("時間帯が他の予約と重複しています")
	ErrModificationWindow  = errors.New("予約日の1〜2日前以降は変更できません")
	ErrBookingNotFound     = errors.New("予約が見つかりません")
	ErrInvalidStatus       = errors.New("ステータスは pending, confirmed, cancelled のいずれかです")
	ErrInvalidStatusChange = fmt.Errorf("%w: pending には戻せません", ErrInvalidStatus)
	ErrStoreUnavailable    = errors.New("ストレージが利用できません")
)

// ValidationError は入力項目ごとの検証エラー
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError は重複した既存予約の時間帯を保持する
type ConflictError struct {
	Date  string
	Range TimeRange
}

func (e *ConflictError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("時間帯が重複しています: %s の %s は予約済みです", e.Date, e.Range)
	}
	return fmt.Sprintf("時間帯が重複しています: %s は予約済みです", e.Range)
}

func (e *ConflictError) Unwrap() error {
	return ErrTimeConflict
}

// Unavailable はストレージ障害を ErrStoreUnavailable でラップする
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
