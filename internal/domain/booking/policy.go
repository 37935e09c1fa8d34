package booking

import (
	"fmt"
	"time"
)

// Policy はアリーナの料金・営業時間・変更期限などの設定値
type Policy struct {
	HourlyRate             int
	OpenHour               int
	CloseHour              int
	MinDuration            int
	MaxDuration            int
	HorizonDays            int
	ModificationCutoffDays int
	MinModifyLeadDays      int
	RateLimitMax           int
	RateLimitWindow        time.Duration
}

// DefaultPolicy は標準の設定値を返す
func DefaultPolicy() Policy {
	return Policy{
		HourlyRate:             350,
		OpenHour:               7,
		CloseHour:              22,
		MinDuration:            1,
		MaxDuration:            10,
		HorizonDays:            365,
		ModificationCutoffDays: 2,
		MinModifyLeadDays:      1,
		RateLimitMax:           5,
		RateLimitWindow:        time.Hour,
	}
}

// Price は利用時間から料金を算出する
func (p Policy) Price(duration int) int {
	return duration * p.HourlyRate
}

// CheckHours は開始時刻が営業時間 [OpenHour, CloseHour) 内かを検証する
func (p Policy) CheckHours(startMinutes int) error {
	hour := startMinutes / 60
	if hour < p.OpenHour || hour >= p.CloseHour {
		return fmt.Errorf("%w: %02d:00〜%02d:00 の間で指定してください", ErrOutOfHours, p.OpenHour, p.CloseHour)
	}
	return nil
}

// CheckDuration は利用時間が [MinDuration, MaxDuration] 内かを検証する
func (p Policy) CheckDuration(duration int) error {
	if duration < p.MinDuration || duration > p.MaxDuration {
		return fmt.Errorf("%w: %d〜%d時間で指定してください", ErrInvalidDuration, p.MinDuration, p.MaxDuration)
	}
	return nil
}

// CheckBookingDate は新規予約日が今日以降かつ受付期間内かを検証する
func (p Policy) CheckBookingDate(date, today time.Time) error {
	days := DaysBetween(today, date)
	if days < 0 {
		return ErrPastDate
	}
	if days > p.HorizonDays {
		return ErrHorizonExceeded
	}
	return nil
}

// CheckModificationWindow は現在の予約日が変更禁止期間に入っていないかを検証する。
// 予約日が既に過ぎている場合は対象外とする
func (p Policy) CheckModificationWindow(current, today time.Time) error {
	days := DaysBetween(today, current)
	if days >= 0 && days <= p.ModificationCutoffDays {
		return ErrModificationWindow
	}
	return nil
}

// CheckNewDate は変更後の日付が MinModifyLeadDays 日以上先かを検証する
func (p Policy) CheckNewDate(date, today time.Time) error {
	if DaysBetween(today, date) < p.MinModifyLeadDays {
		return fmt.Errorf("%w: 変更後の日付は%d日以上先を指定してください", ErrPastDate, p.MinModifyLeadDays)
	}
	return nil
}
