package booking

import (
	"strings"
	"time"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus は文字列を Status に変換する
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// IsActive は時間帯を占有する状態かを返す
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

// CanTransitionTo は to への遷移が許されるかを返す。
// pending に入れるのは作成時のみ
func (s Status) CanTransitionTo(to Status) bool {
	if to == StatusPending {
		return s == StatusPending
	}
	return true
}

// Booking はアリーナ予約エンティティを表す
type Booking struct {
	ID           string
	CustomerName string
	Email        string
	Phone        string
	BookingDate  time.Time
	TimeSlot     string
	StartMinute  int
	Duration     int
	TotalPrice   int
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Slot は予約対象の日付と時間帯
type Slot struct {
	Date        time.Time
	TimeSlot    string
	StartMinute int
	Duration    int
}

// NewSlot は日付・開始時刻・利用時間から Slot を作る
func NewSlot(date, timeSlot string, duration int) (Slot, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Slot{}, err
	}
	start, err := ParseTimeSlot(timeSlot)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Date: d, TimeSlot: timeSlot, StartMinute: start, Duration: duration}, nil
}

// Range は Slot が占有する区間を返す
func (s Slot) Range() TimeRange {
	return NewTimeRange(s.StartMinute, s.Duration)
}

// NewBooking は pending 状態の新しい予約を作成する
func NewBooking(contact Contact, slot Slot, totalPrice int) *Booking {
	now := time.Now()
	return &Booking{
		CustomerName: contact.Name,
		Email:        contact.Email,
		Phone:        contact.Phone,
		BookingDate:  slot.Date,
		TimeSlot:     slot.TimeSlot,
		StartMinute:  slot.StartMinute,
		Duration:     slot.Duration,
		TotalPrice:   totalPrice,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Range は予約が占有する区間を返す
func (b *Booking) Range() TimeRange {
	return NewTimeRange(b.StartMinute, b.Duration)
}

// Slot は現在の予約枠を返す
func (b *Booking) Slot() Slot {
	return Slot{Date: b.BookingDate, TimeSlot: b.TimeSlot, StartMinute: b.StartMinute, Duration: b.Duration}
}

// Reference は振込用の参照番号（IDの先頭8文字を大文字化）
func (b *Booking) Reference() string {
	ref := b.ID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return strings.ToUpper(ref)
}

// Reschedule は日時と料金を更新し confirmed にする
func (b *Booking) Reschedule(slot Slot, totalPrice int) {
	b.BookingDate = slot.Date
	b.TimeSlot = slot.TimeSlot
	b.StartMinute = slot.StartMinute
	b.Duration = slot.Duration
	b.TotalPrice = totalPrice
	b.Status = StatusConfirmed
	b.UpdatedAt = time.Now()
}

// ChangeStatus は状態を遷移させる
func (b *Booking) ChangeStatus(to Status) error {
	if !b.Status.CanTransitionTo(to) {
		return ErrInvalidStatusChange
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	return nil
}

// Clone は予約のコピーを返す
func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}
