package notification

import (
	"context"
	"time"
)

// Message は送信するメール
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender はメール送信のインターフェース
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// イベント種別
const (
	EventBookingCreated       = "booking.created"
	EventBookingModified      = "booking.modified"
	EventBookingStatusChanged = "booking.status_changed"
)

// Event は予約のライフサイクルイベント
type Event struct {
	Type        string    `json:"type"`
	BookingID   string    `json:"booking_id"`
	Reference   string    `json:"reference"`
	BookingDate string    `json:"booking_date"`
	TimeSlot    string    `json:"time_slot"`
	Duration    int       `json:"duration"`
	TotalPrice  int       `json:"total_price"`
	Status      string    `json:"status"`
	Previous    *Snapshot `json:"previous,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Snapshot は変更前の予約枠
type Snapshot struct {
	BookingDate string `json:"booking_date"`
	TimeSlot    string `json:"time_slot"`
	Duration    int    `json:"duration"`
	TotalPrice  int    `json:"total_price"`
	Status      string `json:"status"`
}

// Publisher はイベント配信のインターフェース
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
