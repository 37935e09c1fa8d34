package handler

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
)

// DataResponse は成功レスポンスの共通エンベロープ
type DataResponse struct {
	Data interface{} `json:"data"`
}

// BookingResponse は予約のレスポンス表現
type BookingResponse struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	BookingDate  string    `json:"booking_date"`
	TimeSlot     string    `json:"time_slot"`
	EndTime      string    `json:"end_time"`
	Duration     int       `json:"duration"`
	TotalPrice   int       `json:"total_price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BookingResult は作成・変更・状態更新の結果
type BookingResult struct {
	Success  bool             `json:"success"`
	Booking  BookingResponse  `json:"booking"`
	Previous *BookingResponse `json:"previous,omitempty"`
	Message  string           `json:"message"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		Reference:    b.Reference(),
		CustomerName: b.CustomerName,
		Email:        b.Email,
		Phone:        b.Phone,
		BookingDate:  booking.FormatDate(b.BookingDate),
		TimeSlot:     b.TimeSlot,
		EndTime:      booking.FormatMinutes(b.Range().End),
		Duration:     b.Duration,
		TotalPrice:   b.TotalPrice,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func toBookingResponses(bookings []*booking.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return resp
}

// bearerToken は "Authorization: Bearer <token>" からトークンを取り出す。無ければ空文字
func bearerToken(c echo.Context) string {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
