package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-arena-booking/internal/application"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
)

// BookingHandler は公開の予約エンドポイント
type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

// CreateBookingRequest は予約作成リクエスト。
// total_price などの料金項目は受け付けず、サーバー側で算出する
type CreateBookingRequest struct {
	CustomerName string `json:"customer_name" example:"Thabo Nkosi"`
	Email        string `json:"email" example:"thabo@example.com"`
	Phone        string `json:"phone" example:"082 123 4567"`
	BookingDate  string `json:"booking_date" example:"2025-06-20"`
	TimeSlot     string `json:"time_slot" example:"18:00"`
	Duration     int    `json:"duration" example:"2"`
}

// AvailabilityRequest は空き状況照会リクエスト
type AvailabilityRequest struct {
	BookingDate string `json:"booking_date" validate:"required"`
	TimeSlot    string `json:"time_slot" validate:"required"`
	Duration    int    `json:"duration"`
}

// AvailabilityResponse は空き状況照会の結果
type AvailabilityResponse struct {
	Available bool            `json:"available"`
	Message   string          `json:"message"`
	Conflict  *ConflictWindow `json:"conflict,omitempty"`
}

type ConflictWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Create godoc
// @Summary 予約を作成
// @Description 空いていれば pending の予約を作成し、確認メールを送信します
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} DataResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "時間帯が重複"
// @Failure 429 {object} api.ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return &booking.ValidationError{Field: "body", Reason: "リクエストの形式が不正です"}
	}
	b, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		BookingDate:  req.BookingDate,
		TimeSlot:     req.TimeSlot,
		Duration:     req.Duration,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, DataResponse{Data: BookingResult{
		Success: true,
		Booking: toBookingResponse(b),
		Message: "予約を受け付けました。お支払い参照番号は " + b.Reference() + " です",
	}})
}

// Availability godoc
// @Summary 空き状況を確認
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body AvailabilityRequest true "照会条件"
// @Success 200 {object} DataResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /bookings/availability [post]
func (h *BookingHandler) Availability(c echo.Context) error {
	var req AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return &booking.ValidationError{Field: "body", Reason: "リクエストの形式が不正です"}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result, err := h.service.CheckAvailability(c.Request().Context(), application.CheckAvailabilityInput{
		BookingDate: req.BookingDate,
		TimeSlot:    req.TimeSlot,
		Duration:    req.Duration,
	})
	if err != nil {
		return err
	}
	resp := AvailabilityResponse{Available: result.Available, Message: result.Message}
	if result.Conflict != nil {
		resp.Conflict = &ConflictWindow{
			Start: booking.FormatMinutes(result.Conflict.Start),
			End:   booking.FormatMinutes(result.Conflict.End),
		}
	}
	return c.JSON(http.StatusOK, DataResponse{Data: resp})
}
