package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-arena-booking/internal/application"
	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
)

// AdminHandler は管理者向けの予約エンドポイント。
// 認可は BookingService 側で行う。書き込み系はトークンがなければ本文を読む前に 401 を返す
type AdminHandler struct {
	service BookingServiceInterface
}

func NewAdminHandler(s BookingServiceInterface) *AdminHandler {
	return &AdminHandler{service: s}
}

// UpdateStatusRequest は状態変更リクエスト
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ModifyBookingRequest は日時変更リクエスト
type ModifyBookingRequest struct {
	BookingDate string `json:"booking_date" validate:"required"`
	TimeSlot    string `json:"time_slot" validate:"required"`
	Duration    int    `json:"duration"`
	Reason      string `json:"reason" validate:"max=500"`
}

// BookingListResponse は予約一覧
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Count    int               `json:"count"`
}

// List godoc
// @Summary 予約一覧を取得
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending / confirmed / cancelled / all"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} DataResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Router /admin/bookings [get]
func (h *AdminHandler) List(c echo.Context) error {
	bookings, err := h.service.ListBookings(c.Request().Context(), application.ListBookingsInput{
		BearerToken: bearerToken(c),
		Status:      c.QueryParam("status"),
		StartDate:   c.QueryParam("start_date"),
		EndDate:     c.QueryParam("end_date"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DataResponse{Data: BookingListResponse{
		Bookings: toBookingResponses(bookings),
		Count:    len(bookings),
	}})
}

// GetByID godoc
// @Summary 予約を取得
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Success 200 {object} DataResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/bookings/{id} [get]
func (h *AdminHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), bearerToken(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DataResponse{Data: map[string]BookingResponse{"booking": toBookingResponse(b)}})
}

// UpdateStatus godoc
// @Summary 予約の状態を変更
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Param request body UpdateStatusRequest true "新しい状態"
// @Success 200 {object} DataResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /admin/bookings/{id}/status [patch]
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	if err := requireToken(c); err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return &booking.ValidationError{Field: "body", Reason: "リクエストの形式が不正です"}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.UpdateStatus(c.Request().Context(), application.UpdateStatusInput{
		BearerToken: bearerToken(c),
		BookingID:   c.Param("id"),
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DataResponse{Data: BookingResult{
		Success: true,
		Booking: toBookingResponse(b),
		Message: "予約の状態を " + string(b.Status) + " に変更しました",
	}})
}

// Modify godoc
// @Summary 予約の日時を変更
// @Description 予約日の2日前までに限り日時を変更し、confirmed にします
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Param request body ModifyBookingRequest true "変更内容"
// @Success 200 {object} DataResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse "変更期限切れ"
// @Router /admin/bookings/{id} [put]
func (h *AdminHandler) Modify(c echo.Context) error {
	if err := requireToken(c); err != nil {
		return err
	}
	var req ModifyBookingRequest
	if err := c.Bind(&req); err != nil {
		return &booking.ValidationError{Field: "body", Reason: "リクエストの形式が不正です"}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result, err := h.service.ModifyBooking(c.Request().Context(), application.ModifyBookingInput{
		BearerToken: bearerToken(c),
		BookingID:   c.Param("id"),
		NewDate:     req.BookingDate,
		NewTimeSlot: req.TimeSlot,
		NewDuration: req.Duration,
		Reason:      req.Reason,
	})
	if err != nil {
		return err
	}
	previous := toBookingResponse(result.Previous)
	return c.JSON(http.StatusOK, DataResponse{Data: BookingResult{
		Success:  true,
		Booking:  toBookingResponse(result.Booking),
		Previous: &previous,
		Message:  "予約を変更しました",
	}})
}

func requireToken(c echo.Context) error {
	if bearerToken(c) == "" {
		return admin.ErrNoAuthorizationHeader
	}
	return nil
}
