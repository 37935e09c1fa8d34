package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-arena-booking/internal/application"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
)

// MockBookingService は BookingServiceInterface のモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CheckAvailability(ctx context.Context, input application.CheckAvailabilityInput) (*application.AvailabilityResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.AvailabilityResult), args.Error(1)
}

func (m *MockBookingService) ModifyBooking(ctx context.Context, input application.ModifyBookingInput) (*application.ModifyBookingResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.ModifyBookingResult), args.Error(1)
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, input application.UpdateStatusInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, token, id string) (*booking.Booking, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListBookings(ctx context.Context, input application.ListBookingsInput) ([]*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

// MockPitchService は PitchServiceInterface のモック
type MockPitchService struct {
	mock.Mock
}

func (m *MockPitchService) ListPitches(ctx context.Context) ([]*pitch.Pitch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pitch.Pitch), args.Error(1)
}

// doRequest はルーティングとエラーハンドラーを通してリクエストを処理する
func doRequest(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sampleBooking() *booking.Booking {
	d, _ := booking.ParseDate("2025-06-20")
	return &booking.Booking{
		ID:           "3f1c2a9e-1111-4000-8000-000000000001",
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Phone:        "0825551234",
		BookingDate:  d,
		TimeSlot:     "10:00",
		StartMinute:  600,
		Duration:     2,
		TotalPrice:   700,
		Status:       booking.StatusPending,
	}
}
