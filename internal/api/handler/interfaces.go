package handler

import (
	"context"

	"github.com/sanosuguru/go-arena-booking/internal/application"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
)

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	CheckAvailability(ctx context.Context, input application.CheckAvailabilityInput) (*application.AvailabilityResult, error)
	ModifyBooking(ctx context.Context, input application.ModifyBookingInput) (*application.ModifyBookingResult, error)
	UpdateStatus(ctx context.Context, input application.UpdateStatusInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, token, id string) (*booking.Booking, error)
	ListBookings(ctx context.Context, input application.ListBookingsInput) ([]*booking.Booking, error)
}

// PitchServiceInterface はピッチサービスのインターフェース
type PitchServiceInterface interface {
	ListPitches(ctx context.Context) ([]*pitch.Pitch, error)
}
