package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティングに登録するハンドラー一式
type Handlers struct {
	Booking *BookingHandler
	Admin   *AdminHandler
	Pitch   *PitchHandler
	Health  *HealthHandler
}

// RegisterRoutes は /health と /api/v1 配下のルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/pitches", h.Pitch.List)

	v1.POST("/bookings", h.Booking.Create)
	v1.POST("/bookings/availability", h.Booking.Availability)

	// 認可は BookingService 側で一律に行う
	adminGroup := v1.Group("/admin")
	adminGroup.GET("/bookings", h.Admin.List)
	adminGroup.GET("/bookings/:id", h.Admin.GetByID)
	adminGroup.PATCH("/bookings/:id/status", h.Admin.UpdateStatus)
	adminGroup.PUT("/bookings/:id", h.Admin.Modify)
}
