// Package router maps the HTTP routes onto their handlers and wires
// the authentication and role middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/handler"
	"github.com/iliyamo/study-room-reservation/internal/middleware"
	"github.com/iliyamo/study-room-reservation/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Booking     *handler.BookingHandler
	CheckIn     *handler.CheckInHandler
	QR          *handler.QRHandler
	Reservation *handler.ReservationHandler
	Admin       *handler.AdminHandler
}

// Register mounts all routes. Unauthenticated operations live under
// /v1/auth plus the health check; everything else requires a valid
// access token, with the /v1/admin group restricted to admins.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(model.RoleStudent, model.RoleAdmin))

	v1.GET("/me", h.Auth.Me)

	// Room browsing and seat booking.
	v1.GET("/rooms", h.Booking.ListRooms)
	v1.GET("/rooms/:id/seats", h.Booking.RoomSeatStatus)
	v1.GET("/rooms/:id/seats/search", h.Booking.SearchSeats)
	v1.POST("/slots/reserve", h.Booking.Reserve)
	v1.DELETE("/slots/:id", h.Booking.Cancel)
	v1.GET("/slots/history", h.Booking.History)

	// Attendance.
	v1.POST("/checkins/scan", h.CheckIn.Scan)
	v1.POST("/checkins/checkout", h.CheckIn.CheckOut)
	v1.GET("/checkins", h.CheckIn.List)

	// Student-facing reservation and violation records.
	v1.GET("/reservations", h.Reservation.List)
	v1.GET("/violations", h.Reservation.Violations)
	v1.GET("/notifications", h.Reservation.ListNotifications)
	v1.POST("/notifications/:id/read", h.Reservation.MarkNotificationRead)

	// Operator surface.
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/rooms/:id/qrcode", h.QR.Current)
	admin.POST("/rooms/:id/qrcode/refresh", h.QR.Refresh)
	admin.GET("/settings", h.Admin.ListSettings)
	admin.PUT("/settings/:key", h.Admin.UpdateSetting)
	admin.GET("/violations", h.Admin.AllViolations)
	admin.GET("/violators/top", h.Admin.TopViolators)
}
