package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// ReservationHandler exposes the student's reservation, violation and
// notification listings.
type ReservationHandler struct {
	Reservations  *repository.ReservationRepo
	Notifications *repository.NotificationRepo
}

func NewReservationHandler(r *repository.ReservationRepo, n *repository.NotificationRepo) *ReservationHandler {
	return &ReservationHandler{Reservations: r, Notifications: n}
}

func reservationData(recs []repository.ReservationWithRoom) []echo.Map {
	out := make([]echo.Map, 0, len(recs))
	for _, r := range recs {
		out = append(out, echo.Map{
			"id":         r.ID,
			"room_id":    r.RoomID,
			"room_name":  r.RoomName,
			"start_time": r.StartTime,
			"end_time":   r.EndTime,
			"status":     r.Status,
		})
	}
	return out
}

// List returns the student's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Reservations.ListByStudent(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, reservationData(recs))
}

// Violations returns the student's own violation records.
func (h *ReservationHandler) Violations(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Reservations.ViolationsByStudent(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, reservationData(recs))
}

// ListNotifications returns the student's recent notifications.
func (h *ReservationHandler) ListNotifications(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	notes, err := h.Notifications.ListByUser(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, notes)
}

// MarkNotificationRead marks one of the student's notifications read.
func (h *ReservationHandler) MarkNotificationRead(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, uid); err != nil {
		return fail(c, err)
	}
	return ok(c, nil)
}
