package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/repository"
	"github.com/iliyamo/study-room-reservation/internal/service"
)

// BookingHandler exposes room browsing, seat search and slot booking.
type BookingHandler struct {
	Alloc *service.Allocator
	Rooms *repository.RoomRepo
}

func NewBookingHandler(alloc *service.Allocator, rooms *repository.RoomRepo) *BookingHandler {
	return &BookingHandler{Alloc: alloc, Rooms: rooms}
}

func intervalFromQuery(c echo.Context) (time.Time, time.Time, error) {
	start, err := parseTime(c.QueryParam("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTime(c.QueryParam("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ListRooms returns every study room.
func (h *BookingHandler) ListRooms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, rooms)
}

// RoomSeatStatus returns every seat of a room with availability for
// the queried interval.
func (h *BookingHandler) RoomSeatStatus(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	start, end, err := intervalFromQuery(c)
	if err != nil {
		return badRequest(c, "start and end must be valid timestamps")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Rooms.GetByID(ctx, roomID); err != nil {
		return fail(c, err)
	}
	seats, err := h.Alloc.RoomSeatStatus(ctx, roomID, start, end)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, seats)
}

// SearchSeats returns the free seats of a room for an interval,
// optionally restricted to seats with a power outlet (?power=true).
func (h *BookingHandler) SearchSeats(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	start, end, err := intervalFromQuery(c)
	if err != nil {
		return badRequest(c, "start and end must be valid timestamps")
	}
	requirePower := c.QueryParam("power") == "true" || c.QueryParam("power") == "1"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Rooms.GetByID(ctx, roomID); err != nil {
		return fail(c, err)
	}
	seats, err := h.Alloc.SearchAvailableSeats(ctx, roomID, start, end, requirePower)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, seats)
}

type reserveReq struct {
	SeatID uint64 `json:"seat_id"`
	Start  string `json:"start_time"`
	End    string `json:"end_time"`
}

// Reserve books a seat for the authenticated student.
func (h *BookingHandler) Reserve(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil || req.SeatID == 0 {
		return badRequest(c, "seat_id, start_time and end_time required")
	}
	start, err := parseTime(req.Start)
	if err != nil {
		return badRequest(c, "start_time must be a valid timestamp")
	}
	end, err := parseTime(req.End)
	if err != nil {
		return badRequest(c, "end_time must be a valid timestamp")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Alloc.ReserveSlot(ctx, uid, req.SeatID, start, end)
	if err != nil {
		return fail(c, err)
	}
	return created(c, echo.Map{
		"slot_id":        ticket.SlotID,
		"reservation_id": ticket.ReservationID,
		"seat_id":        ticket.SeatID,
		"room_id":        ticket.RoomID,
		"start_time":     ticket.StartTime,
		"end_time":       ticket.EndTime,
	})
}

// Cancel releases the authenticated student's slot and cancels its
// reservation.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}
	slotID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid slot id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Alloc.CancelSlot(ctx, slotID, uid); err != nil {
		return fail(c, err)
	}
	return ok(c, nil)
}

// History returns the student's bookings with a has_ended flag.
func (h *BookingHandler) History(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Alloc.ReservationHistory(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, echo.Map{
			"slot_id":     e.SlotID,
			"room_name":   e.RoomName,
			"seat_number": e.SeatNumber,
			"start_time":  e.StartTime,
			"end_time":    e.EndTime,
			"has_ended":   e.HasEnded,
		})
	}
	return ok(c, out)
}
