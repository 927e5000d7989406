package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/service"
)

// CheckInHandler exposes QR-scan check-in, checkout and the student's
// attendance history.
type CheckInHandler struct {
	Presence *service.Presence
}

func NewCheckInHandler(p *service.Presence) *CheckInHandler {
	return &CheckInHandler{Presence: p}
}

type scanReq struct {
	QRToken string `json:"qr_token"`
}

// Scan verifies the scanned token and checks the student in to the
// token's room.
func (h *CheckInHandler) Scan(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}
	var req scanReq
	if err := c.Bind(&req); err != nil || req.QRToken == "" {
		return badRequest(c, "qr_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	att, err := h.Presence.CheckIn(ctx, uid, req.QRToken)
	if err != nil {
		return fail(c, err)
	}
	data := echo.Map{
		"check_in_id":   att.CheckInID,
		"room_id":       att.RoomID,
		"room_name":     att.RoomName,
		"room_location": att.RoomLocation,
		"check_in_time": att.CheckInTime,
	}
	if att.ReservationID != 0 {
		data["reservation_id"] = att.ReservationID
	}
	return created(c, data)
}

type checkOutReq struct {
	RoomID uint64 `json:"room_id"`
}

// CheckOut closes the student's open check-in in the room and reports
// the stay duration.
func (h *CheckInHandler) CheckOut(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}
	var req checkOutReq
	if err := c.Bind(&req); err != nil || req.RoomID == 0 {
		return badRequest(c, "room_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ci, err := h.Presence.CheckOut(ctx, uid, req.RoomID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{
		"check_in_id":      ci.ID,
		"room_id":          ci.RoomID,
		"check_in_time":    ci.CheckInTime,
		"check_out_time":   ci.CheckOutTime,
		"duration_minutes": ci.DurationMin,
	})
}

// List returns the student's check-ins, filterable by ?status= and
// pageable with ?limit= and ?offset=.
func (h *CheckInHandler) List(c echo.Context) error {
	uid, okID := currentUserID(c)
	if !okID {
		return badRequest(c, "unauthorized")
	}
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	records, err := h.Presence.ListCheckIns(ctx, uid, c.QueryParam("status"), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, records)
}
