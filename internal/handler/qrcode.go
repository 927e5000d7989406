package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/service"
)

// QRHandler exposes the admin surface for room check-in tokens.
type QRHandler struct {
	QR *service.RoomQR
}

func NewQRHandler(qr *service.RoomQR) *QRHandler { return &QRHandler{QR: qr} }

func tokenData(tok *service.RoomToken) echo.Map {
	return echo.Map{
		"room_id":    tok.RoomID,
		"qr_token":   tok.Token,
		"expires_at": tok.ExpiresAt,
		"expires_in": tok.ExpiresIn,
	}
}

// Current returns the room's active token for display, issuing one if
// needed.
func (h *QRHandler) Current(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tok, err := h.QR.Current(ctx, roomID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, tokenData(tok))
}

// Refresh forces a new token for the room, invalidating the previous
// one.
func (h *QRHandler) Refresh(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tok, err := h.QR.Refresh(ctx, roomID)
	if err != nil {
		return fail(c, err)
	}
	return created(c, tokenData(tok))
}
