// Package handler implements the HTTP surface: auth, booking,
// check-in, notifications and the admin endpoints.  Every response
// uses the {code, message, data} envelope.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/qrtoken"
	"github.com/iliyamo/study-room-reservation/internal/repository"
	"github.com/iliyamo/study-room-reservation/internal/service"
)

// respond writes the uniform response envelope.
func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, echo.Map{
		"code":    status,
		"message": message,
		"data":    data,
	})
}

func ok(c echo.Context, data interface{}) error {
	return respond(c, http.StatusOK, "success", data)
}

func created(c echo.Context, data interface{}) error {
	return respond(c, http.StatusCreated, "success", data)
}

func badRequest(c echo.Context, message string) error {
	return respond(c, http.StatusBadRequest, message, nil)
}

// fail maps domain sentinels onto HTTP statuses: validation and token
// problems are 400, policy rejections 403, missing resources 404,
// booking conflicts 409. Everything else is an internal error with the
// detail kept out of the response.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrDurationExceeded),
		errors.Is(err, service.ErrNoActiveCheckIn),
		errors.Is(err, qrtoken.ErrMalformedToken),
		errors.Is(err, qrtoken.ErrIncompleteData),
		errors.Is(err, qrtoken.ErrSignatureMismatch),
		errors.Is(err, qrtoken.ErrMalformedExpiry),
		errors.Is(err, qrtoken.ErrTokenExpired),
		errors.Is(err, qrtoken.ErrTokenNotRecognized):
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrUserBanned),
		errors.Is(err, repository.ErrForbidden):
		return respond(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrSlotNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrNotificationNotFound),
		errors.Is(err, repository.ErrSettingNotFound):
		return respond(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, repository.ErrSeatConflict),
		errors.Is(err, repository.ErrUserConflict),
		errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, repository.ErrConflict):
		return respond(c, http.StatusConflict, err.Error(), nil)
	default:
		return respond(c, http.StatusInternalServerError, "internal error", nil)
	}
}

// currentUserID extracts the authenticated user's id from the JWT
// claims JWTAuth placed in context. Numeric JSON claims decode as
// float64.
func currentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// parseTime accepts RFC3339 plus the zone-less forms clients commonly
// send; zone-less values are taken as UTC.
func parseTime(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
