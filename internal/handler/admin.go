package handler

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// AdminHandler exposes the operator surface: tunable settings, the
// full violation log and the repeat-offender listing.
type AdminHandler struct {
	Settings     *repository.SettingRepo
	Reservations *repository.ReservationRepo
	Users        *repository.UserRepo
}

func NewAdminHandler(s *repository.SettingRepo, r *repository.ReservationRepo, u *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Settings: s, Reservations: r, Users: u}
}

// ListSettings returns every tunable with its current value.
func (h *AdminHandler) ListSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.Settings.All(ctx)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, settings)
}

type settingReq struct {
	Value string `json:"value"`
}

// UpdateSetting overwrites the value of one tunable. Unknown keys are
// rejected so a typo cannot silently create dead configuration.
func (h *AdminHandler) UpdateSetting(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return badRequest(c, "setting key required")
	}
	var req settingReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Value) == "" {
		return badRequest(c, "value required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Settings.Update(ctx, key, strings.TrimSpace(req.Value)); err != nil {
		return fail(c, err)
	}
	setting, err := h.Settings.Get(ctx, key)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, setting)
}

// AllViolations returns every violation with student and room names.
func (h *AdminHandler) AllViolations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Reservations.AllViolations(ctx)
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(recs))
	for _, r := range recs {
		out = append(out, echo.Map{
			"id":           r.ID,
			"student_id":   r.StudentID,
			"student_name": r.StudentName,
			"room_id":      r.RoomID,
			"room_name":    r.RoomName,
			"start_time":   r.StartTime,
			"end_time":     r.EndTime,
			"status":       r.Status,
		})
	}
	return ok(c, out)
}

// TopViolators returns the students with the highest violation counts.
func (h *AdminHandler) TopViolators(c echo.Context) error {
	limit := queryInt(c, "limit", 10)
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.TopViolators(ctx, limit)
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, echo.Map{
			"id":              u.ID,
			"username":        u.Username,
			"name":            u.Name,
			"violation_count": u.ViolationCount,
			"banned_until":    u.BannedUntil,
		})
	}
	return ok(c, out)
}
