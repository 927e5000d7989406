package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user's id for keying
// purposes. JWTAuth stores the raw "sub" claim, which decodes as a
// float64 for numeric ids. Unauthenticated requests key as "anon".
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case nil:
		return "anon"
	case string:
		if v == "" {
			return "anon"
		}
		return v
	case float64:
		return fmt.Sprintf("%d", uint64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
