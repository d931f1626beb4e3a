package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	CtxSessionID = "session_id"
	CtxRole      = "role"
)

// SessionID returns the authenticated subject, or "" when the request
// carries no valid token.
func SessionID(c echo.Context) string {
	if s, ok := c.Get(CtxSessionID).(string); ok {
		return s
	}
	return ""
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	if s, ok := c.Get(CtxRole).(string); ok {
		return s
	}
	return ""
}
