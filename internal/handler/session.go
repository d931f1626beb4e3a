package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold/internal/cart"
	"github.com/iliyamo/seat-hold/internal/middleware"
	"github.com/iliyamo/seat-hold/internal/utils"
)

// SessionHandler opens and closes anonymous shopper sessions.  A session
// is a cart in the registry plus a SHOPPER token whose subject is the
// session id.
type SessionHandler struct {
	Carts     *cart.Registry
	JWTSecret string
	TokenTTL  time.Duration
}

func NewSessionHandler(carts *cart.Registry, secret string, ttl time.Duration) *SessionHandler {
	if carts == nil {
		panic("nil registry passed to NewSessionHandler")
	}
	return &SessionHandler{Carts: carts, JWTSecret: secret, TokenTTL: ttl}
}

// Open handles POST /v1/sessions.
func (h *SessionHandler) Open(c echo.Context) error {
	ct := h.Carts.Open()
	tok, err := utils.NewAccessToken(h.JWTSecret, ct.Session(), utils.RoleShopper, h.TokenTTL)
	if err != nil {
		_ = h.Carts.Close(c.Request().Context(), ct.Session())
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_id":   ct.Session(),
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

// Close handles DELETE /v1/sessions.  Every hold of the session is
// released.
func (h *SessionHandler) Close(c echo.Context) error {
	if err := h.Carts.Close(c.Request().Context(), middleware.SessionID(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
