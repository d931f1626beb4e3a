package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/utils"
	"github.com/iliyamo/seat-hold/internal/worker"
)

// Sweeps is satisfied by *worker.Sweeper.
type Sweeps interface {
	RunOnce(ctx context.Context) (int64, error)
	Stats() worker.SweeperStats
}

// OrderBook is satisfied by *repository.OrderRepo.
type OrderBook interface {
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)
	CheckIn(ctx context.Context, itemID string, at time.Time) (model.OrderItem, error)
}

// AdminHandler serves operator endpoints.  Login is the only route that
// does not require an ADMIN token.
type AdminHandler struct {
	Sweeper      Sweeps
	Orders       OrderBook
	JWTSecret    string
	PasswordHash string // bcrypt; empty disables login
	TokenTTL     time.Duration
	Now          func() time.Time
}

func NewAdminHandler(s Sweeps, orders OrderBook, secret, passwordHash string, ttl time.Duration) *AdminHandler {
	if s == nil || orders == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Sweeper: s, Orders: orders, JWTSecret: secret, PasswordHash: passwordHash, TokenTTL: ttl, Now: time.Now}
}

// Login handles POST /v1/admin/login.
func (h *AdminHandler) Login(c echo.Context) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required"})
	}
	if !utils.VerifyAdminPassword(h.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, "admin", utils.RoleAdmin, h.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": tok.Token, "expires_at": tok.Exp})
}

// Sweep handles POST /v1/admin/sweep.
func (h *AdminHandler) Sweep(c echo.Context) error {
	n, err := h.Sweeper.RunOnce(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// SweeperStats handles GET /v1/admin/sweeper.
func (h *AdminHandler) SweeperStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Sweeper.Stats())
}

// ListOrders handles GET /v1/admin/orders?limit=N.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	orders, err := h.Orders.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// CheckIn handles POST /v1/admin/tickets/:itemId/check-in.  A ticket can
// be used once; a second scan is a 409.
func (h *AdminHandler) CheckIn(c echo.Context) error {
	item, err := h.Orders.CheckIn(c.Request().Context(), c.Param("itemId"), h.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": item})
}
