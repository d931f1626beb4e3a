package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold/internal/cart"
	"github.com/iliyamo/seat-hold/internal/middleware"
	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/reservation"
)

// SeatLocator resolves a seat and its pricing zone; satisfied by
// *repository.CatalogRepo.
type SeatLocator interface {
	SeatWithZone(ctx context.Context, seatID string) (model.Seat, model.Zone, error)
}

// CartHandler exposes the shopper's cart.  All routes require a SHOPPER
// token; the token subject selects the cart.
type CartHandler struct {
	Carts *cart.Registry
	Seats SeatLocator
	Now   func() time.Time
}

func NewCartHandler(carts *cart.Registry, seats SeatLocator) *CartHandler {
	if carts == nil || seats == nil {
		panic("nil dependency passed to NewCartHandler")
	}
	return &CartHandler{Carts: carts, Seats: seats, Now: time.Now}
}

type cartView struct {
	SessionID  string           `json:"session_id"`
	Items      []model.SeatHold `json:"items"`
	ItemCount  int              `json:"item_count"`
	TotalPrice int64            `json:"total_price"`
	Countdown  cart.Countdown   `json:"countdown"`
}

func (h *CartHandler) view(ct *cart.Cart) cartView {
	return cartView{
		SessionID:  ct.Session(),
		Items:      ct.Items(),
		ItemCount:  ct.ItemCount(),
		TotalPrice: ct.TotalPrice(),
		Countdown:  ct.Countdown(h.Now()),
	}
}

func (h *CartHandler) current(c echo.Context) (*cart.Cart, error) {
	return h.Carts.Get(middleware.SessionID(c))
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
	ct, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(ct))
}

// AddItem handles POST /v1/cart/items.  The price is taken from the
// seat's zone, never from the client.
func (h *CartHandler) AddItem(c echo.Context) error {
	ct, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		SeatID string `json:"seat_id"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.SeatID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id is required"})
	}
	ctx := c.Request().Context()
	seat, zone, err := h.Seats.SeatWithZone(ctx, body.SeatID)
	if err != nil {
		return writeError(c, err)
	}
	res, err := ct.Add(ctx, seat.ID, zone.ID, zone.Price)
	if err != nil {
		return writeError(c, err)
	}
	switch res.Outcome {
	case reservation.Held:
		status := http.StatusCreated
		if res.Duplicate {
			status = http.StatusOK
		}
		return c.JSON(status, echo.Map{"hold": res.Hold, "cart": h.view(ct)})
	case reservation.Conflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available", "seat_id": seat.ID})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected hold outcome"})
}

// RemoveItem handles DELETE /v1/cart/items/:seatId.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	ct, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := ct.Remove(c.Request().Context(), c.Param("seatId")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(ct))
}

// Extend handles POST /v1/cart/extend.
func (h *CartHandler) Extend(c echo.Context) error {
	ct, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	dropped, err := ct.ExtendAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dropped_seat_ids": nonNil(dropped), "cart": h.view(ct)})
}

// ExtendItem handles POST /v1/cart/items/:seatId/extend.  A hold the
// store no longer grants is dropped and reported with extended=false.
func (h *CartHandler) ExtendItem(c echo.Context) error {
	ct, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := ct.Extend(c.Request().Context(), c.Param("seatId"))
	if err != nil {
		return writeError(c, err)
	}
	out := echo.Map{"extended": res.Extended, "cart": h.view(ct)}
	if res.Extended {
		out["expires_at"] = res.ExpiresAt
	}
	return c.JSON(http.StatusOK, out)
}

// Reconcile handles POST /v1/cart/reconcile.
func (h *CartHandler) Reconcile(c echo.Context) error {
	ct, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	dropped, err := ct.Reconcile(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dropped_seat_ids": nonNil(dropped), "cart": h.view(ct)})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
