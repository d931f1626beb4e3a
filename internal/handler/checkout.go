package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold/internal/cart"
	"github.com/iliyamo/seat-hold/internal/checkout"
	"github.com/iliyamo/seat-hold/internal/middleware"
	"github.com/iliyamo/seat-hold/internal/model"
)

// Checkouter is satisfied by *checkout.Finalizer.
type Checkouter interface {
	Checkout(ctx context.Context, session string, cust checkout.Customer, seatIDs []string) (model.Order, error)
}

// CheckoutHandler sells the current cart.
type CheckoutHandler struct {
	Carts     *cart.Registry
	Finalizer Checkouter
}

func NewCheckoutHandler(carts *cart.Registry, f Checkouter) *CheckoutHandler {
	if carts == nil || f == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Carts: carts, Finalizer: f}
}

// Checkout handles POST /v1/checkout.  The body carries the customer; the
// seats are whatever the cart holds.  On success the cart is emptied; on a
// partial failure the cart is reconciled so the shopper sees which seats
// were lost.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ct, err := h.Carts.Get(middleware.SessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	var cust checkout.Customer
	if err := c.Bind(&cust); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	order, err := h.Finalizer.Checkout(ctx, ct.Session(), cust, ct.SeatIDs())
	if err != nil {
		var pf *checkout.PartialFailureError
		if errors.As(err, &pf) {
			if _, rerr := ct.Reconcile(ctx); rerr != nil {
				c.Logger().Warn(rerr)
			}
		}
		return writeError(c, err)
	}
	ct.Clear()
	return c.JSON(http.StatusCreated, echo.Map{"order": order})
}
