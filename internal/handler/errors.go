package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold/internal/cart"
	"github.com/iliyamo/seat-hold/internal/checkout"
	"github.com/iliyamo/seat-hold/internal/repository"
	"github.com/iliyamo/seat-hold/internal/reservation"
)

// writeError maps domain errors to status codes.  Anything unrecognised is
// a 500 with a generic message.
func writeError(c echo.Context, err error) error {
	var pf *checkout.PartialFailureError
	switch {
	case errors.As(err, &pf):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           "some seats are no longer held",
			"failed_seat_ids": pf.SeatIDs,
		})
	case errors.Is(err, reservation.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat store unavailable, retry"})
	case errors.Is(err, reservation.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, cart.ErrNotInCart):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not in cart"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, cart.ErrUnknownSession), errors.Is(err, reservation.ErrNoSession):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
	case errors.Is(err, reservation.ErrEmptyBatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
	case errors.Is(err, checkout.ErrInvalidCustomer):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
