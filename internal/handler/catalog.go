package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold/internal/model"
)

// ZoneReader is satisfied by *repository.CatalogRepo.
type ZoneReader interface {
	ZonesByEvent(ctx context.Context, eventID string) ([]model.Zone, error)
	ZoneByID(ctx context.Context, id string) (model.Zone, error)
}

// SeatLister is satisfied by *repository.SeatRepo.
type SeatLister interface {
	ListByZone(ctx context.Context, zoneID string) ([]model.Seat, error)
}

// CatalogHandler serves the public venue map.
type CatalogHandler struct {
	Zones ZoneReader
	Seats SeatLister
	Now   func() time.Time
}

func NewCatalogHandler(zones ZoneReader, seats SeatLister) *CatalogHandler {
	if zones == nil || seats == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Zones: zones, Seats: seats, Now: time.Now}
}

// seatView hides the holder; a lapsed hold is shown as available.
type seatView struct {
	ID         string           `json:"id"`
	RowNumber  int              `json:"row_number"`
	SeatNumber int              `json:"seat_number"`
	Status     model.SeatStatus `json:"status"`
}

// ListZones handles GET /v1/events/:id/zones.
func (h *CatalogHandler) ListZones(c echo.Context) error {
	zones, err := h.Zones.ZonesByEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"zones": zones})
}

// ListSeats handles GET /v1/zones/:id/seats.
func (h *CatalogHandler) ListSeats(c echo.Context) error {
	ctx := c.Request().Context()
	zone, err := h.Zones.ZoneByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	seats, err := h.Seats.ListByZone(ctx, zone.ID)
	if err != nil {
		return writeError(c, err)
	}
	now := h.Now()
	out := make([]seatView, len(seats))
	for i, s := range seats {
		st := s.Status
		if st == model.SeatHeld && (s.HoldExpiry == nil || !s.HoldExpiry.After(now)) {
			st = model.SeatAvailable
		}
		out[i] = seatView{ID: s.ID, RowNumber: s.RowNumber, SeatNumber: s.SeatNumber, Status: st}
	}
	return c.JSON(http.StatusOK, echo.Map{"zone": zone, "seats": out})
}
