package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/seat-hold/internal/model"
)

// CatalogRepo reads the static part of the venue: zones and their prices,
// and seat positions joined to zones.  Seat status is read through the
// same rows but is owned by SeatRepo.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to db.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const zoneColumns = `id, event_id, name, price, color, created_at`

func scanZone(sc scanner) (model.Zone, error) {
	var z model.Zone
	err := sc.Scan(&z.ID, &z.EventID, &z.Name, &z.Price, &z.Color, &z.CreatedAt)
	return z, err
}

// ZonesByEvent lists an event's zones, most expensive first.
func (r *CatalogRepo) ZonesByEvent(ctx context.Context, eventID string) ([]model.Zone, error) {
	const q = `SELECT ` + zoneColumns + ` FROM zones WHERE event_id = ? ORDER BY price DESC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	zones := []model.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// CreateZone inserts a zone.  A missing id is generated and z is updated
// in place.
func (r *CatalogRepo) CreateZone(ctx context.Context, z *model.Zone) error {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	if z.CreatedAt.IsZero() {
		z.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO zones (` + zoneColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, z.ID, z.EventID, z.Name, z.Price, z.Color, z.CreatedAt)
	return err
}

// ZoneByID returns one zone or ErrNotFound.
func (r *CatalogRepo) ZoneByID(ctx context.Context, id string) (model.Zone, error) {
	const q = `SELECT ` + zoneColumns + ` FROM zones WHERE id = ?`
	z, err := scanZone(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Zone{}, ErrNotFound
	}
	return z, err
}

// SeatWithZone loads a seat together with the zone that prices it.
func (r *CatalogRepo) SeatWithZone(ctx context.Context, seatID string) (model.Seat, model.Zone, error) {
	const q = `SELECT s.id, s.zone_id, s.row_no, s.seat_no, s.status, s.hold_expiry, s.held_by,
	                  z.id, z.event_id, z.name, z.price, z.color, z.created_at
	           FROM seats s JOIN zones z ON z.id = s.zone_id
	           WHERE s.id = ?`
	var (
		s      model.Seat
		z      model.Zone
		status string
		expiry sql.NullTime
		holder sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, seatID).Scan(
		&s.ID, &s.ZoneID, &s.RowNumber, &s.SeatNumber, &status, &expiry, &holder,
		&z.ID, &z.EventID, &z.Name, &z.Price, &z.Color, &z.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, model.Zone{}, ErrNotFound
	}
	if err != nil {
		return model.Seat{}, model.Zone{}, err
	}
	if s.Status, err = model.ParseSeatStatus(status); err != nil {
		return model.Seat{}, model.Zone{}, err
	}
	if expiry.Valid {
		t := expiry.Time.UTC()
		s.HoldExpiry = &t
	}
	if holder.Valid {
		h := holder.String
		s.HeldBy = &h
	}
	return s, z, nil
}

// SeatPrices returns the zone price of every named seat that exists.
// Unknown seats are absent from the map.
func (r *CatalogRepo) SeatPrices(ctx context.Context, seatIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(seatIDs))
	if len(seatIDs) == 0 {
		return out, nil
	}
	q := `SELECT s.id, z.price FROM seats s JOIN zones z ON z.id = s.zone_id
	      WHERE s.id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, q, stringArgs(seatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    string
			price int64
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		out[id] = price
	}
	return out, rows.Err()
}
