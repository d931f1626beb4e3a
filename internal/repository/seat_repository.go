package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"strings"      // strings builds IN lists
	"time"

	"github.com/iliyamo/seat-hold/internal/model"
)

// SeatRepo is the MySQL implementation of SeatStore.  Reads live in this
// file; guarded status transitions live in seat_hold_repository.go.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.  The handle
// must be opened with clientFoundRows=true (see database.Open) so that
// RowsAffected counts matched rows rather than changed rows.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, zone_id, row_no, seat_no, status, hold_expiry, held_by`

// CreateBulk inserts multiple available seats in a single statement.  It is
// used by venue setup tooling; the status column defaults to available.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (id, zone_id, row_no, seat_no) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, seat.ID, seat.ZoneID, seat.RowNumber, seat.SeatNumber)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Read returns the current state of the named seats.  Seats that do not
// exist are simply absent from the result.
func (r *SeatRepo) Read(ctx context.Context, seatIDs []string) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, q, stringArgs(seatIDs)...)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// ListByZone returns every seat of a zone ordered by row then seat number.
func (r *SeatRepo) ListByZone(ctx context.Context, zoneID string) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE zone_id = ? ORDER BY row_no, seat_no`
	rows, err := r.db.QueryContext(ctx, q, zoneID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(sc scanner) (model.Seat, error) {
	var (
		s      model.Seat
		status string
		expiry sql.NullTime
		holder sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.ZoneID, &s.RowNumber, &s.SeatNumber, &status, &expiry, &holder); err != nil {
		return model.Seat{}, err
	}
	st, err := model.ParseSeatStatus(status)
	if err != nil {
		return model.Seat{}, err
	}
	s.Status = st
	if expiry.Valid {
		t := expiry.Time.UTC()
		s.HoldExpiry = &t
	}
	if holder.Valid {
		h := holder.String
		s.HeldBy = &h
	}
	return s, nil
}

// collectSeats drains rows and closes them.
func collectSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// utc normalises t before it is bound; the DSN uses loc=UTC.
func utc(t time.Time) time.Time { return t.UTC() }
