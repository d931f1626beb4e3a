// Command seed creates the zones and seats of one event.
//
//	seed -event ev-2025 -zone "VIP:15000:5:20:#d4af37" -zone "Floor:8000:20:30:#4a90d9"
//
// Each -zone is name:price:rows:seats_per_row[:color]; price is in minor
// units.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/config"
	"github.com/iliyamo/seat-hold/internal/database"
	"github.com/iliyamo/seat-hold/internal/logger"
	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/repository"
)

type zoneSpecs []zoneSpec

type zoneSpec struct {
	zone  model.Zone
	rows  int
	seats int
}

func (z *zoneSpecs) String() string { return fmt.Sprint(len(*z)) }

func (z *zoneSpecs) Set(v string) error {
	s, err := parseZone(v)
	if err != nil {
		return err
	}
	*z = append(*z, s)
	return nil
}

func parseZone(v string) (zoneSpec, error) {
	parts := strings.Split(v, ":")
	if len(parts) < 4 || len(parts) > 5 {
		return zoneSpec{}, fmt.Errorf("zone %q: want name:price:rows:seats[:color]", v)
	}
	price, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || price < 0 {
		return zoneSpec{}, fmt.Errorf("zone %q: bad price", v)
	}
	rows, err := strconv.Atoi(parts[2])
	if err != nil || rows <= 0 {
		return zoneSpec{}, fmt.Errorf("zone %q: bad rows", v)
	}
	seats, err := strconv.Atoi(parts[3])
	if err != nil || seats <= 0 {
		return zoneSpec{}, fmt.Errorf("zone %q: bad seats per row", v)
	}
	s := zoneSpec{zone: model.Zone{Name: parts[0], Price: price}, rows: rows, seats: seats}
	if len(parts) == 5 {
		s.zone.Color = parts[4]
	}
	return s, nil
}

// seatsFor lays out rows*perRow available seats of one zone.
func seatsFor(zoneID string, rows, perRow int) []model.Seat {
	out := make([]model.Seat, 0, rows*perRow)
	for r := 1; r <= rows; r++ {
		for n := 1; n <= perRow; n++ {
			out = append(out, model.Seat{
				ID:         uuid.NewString(),
				ZoneID:     zoneID,
				RowNumber:  r,
				SeatNumber: n,
				Status:     model.SeatAvailable,
			})
		}
	}
	return out
}

func main() {
	var zones zoneSpecs
	event := flag.String("event", "", "event id the zones belong to")
	flag.Var(&zones, "zone", "zone as name:price:rows:seats[:color], repeatable")
	flag.Parse()
	if *event == "" || len(zones) == 0 {
		flag.Usage()
		log.Fatal("seed: -event and at least one -zone are required")
	}

	config.LoadDotEnv()
	cfg := config.Load()
	if err := logger.Init(&logger.Config{Level: cfg.LogLevel, ServiceName: "seat-seed", Development: true}); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	catalog := repository.NewCatalogRepo(db)
	seats := repository.NewSeatRepo(db)
	for _, z := range zones {
		z.zone.EventID = *event
		if err := catalog.CreateZone(ctx, &z.zone); err != nil {
			lg.Fatal("create zone failed", zap.String("zone", z.zone.Name), zap.Error(err))
		}
		if err := seats.CreateBulk(ctx, seatsFor(z.zone.ID, z.rows, z.seats)); err != nil {
			lg.Fatal("create seats failed", zap.String("zone", z.zone.Name), zap.Error(err))
		}
		lg.Info("zone seeded", zap.String("zone_id", z.zone.ID), zap.String("name", z.zone.Name), zap.Int("seats", z.rows*z.seats))
	}
}
