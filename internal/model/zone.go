package model

import "time"

// Zone groups seats of an event under a single price.
//
// Fields:
//
//	ID        – primary key (UUID string).
//	EventID   – event the zone belongs to.
//	Name      – display name.
//	Price     – price per seat in minor currency units.
//	Color     – colour used on the venue map.
//	CreatedAt – creation timestamp.
type Zone struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}
