package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZone(t *testing.T) {
	s, err := parseZone("VIP:15000:5:20:#d4af37")
	require.NoError(t, err)
	assert.Equal(t, "VIP", s.zone.Name)
	assert.EqualValues(t, 15000, s.zone.Price)
	assert.Equal(t, "#d4af37", s.zone.Color)
	assert.Equal(t, 5, s.rows)
	assert.Equal(t, 20, s.seats)

	for _, bad := range []string{"VIP", "VIP:x:1:1", "VIP:1:0:1", "VIP:1:1:-1", "a:1:1:1:c:extra"} {
		_, err := parseZone(bad)
		assert.Error(t, err, bad)
	}
}

func TestSeatsFor(t *testing.T) {
	seats := seatsFor("z", 2, 3)
	require.Len(t, seats, 6)
	assert.Equal(t, 2, seats[5].RowNumber)
	assert.Equal(t, 3, seats[5].SeatNumber)
	assert.NotEqual(t, seats[0].ID, seats[1].ID)
}
