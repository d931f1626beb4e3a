package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/repository"
	"github.com/iliyamo/seat-hold/internal/reservation"
)

type stubReleaser struct {
	mu    sync.Mutex
	calls int
	n     int64
	err   error
}

func (s *stubReleaser) ReleaseExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.n, s.err
}

func (s *stubReleaser) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSweeper_RunOnceAgainstEngine(t *testing.T) {
	now := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Second), now.Add(time.Minute)
	sess := "s"
	store := repository.NewMemorySeatStore(
		model.Seat{ID: "a", Status: model.SeatHeld, HoldExpiry: &past, HeldBy: &sess},
		model.Seat{ID: "b", Status: model.SeatHeld, HoldExpiry: &now, HeldBy: &sess},
		model.Seat{ID: "c", Status: model.SeatHeld, HoldExpiry: &future, HeldBy: &sess},
	)
	engine := reservation.NewEngine(store, time.Minute, reservation.WithClock(func() time.Time { return now }))
	s := NewSweeper(engine, SweeperConfig{}, nil)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	st := s.Stats()
	assert.EqualValues(t, 2, st.Runs)
	assert.EqualValues(t, 2, st.TotalReleased)
	assert.Zero(t, st.LastReleased)
	assert.False(t, st.Running)
	assert.Equal(t, "1m0s", st.Interval)

	seat, _ := store.Get("c")
	assert.Equal(t, model.SeatHeld, seat.Status)
}

func TestSweeper_RecordsErrors(t *testing.T) {
	r := &stubReleaser{err: errors.New("db down")}
	s := NewSweeper(r, SweeperConfig{}, nil)

	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "db down", s.Stats().LastError)

	r.err, r.n = nil, 3
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	st := s.Stats()
	assert.Empty(t, st.LastError)
	assert.EqualValues(t, 3, st.TotalReleased)
}

func TestSweeper_StartSweepsPeriodically(t *testing.T) {
	r := &stubReleaser{n: 1}
	s := NewSweeper(r, SweeperConfig{Interval: 5 * time.Millisecond}, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return r.Calls() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, s.Stats().Running)
	s.Stop()
	assert.False(t, s.Stats().Running)
}
