package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/seat-hold/internal/model"
)

// MemorySeatStore is an in-memory SeatStore.  A single mutex makes every
// guarded write atomic, which gives it the same conditional-update
// semantics as SeatRepo.  It backs unit tests of the engine, cart and
// workers.
type MemorySeatStore struct {
	mu    sync.Mutex
	seats map[string]*model.Seat

	// FailWith, when set, is returned by every call to simulate an
	// unreachable store.
	FailWith error
}

// NewMemorySeatStore creates a store seeded with seats.
func NewMemorySeatStore(seats ...model.Seat) *MemorySeatStore {
	m := &MemorySeatStore{seats: make(map[string]*model.Seat, len(seats))}
	m.Put(seats...)
	return m
}

// Put inserts or replaces seats.
func (m *MemorySeatStore) Put(seats ...model.Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range seats {
		c := copySeat(s)
		m.seats[s.ID] = &c
	}
}

// Get returns a snapshot of one seat.
func (m *MemorySeatStore) Get(id string) (model.Seat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok {
		return model.Seat{}, false
	}
	return copySeat(*s), true
}

func (m *MemorySeatStore) ConditionalUpdate(_ context.Context, t Transition) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return false, m.FailWith
	}
	s, ok := m.seats[t.SeatID]
	if !ok || !t.Admits(*s) {
		return false, nil
	}
	t.Apply(s)
	return true, nil
}

func (m *MemorySeatStore) ConditionalUpdateAll(_ context.Context, ts []Transition) ([]string, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	if err := validateBatch(ts); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var failed []string
	for _, t := range ts {
		s, ok := m.seats[t.SeatID]
		if !ok || !t.Admits(*s) {
			failed = append(failed, t.SeatID)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}
	for _, t := range ts {
		t.Apply(m.seats[t.SeatID])
	}
	return nil, nil
}

func (m *MemorySeatStore) ReleaseExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	var n int64
	for _, s := range m.seats {
		if s.Status == model.SeatHeld && s.HoldExpiry != nil && !s.HoldExpiry.After(now) {
			s.Status = model.SeatAvailable
			s.HoldExpiry = nil
			s.HeldBy = nil
			n++
		}
	}
	return n, nil
}

func (m *MemorySeatStore) Read(_ context.Context, seatIDs []string) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		if s, ok := m.seats[id]; ok {
			out = append(out, copySeat(*s))
		}
	}
	return out, nil
}

func copySeat(s model.Seat) model.Seat {
	c := s
	if s.HoldExpiry != nil {
		t := *s.HoldExpiry
		c.HoldExpiry = &t
	}
	if s.HeldBy != nil {
		h := *s.HeldBy
		c.HeldBy = &h
	}
	return c
}

var _ SeatStore = (*MemorySeatStore)(nil)
