package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/repository"
	"github.com/iliyamo/seat-hold/internal/reservation"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store  *repository.MemorySeatStore
	engine *reservation.Engine
	clock  *fakeClock
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	seats := make([]model.Seat, n)
	for i := range seats {
		seats[i] = model.Seat{ID: fmt.Sprintf("s%d", i+1), ZoneID: "vip", RowNumber: 1, SeatNumber: i + 1, Status: model.SeatAvailable}
	}
	store := repository.NewMemorySeatStore(seats...)
	clock := newClock()
	return &fixture{
		store:  store,
		engine: reservation.NewEngine(store, 10*time.Minute, reservation.WithClock(clock.Now)),
		clock:  clock,
	}
}

func (f *fixture) cart(session string) *Cart {
	return New(session, f.engine, WithClock(f.clock.Now))
}

func TestAdd_AppendsOnlyGrantedHolds(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	alice, bob := f.cart("alice"), f.cart("bob")

	res, err := alice.Add(ctx, "s1", "vip", 5000)
	require.NoError(t, err)
	assert.Equal(t, reservation.Held, res.Outcome)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), res.Hold.ExpiresAt)

	res, err = bob.Add(ctx, "s1", "vip", 5000)
	require.NoError(t, err)
	assert.Equal(t, reservation.Conflict, res.Outcome)
	assert.Zero(t, bob.ItemCount())

	assert.Equal(t, 1, alice.ItemCount())
	assert.EqualValues(t, 5000, alice.TotalPrice())
}

func TestAdd_DuplicateIsNoop(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")

	_, err := c.Add(ctx, "s1", "vip", 5000)
	require.NoError(t, err)
	res, err := c.Add(ctx, "s1", "vip", 5000)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, c.ItemCount())
}

func TestAdd_UnknownSeat(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.cart("alice").Add(context.Background(), "nope", "vip", 1)
	assert.ErrorIs(t, err, reservation.ErrSeatNotFound)
}

func TestItems_KeepInsertionOrder(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	c := f.cart("alice")
	for _, id := range []string{"s3", "s1", "s2"} {
		_, err := c.Add(ctx, id, "vip", 100)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"s3", "s1", "s2"}, c.SeatIDs())
	assert.EqualValues(t, 300, c.TotalPrice())
}

// Every seat in any cart is held by that cart's session in the store.
func TestConcurrentCarts_NeverShareASeat(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	carts := make([]*Cart, 6)
	for i := range carts {
		carts[i] = f.cart(fmt.Sprintf("sess-%d", i))
	}

	var wg sync.WaitGroup
	for _, c := range carts {
		wg.Add(1)
		go func(c *Cart) {
			defer wg.Done()
			for i := 1; i <= 5; i++ {
				_, err := c.Add(ctx, fmt.Sprintf("s%d", i), "vip", 100)
				assert.NoError(t, err)
			}
		}(c)
	}
	wg.Wait()

	total := 0
	for _, c := range carts {
		for _, id := range c.SeatIDs() {
			seat, ok := f.store.Get(id)
			require.True(t, ok)
			assert.True(t, seat.IsHeldBy(c.Session(), f.clock.Now()), "seat %s not held by %s", id, c.Session())
			total++
		}
	}
	assert.Equal(t, 5, total)
}

func TestRemove_ReleasesSeat(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)

	require.NoError(t, c.Remove(ctx, "s1"))
	assert.Zero(t, c.ItemCount())
	seat, _ := f.store.Get("s1")
	assert.Equal(t, model.SeatAvailable, seat.Status)
}

func TestRemove_StoreFaultStillDropsLocally(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)

	f.store.FailWith = errors.New("connection reset")
	err = c.Remove(ctx, "s1")
	assert.ErrorIs(t, err, reservation.ErrStoreUnavailable)
	assert.Zero(t, c.ItemCount())
}

func TestTick_DropsExpiredHolds(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	_, err = c.Add(ctx, "s2", "vip", 100)
	require.NoError(t, err)

	assert.Empty(t, c.Tick(f.clock.Now()))

	f.clock.Advance(5 * time.Minute)
	// s1 expires exactly now.
	assert.Equal(t, []string{"s1"}, c.Tick(f.clock.Now()))
	assert.Equal(t, []string{"s2"}, c.SeatIDs())
}

func TestCountdown_UrgencyBoundary(t *testing.T) {
	f := newFixture(t, 1)
	c := f.cart("alice")
	_, err := c.Add(context.Background(), "s1", "vip", 100)
	require.NoError(t, err)
	exp := c.Items()[0].ExpiresAt

	cd := c.Countdown(exp.Add(-120000 * time.Millisecond))
	assert.False(t, cd.Urgent)
	assert.True(t, cd.Active)
	assert.EqualValues(t, 120000, cd.RemainingMS)

	cd = c.Countdown(exp.Add(-119999 * time.Millisecond))
	assert.True(t, cd.Urgent)
	assert.EqualValues(t, 119999, cd.RemainingMS)

	cd = c.Countdown(exp)
	assert.False(t, cd.Urgent)
	assert.False(t, cd.Active)
	assert.Zero(t, cd.Remaining)

	cd = c.Countdown(exp.Add(time.Minute))
	assert.Zero(t, cd.RemainingMS)
}

func TestCountdown_SoonestHoldGoverns(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)
	f.clock.Advance(3 * time.Minute)
	_, err = c.Add(ctx, "s2", "vip", 100)
	require.NoError(t, err)

	cd := c.Countdown(f.clock.Now())
	assert.Equal(t, 7*time.Minute, cd.Remaining)
}

func TestCountdown_EmptyCart(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, Countdown{}, f.cart("alice").Countdown(f.clock.Now()))
}

func TestReconcile_DropsSeatsLostInStore(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	c := f.cart("alice")
	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := c.Add(ctx, id, "vip", 100)
		require.NoError(t, err)
	}

	// s2 swept after expiry and grabbed by bob; s3 sold elsewhere.
	seat, _ := f.store.Get("s2")
	bob := "bob"
	exp := f.clock.Now().Add(time.Hour)
	seat.HeldBy, seat.HoldExpiry = &bob, &exp
	f.store.Put(seat)
	sold, _ := f.store.Get("s3")
	sold.Status, sold.HeldBy, sold.HoldExpiry = model.SeatSold, nil, nil
	f.store.Put(sold)

	dropped, err := c.Reconcile(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s2", "s3"}, dropped)
	assert.Equal(t, []string{"s1"}, c.SeatIDs())

	dropped, err = c.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, dropped)
}

func TestReconcile_StoreFaultKeepsCart(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)

	f.store.FailWith = errors.New("timeout")
	_, err = c.Reconcile(ctx)
	assert.ErrorIs(t, err, reservation.ErrStoreUnavailable)
	assert.Equal(t, 1, c.ItemCount())
}

func TestExtendAll_RefreshesAndDropsLost(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	c := f.cart("alice")
	for _, id := range []string{"s1", "s2"} {
		_, err := c.Add(ctx, id, "vip", 100)
		require.NoError(t, err)
	}
	// Released behind the cart's back.
	require.NoError(t, f.engine.Release(ctx, "alice", "s2"))

	f.clock.Advance(4 * time.Minute)
	dropped, err := c.ExtendAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, dropped)
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), items[0].ExpiresAt)
}

func TestExtend_SingleSeat(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	c := f.cart("alice")
	for _, id := range []string{"s1", "s2"} {
		_, err := c.Add(ctx, id, "vip", 100)
		require.NoError(t, err)
	}

	f.clock.Advance(9 * time.Minute)
	res, err := c.Extend(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, res.Extended)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), items[0].ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(time.Minute), items[1].ExpiresAt)
}

func TestExtend_DropsRefusedHold(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	res, err := c.Extend(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, res.Extended)
	assert.Zero(t, c.ItemCount())

	_, err = c.Extend(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotInCart)
}

func TestExpire_ReleasesOnlyLapsedStoreHolds(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	c := f.cart("alice")
	for _, id := range []string{"s1", "s2"} {
		_, err := c.Add(ctx, id, "vip", 100)
		require.NoError(t, err)
	}
	f.clock.Advance(5 * time.Minute)
	_, err := f.engine.Extend(ctx, "alice", "s1")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	dropped, err := c.Expire(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, dropped)
	assert.Equal(t, []string{"s1"}, c.SeatIDs())

	s1, _ := f.store.Get("s1")
	assert.Equal(t, model.SeatHeld, s1.Status)
	s2, _ := f.store.Get("s2")
	assert.Equal(t, model.SeatAvailable, s2.Status)
}

func TestExpire_StoreFaultKeepsCart(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	f.store.FailWith = errors.New("timeout")
	dropped, err := c.Expire(ctx, f.clock.Now())
	assert.ErrorIs(t, err, reservation.ErrStoreUnavailable)
	assert.Empty(t, dropped)
	assert.Equal(t, 1, c.ItemCount())
}

func TestAbandon_ReleasesEverything(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	c := f.cart("alice")
	for _, id := range []string{"s1", "s2"} {
		_, err := c.Add(ctx, id, "vip", 100)
		require.NoError(t, err)
	}
	require.NoError(t, c.Abandon(ctx))
	assert.Zero(t, c.ItemCount())
	for _, id := range []string{"s1", "s2"} {
		seat, _ := f.store.Get(id)
		assert.Equal(t, model.SeatAvailable, seat.Status)
	}
}

func TestClear_KeepsStoreUntouched(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	c := f.cart("alice")
	_, err := c.Add(ctx, "s1", "vip", 100)
	require.NoError(t, err)
	c.Clear()
	assert.Zero(t, c.ItemCount())
	seat, _ := f.store.Get("s1")
	assert.Equal(t, model.SeatHeld, seat.Status)
}
