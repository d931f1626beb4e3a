package cart

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/scheduler"
)

// ErrUnknownSession is returned for a session id the registry does not
// track, either never opened or already closed or evicted.
var ErrUnknownSession = errors.New("unknown cart session")

// RegistryConfig holds the timing knobs of a Registry.
type RegistryConfig struct {
	TickInterval      time.Duration // how often expired holds are dropped
	ReconcileInterval time.Duration // how often carts are checked against the store
	IdleTTL           time.Duration // empty carts untouched this long are evicted
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 15 * time.Second
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	return c
}

// Registry owns the carts of all live sessions and drives their periodic
// maintenance.
type Registry struct {
	holder Holder
	cfg    RegistryConfig
	now    func() time.Time
	log    *zap.Logger

	mu    sync.RWMutex
	carts map[string]*Cart
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock replaces time.Now for the registry and its carts.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithRegistryLogger attaches a logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry builds an empty registry.
func NewRegistry(holder Holder, cfg RegistryConfig, opts ...RegistryOption) *Registry {
	if holder == nil {
		panic("nil holder passed to NewRegistry")
	}
	r := &Registry{
		holder: holder,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		log:    zap.NewNop(),
		carts:  make(map[string]*Cart),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Open starts a new session with an empty cart.
func (r *Registry) Open() *Cart {
	c := New(uuid.NewString(), r.holder, WithClock(r.now))
	r.mu.Lock()
	r.carts[c.Session()] = c
	r.mu.Unlock()
	r.log.Debug("cart session opened", zap.String("session", c.Session()))
	return c
}

// Get returns the cart of session and marks it as used.
func (r *Registry) Get(session string) (*Cart, error) {
	r.mu.RLock()
	c, ok := r.carts[session]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSession
	}
	c.Touch()
	return c, nil
}

// Close releases every hold of session and forgets the cart.
func (r *Registry) Close(ctx context.Context, session string) error {
	r.mu.Lock()
	c, ok := r.carts[session]
	delete(r.carts, session)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	r.log.Debug("cart session closed", zap.String("session", session))
	return c.Abandon(ctx)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// TickAll expires lapsed holds in every cart (see Cart.Expire) and evicts
// idle sessions.
func (r *Registry) TickAll(ctx context.Context) {
	now := r.now()
	for _, c := range r.snapshot() {
		dropped, err := c.Expire(ctx, now)
		if err != nil {
			r.log.Warn("expiring cart holds failed", zap.String("session", c.Session()), zap.Error(err))
		}
		if len(dropped) > 0 {
			r.log.Debug("expired holds dropped",
				zap.String("session", c.Session()), zap.Strings("seat_ids", dropped))
		}
	}
	r.evictIdle(now)
}

// ReconcileAll reconciles every cart with the store.  A failing cart is
// logged and skipped.
func (r *Registry) ReconcileAll(ctx context.Context) {
	for _, c := range r.snapshot() {
		dropped, err := c.Reconcile(ctx)
		if err != nil {
			r.log.Warn("cart reconcile failed", zap.String("session", c.Session()), zap.Error(err))
			continue
		}
		if len(dropped) > 0 {
			r.log.Info("cart reconciled",
				zap.String("session", c.Session()), zap.Strings("dropped_seat_ids", dropped))
		}
	}
}

// Run ticks and reconciles until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	tick := scheduler.New("cart-tick", r.cfg.TickInterval, r.TickAll, scheduler.WithLogger(r.log))
	rec := scheduler.New("cart-reconcile", r.cfg.ReconcileInterval, r.ReconcileAll, scheduler.WithLogger(r.log))
	if err := tick.Start(ctx); err != nil {
		return err
	}
	if err := rec.Start(ctx); err != nil {
		tick.Stop()
		return err
	}
	<-ctx.Done()
	tick.Stop()
	rec.Stop()
	return nil
}

func (r *Registry) evictIdle(now time.Time) {
	cutoff := now.Add(-r.cfg.IdleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range sortedKeys(r.carts) {
		if r.carts[id].idleSince(cutoff) {
			delete(r.carts, id)
			r.log.Debug("idle cart evicted", zap.String("session", id))
		}
	}
}

func (r *Registry) snapshot() []*Cart {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Cart, 0, len(r.carts))
	for _, id := range sortedKeys(r.carts) {
		out = append(out, r.carts[id])
	}
	return out
}

func sortedKeys(m map[string]*Cart) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
