package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/config"
	"github.com/iliyamo/seat-hold/internal/handler"
	"github.com/iliyamo/seat-hold/internal/middleware"
	"github.com/iliyamo/seat-hold/internal/utils"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Session  *handler.SessionHandler
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Admin    *handler.AdminHandler
}

// Options carries the cross-cutting pieces routes are wrapped in.  A nil
// Redis client disables caching and rate limiting.
type Options struct {
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *zap.Logger
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", handler.Health)

	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis, opt.Log)

	// Public catalog; the seat map changes with every hold so it gets the
	// short TTL.
	e.GET("/v1/events/:id/zones", h.Catalog.ListZones, middleware.NewRedisCache(opt.Cache, opt.Redis, opt.Cache.TTL))
	e.GET("/v1/zones/:id/seats", h.Catalog.ListSeats, middleware.NewRedisCache(opt.Cache, opt.Redis, opt.Cache.SeatMapTTL))

	e.POST("/v1/sessions", h.Session.Open, limit)

	shop := e.Group("/v1",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(utils.RoleShopper),
	)
	shop.DELETE("/sessions", h.Session.Close)
	shop.GET("/cart", h.Cart.Get)
	shop.POST("/cart/items", h.Cart.AddItem, limit)
	shop.DELETE("/cart/items/:seatId", h.Cart.RemoveItem)
	shop.POST("/cart/items/:seatId/extend", h.Cart.ExtendItem)
	shop.POST("/cart/extend", h.Cart.Extend)
	shop.POST("/cart/reconcile", h.Cart.Reconcile)
	shop.POST("/checkout", h.Checkout.Checkout, limit)

	e.POST("/v1/admin/login", h.Admin.Login, limit)
	admin := e.Group("/v1/admin",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	admin.POST("/sweep", h.Admin.Sweep)
	admin.GET("/sweeper", h.Admin.SweeperStats)
	admin.GET("/orders", h.Admin.ListOrders)
	admin.POST("/tickets/:itemId/check-in", h.Admin.CheckIn)
}
