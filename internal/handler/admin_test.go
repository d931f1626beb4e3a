package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/reservation"
	"github.com/iliyamo/seat-hold/internal/utils"
	"github.com/iliyamo/seat-hold/internal/worker"
)

type stubSweeper struct {
	n   int64
	err error
}

func (s *stubSweeper) RunOnce(context.Context) (int64, error) { return s.n, s.err }
func (s *stubSweeper) Stats() worker.SweeperStats {
	return worker.SweeperStats{Runs: 4, TotalReleased: 9, Interval: "1m0s"}
}

func newAdmin(t *testing.T, sw *stubSweeper, orders *orderBook) (*echo.Echo, *AdminHandler) {
	t.Helper()
	hash, err := utils.HashAdminPassword("letmein-now", bcrypt.MinCost)
	require.NoError(t, err)
	h := NewAdminHandler(sw, orders, "k", hash, time.Minute)
	e := echo.New()
	e.POST("/login", h.Login)
	e.POST("/sweep", h.Sweep)
	e.GET("/sweeper", h.SweeperStats)
	e.GET("/orders", h.ListOrders)
	e.POST("/tickets/:itemId/check-in", h.CheckIn)
	return e, h
}

func call(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdmin_Login(t *testing.T) {
	e, _ := newAdmin(t, &stubSweeper{}, &orderBook{orders: map[string]*model.Order{}})

	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/login", `{"password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/login", `{}`).Code)

	rec := call(e, http.MethodPost, "/login", `{"password":"letmein-now"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode(t, rec)["access_token"].(string)
	claims, err := utils.ParseAccessToken("k", tok)
	require.NoError(t, err)
	assert.Equal(t, utils.RoleAdmin, claims.Role)
}

func TestAdmin_LoginDisabledWithoutHash(t *testing.T) {
	e, h := newAdmin(t, &stubSweeper{}, &orderBook{orders: map[string]*model.Order{}})
	h.PasswordHash = ""
	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/login", `{"password":"letmein-now"}`).Code)
}

func TestAdmin_SweepAndStats(t *testing.T) {
	sw := &stubSweeper{n: 3}
	e, _ := newAdmin(t, sw, &orderBook{orders: map[string]*model.Order{}})

	rec := call(e, http.MethodPost, "/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["released"])

	sw.err = errors.Join(reservation.ErrStoreUnavailable, errors.New("down"))
	assert.Equal(t, http.StatusServiceUnavailable, call(e, http.MethodPost, "/sweep", "").Code)

	rec = call(e, http.MethodGet, "/sweeper", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 9, decode(t, rec)["total_released"])
}

func TestAdmin_OrdersAndCheckIn(t *testing.T) {
	orders := &orderBook{orders: map[string]*model.Order{}}
	o := &model.Order{Items: []model.OrderItem{{SeatID: "a1", Price: 5000}}}
	require.NoError(t, orders.CreatePending(context.Background(), o))
	require.NoError(t, orders.SetStatus(context.Background(), o.ID, model.OrderPending, model.OrderCompleted))
	itemID := orders.orders[o.ID].Items[0].ID
	e, _ := newAdmin(t, &stubSweeper{}, orders)

	rec := call(e, http.MethodGet, "/orders?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["orders"], 1)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodGet, "/orders?limit=x", "").Code)

	assert.Equal(t, http.StatusOK, call(e, http.MethodPost, "/tickets/"+itemID+"/check-in", "").Code)
	assert.Equal(t, http.StatusConflict, call(e, http.MethodPost, "/tickets/"+itemID+"/check-in", "").Code)
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodPost, "/tickets/nope/check-in", "").Code)
}
