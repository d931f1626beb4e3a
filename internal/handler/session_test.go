package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold/internal/middleware"
	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/utils"
)

func TestSession_OpenAndClose(t *testing.T) {
	v := newEnv(t)
	sh := NewSessionHandler(v.carts, "k", time.Hour)
	v.e.POST("/v1/sessions", sh.Open)
	v.e.DELETE("/v1/sessions", sh.Close, middleware.JWTAuth("k"))

	rec := v.do(http.MethodPost, "/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	sid := body["session_id"].(string)
	claims, err := utils.ParseAccessToken("k", body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, sid, claims.Subject)
	assert.Equal(t, utils.RoleShopper, claims.Role)

	require.Equal(t, http.StatusCreated, v.do(http.MethodPost, "/v1/cart/items", sid, `{"seat_id":"a1"}`).Code)

	rec = doAuth(v, http.MethodDelete, "/v1/sessions", body["access_token"].(string))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	seat, _ := v.store.Get("a1")
	assert.Equal(t, model.SeatAvailable, seat.Status)

	rec = doAuth(v, http.MethodDelete, "/v1/sessions", body["access_token"].(string))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func doAuth(v *env, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}
