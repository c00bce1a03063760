package xsense

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/xsense-integration/internal/pkg/config"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

func newTestClient(t *testing.T, handler http.Handler) *client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	originalLogger := zap.L()
	zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Cleanup(func() {
		zap.ReplaceGlobals(originalLogger)
	})

	return New(config.XSenseConfig{
		APIURL:         srv.URL,
		Email:          "me@example.com",
		Password:       "secret",
		RequestTimeout: 5 * time.Second,
	})
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		req := loginRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, errorResponse{Message: "bad password"})
			return
		}
		writeJSON(w, loginResponse{Token: token, UserID: "user-1"})
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.Login(context.Background()))
	assert.True(t, c.Authenticated())
	assert.Equal(t, "user-1", c.UserID())

	c.cfg.Password = "wrong"
	err := c.Login(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "bad password")
	assert.False(t, c.Authenticated())
}

func TestExpiredTokenIsSessionExpired(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("GET /houses", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	c := newTestClient(t, mux)
	c.token = signedToken(t, time.Now().Add(-time.Minute))

	assert.False(t, c.Authenticated())
	_, err := c.LoadAll(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, called, "request must not be sent with an expired token")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrSessionExpired},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, want: ErrAPIFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			c.token = "opaque-token"

			err := c.HouseState(context.Background(), &model.House{ID: "h1"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadAllAndState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /houses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		writeJSON(w, housesResponse{Houses: []houseObject{{
			HouseID:    "H1",
			HouseName:  "Home",
			MQTTServer: "abc.iot.eu-central-1.amazonaws.com",
			Stations: []stationObject{{
				StationID:   "st-1",
				StationSN:   "S1",
				StationName: "Base",
				Category:    "SBS50",
				Devices: []deviceObject{
					{DeviceID: "dev-1", DeviceSN: "D1", DeviceName: "Kitchen", DeviceType: "STH51"},
					{DeviceID: "dev-2", DeviceSN: "D1", DeviceName: "Duplicate", DeviceType: "XS01"},
				},
			}},
		}}})
	})
	mux.HandleFunc("GET /stations/st-1/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"isLifeEnd": 0})
	})
	mux.HandleFunc("GET /stations/st-1/devices/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"devs": map[string]any{
			"D1":      map[string]any{"alarmStatus": "1"},
			"UNKNOWN": map[string]any{"alarmStatus": "1"},
		}})
	})
	c := newTestClient(t, mux)
	c.token = "opaque-token"

	houses, err := c.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, houses, 1)
	station := houses[0].Stations["st-1"]
	require.NotNil(t, station)
	assert.Equal(t, "SBS50S1", station.ShadowName)
	assert.Equal(t, "H1", station.HouseID)
	assert.Len(t, station.Devices, 1, "duplicate serials are dropped")

	require.NoError(t, c.StationState(context.Background(), station))
	require.NoError(t, c.DeviceStates(context.Background(), station))
	assert.Equal(t, float64(0), station.Data["isLifeEnd"])
	assert.Equal(t, "1", station.Devices["dev-1"].Data["alarmStatus"])
}
