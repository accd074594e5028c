package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/multi-strategy-server/internal/application"
	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/bollinger"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/supertrend"
	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/metrics"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

type fakeService struct {
	mu       sync.Mutex
	settings application.Settings
}

func (f *fakeService) State() application.ServiceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return application.ServiceState{Settings: f.settings, Position: trading.Long}
}

func (f *fakeService) Settings() application.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeService) ApplySettings(patch func(*application.Settings) error) (application.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.settings
	if err := patch(&next); err != nil {
		return application.Settings{}, err
	}
	if err := next.Validate(); err != nil {
		return application.Settings{}, err
	}
	f.settings = next
	return next, nil
}

type testServer struct {
	router   *gin.Engine
	service  *fakeService
	registry *application.Registry
	hub      *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, err := application.NewRegistry(
		supertrend.New(supertrend.DefaultConfig()),
		bollinger.New(bollinger.DefaultConfig()),
	)
	require.NoError(t, err)

	service := &fakeService{settings: application.Settings{
		Symbol:    "BTC-USDT",
		Timeframe: "30m",
		Limit:     300,
		Mode:      trading.ModeMajority,
		Quantity:  decimal.RequireFromString("0.001"),
	}}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RecordSignal("supertrend", "buy")

	hub := NewHub(logger.NewNop())
	router := NewRouter(RouterOptions{
		Handler:  NewHandler(service, registry, "test"),
		Hub:      hub,
		Gatherer: reg,
		Logger:   logger.NewNop(),
	})
	return &testServer{router: router, service: service, registry: registry, hub: hub}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndState(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = s.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	var state map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "long", state["position"])
	settings := state["settings"].(map[string]any)
	assert.Equal(t, "majority", settings["mode"])
	assert.Equal(t, "0.001", settings["quantity"])
}

func TestStrategies(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []application.StrategyInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, supertrend.Name, infos[0].Name)
	assert.True(t, infos[0].Active)
}

func TestUpdateParameters(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/strategies/supertrend/parameters", `{"period": 14, "is_active": false, "unknown": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	st, err := s.registry.Get(supertrend.Name)
	require.NoError(t, err)
	assert.Equal(t, 14, st.(*supertrend.Strategy).Config().Period)
	assert.False(t, st.Active())

	w = s.do(http.MethodPut, "/api/strategies/ichimoku/parameters", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, "/api/strategies/supertrend/parameters", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateSettings(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/settings", `{"mode": "any", "quantity": "0.5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, trading.ModeAny, s.service.Settings().Mode)
	assert.Equal(t, "0.5", s.service.Settings().Quantity.String())
	assert.Equal(t, "BTC-USDT", s.service.Settings().Symbol, "untouched fields are kept")

	tests := []struct {
		name string
		body string
	}{
		{"unknown mode", `{"mode": "combined"}`},
		{"zero limit", `{"limit": 0}`},
		{"malformed", `{"limit": "many"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPut, "/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Equal(t, trading.ModeAny, s.service.Settings().Mode, "rejected updates leave settings unchanged")
}

func TestUpdateSettings_ConcurrentPatchesKeepEachField(t *testing.T) {
	s := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.do(http.MethodPut, "/api/settings", `{"mode": "consensus"}`)
		}()
		go func() {
			defer wg.Done()
			s.do(http.MethodPut, "/api/settings", `{"timeframe": "1h"}`)
		}()
	}
	wg.Wait()

	settings := s.service.Settings()
	assert.Equal(t, trading.ModeConsensus, settings.Mode)
	assert.Equal(t, "1h", settings.Timeframe)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `multistrategy_strategy_signals_total{signal="buy",strategy="supertrend"} 1`)
}

func TestHub_BroadcastsCharts(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	st := bollinger.New(bollinger.Config{Period: 3, NumStd: 1})
	frame, err := st.Calculate(chartSeries(t))
	require.NoError(t, err)

	s.hub.Publish(context.Background(), "BTC-USDT", map[string]application.Result{
		bollinger.Name: {Strategy: st, Frame: frame, Signal: st.GetSignal(frame)},
	})
	s.hub.Log("Combined signal: BUY")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageCharts, msg.Type)
	require.Len(t, msg.Charts, 1)
	assert.Equal(t, "buy", msg.Charts[0].Signal)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageLog, msg.Type)
	assert.Equal(t, "Combined signal: BUY", msg.Line)
}

func chartSeries(t *testing.T) market.Series {
	t.Helper()
	start := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)
	var candles []market.Candle
	for i, c := range []float64{100, 100, 100, 90, 100} {
		candle, err := market.NewCandle(start.Add(time.Duration(i)*time.Hour), c, c, c, c, 1)
		require.NoError(t, err)
		candles = append(candles, candle)
	}
	series, err := market.NewSeries(candles)
	require.NoError(t, err)
	return series
}
