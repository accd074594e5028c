package strategy

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
)

func TestSignal_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Signal{"supertrend": Buy, "bollinger": Hold})
	require.NoError(t, err)
	assert.JSONEq(t, `{"supertrend":"buy","bollinger":"hold"}`, string(data))

	var decoded map[string]Signal
	require.NoError(t, json.Unmarshal([]byte(`{"a":"SELL"}`), &decoded))
	assert.Equal(t, Sell, decoded["a"])

	assert.Error(t, json.Unmarshal([]byte(`{"a":"short"}`), &decoded))
}

func TestSignal_ZeroValueIsHold(t *testing.T) {
	var s Signal
	assert.Equal(t, Hold, s)
	assert.False(t, s.IsActionable())
	assert.True(t, Buy.IsActionable())
}

func TestParameters_Conversion(t *testing.T) {
	params := Parameters{
		"period":     json.Number("14"),
		"multiplier": "2.5",
		"bad_int":    "abc",
		"fraction":   2.5,
		"bad_float":  []int{1},
		KeyActive:    "false",
	}

	period, ok := params.Int("period")
	assert.True(t, ok)
	assert.Equal(t, 14, period)

	multiplier, ok := params.Float("multiplier")
	assert.True(t, ok)
	assert.Equal(t, 2.5, multiplier)

	// 存在但無效：返回哨兵值，錯誤延後到 Calculate
	badInt, ok := params.Int("bad_int")
	assert.True(t, ok)
	assert.Equal(t, 0, badInt)

	fraction, ok := params.Int("fraction")
	assert.True(t, ok)
	assert.Equal(t, 0, fraction)

	badFloat, ok := params.Float("bad_float")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(badFloat))

	active, ok := params.Bool(KeyActive)
	assert.True(t, ok)
	assert.False(t, active)

	_, ok = params.Int("missing")
	assert.False(t, ok)
}

func TestParameterError(t *testing.T) {
	var err error = &ParameterError{Strategy: "supertrend", Parameter: "period", Value: 0, Reason: "must be positive"}

	var paramErr *ParameterError
	require.True(t, errors.As(err, &paramErr))
	assert.Contains(t, err.Error(), "period=0")
}

func newTestSeries(t *testing.T, closes ...float64) market.Series {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.MustCandle(start.Add(time.Duration(i)*time.Minute), c, c+1, c-1, c, 1)
	}
	series, err := market.NewSeries(candles)
	require.NoError(t, err)
	return series
}

func TestFrame_Columns(t *testing.T) {
	frame := NewFrame(newTestSeries(t, 10, 11, 12))

	require.NoError(t, frame.SetValues("ma", []float64{math.NaN(), 10.5, 11.5}))
	require.NoError(t, frame.SetFlags("cross", []bool{false, false, true}))
	assert.Error(t, frame.SetValues("short", []float64{1}))

	assert.True(t, math.IsNaN(frame.Value("ma", 0)))
	assert.Equal(t, 11.5, frame.Value("ma", 2))
	assert.True(t, math.IsNaN(frame.Value("missing", 0)))
	assert.True(t, math.IsNaN(frame.Value("ma", 3)))
	assert.True(t, frame.Flag("cross", 2))
	assert.False(t, frame.Flag("cross", 5))
	assert.Equal(t, []string{"ma"}, frame.ValueNames())
	assert.Equal(t, []string{"cross"}, frame.FlagNames())

	// 返回副本，不影響內部狀態
	values := frame.Values("ma")
	values[2] = 0
	assert.Equal(t, 11.5, frame.Value("ma", 2))
}

func TestFrame_EqualTreatsNaNAsEqual(t *testing.T) {
	series := newTestSeries(t, 10, 11)

	a := NewFrame(series)
	b := NewFrame(series)
	require.NoError(t, a.SetValues("x", []float64{math.NaN(), 1}))
	require.NoError(t, b.SetValues("x", []float64{math.NaN(), 1}))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.SetValues("x", []float64{math.NaN(), 2}))
	assert.False(t, a.Equal(b))
}

func TestFrame_ParametersSnapshot(t *testing.T) {
	frame := NewFrame(newTestSeries(t, 10, 11))
	assert.Nil(t, frame.Parameters())

	params := Parameters{"period": 10}
	frame.SetParameters(params)
	params["period"] = 20

	got := frame.Parameters()
	assert.Equal(t, Parameters{"period": 10}, got)

	got["period"] = 30
	assert.Equal(t, Parameters{"period": 10}, frame.Parameters())
}

func TestFrame_MarshalJSON_NaNAsNull(t *testing.T) {
	frame := NewFrame(newTestSeries(t, 10, 11))
	require.NoError(t, frame.SetValues("ma", []float64{math.NaN(), 10.5}))
	require.NoError(t, frame.SetFlags("cross", []bool{false, true}))

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0]["values"].(map[string]any)["ma"])
	assert.Equal(t, 10.5, rows[1]["values"].(map[string]any)["ma"])
	assert.Equal(t, true, rows[1]["flags"].(map[string]any)["cross"])
}
