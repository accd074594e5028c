package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = "testdata/okx_btc_usdt_30m.json"

func TestCandleLoader_Load(t *testing.T) {
	series, err := NewCandleLoader(sampleFile).Load()
	require.NoError(t, err)

	// 最新一根 confirm=0，被丟棄
	require.Equal(t, 5, series.Len())
	t.Logf("✅ Loaded %d candles", series.Len())

	assert.Equal(t, time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), series.At(0).Timestamp())
	assert.Equal(t, []float64{63500.1, 63620.4, 63580.0, 63710.9, 63805.2}, series.Closes())
	assert.Equal(t, 152.37, series.At(0).Volume())

	for i := 1; i < series.Len(); i++ {
		assert.True(t, series.At(i-1).Timestamp().Before(series.At(i).Timestamp()), "sorted from old to new")
	}
}

func TestCandleLoader_FetchCandles(t *testing.T) {
	l := NewCandleLoader(sampleFile)

	series, err := l.FetchCandles(context.Background(), "BTC-USDT", "30m", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{63710.9, 63805.2}, series.Closes())

	series, err = l.FetchCandles(context.Background(), "BTC-USDT", "30m", 100)
	require.NoError(t, err)
	assert.Equal(t, 5, series.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.FetchCandles(ctx, "BTC-USDT", "30m", 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCandleLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"okx error", `{"code":"50011","msg":"rate limited","data":[]}`},
		{"empty data", `{"code":"0","msg":"","data":[]}`},
		{"short row", `{"code":"0","msg":"","data":[["1727654400000","1","2"]]}`},
		{"bad price", `{"code":"0","msg":"","data":[["1727654400000","x","2","0.5","1"]]}`},
		{"high below low", `{"code":"0","msg":"","data":[["1727654400000","1","0.5","2","1"]]}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "candles.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadFromJSON(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
