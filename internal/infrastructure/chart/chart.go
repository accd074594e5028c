package chart

import (
	"fmt"
	"math"
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
)

// 圖層類型
const (
	KindLine    = "line"
	KindMarkers = "markers"
	KindHLine   = "hline"
)

// Point 一個數據點；V 為 nil 表示該列指標未定義
type Point struct {
	T int64    `json:"t"` // 毫秒時間戳
	V *float64 `json:"v"`
}

// Style 圖層樣式
type Style struct {
	Color     string `json:"color,omitempty"`
	Dashed    bool   `json:"dashed,omitempty"`
	Marker    string `json:"marker,omitempty"`
	Secondary bool   `json:"secondary,omitempty"`
}

// Layer 一條線、一組標記或一條水平線
type Layer struct {
	Kind   string   `json:"kind"`
	Label  string   `json:"label"`
	Style  Style    `json:"style"`
	Points []Point  `json:"points,omitempty"`
	Y      *float64 `json:"y,omitempty"`
}

// Chart 一個策略的完整圖表
type Chart struct {
	Strategy string  `json:"strategy"`
	Signal   string  `json:"signal"`
	Title    string  `json:"title"`
	Layers   []Layer `json:"layers"`
}

// Surface 實現 strategies.Surface，把繪圖調用收集成 Chart
type Surface struct {
	chart Chart
}

// NewSurface 創建繪圖面
func NewSurface(strategyName string) *Surface {
	return &Surface{chart: Chart{Strategy: strategyName}}
}

// Title 設置標題
func (s *Surface) Title(title string) { s.chart.Title = title }

// Line 添加折線
func (s *Surface) Line(label string, xs []time.Time, ys []float64, style strategies.Style) {
	s.chart.Layers = append(s.chart.Layers, Layer{
		Kind:   KindLine,
		Label:  label,
		Style:  convertStyle(style),
		Points: points(xs, ys),
	})
}

// Markers 添加散點標記
func (s *Surface) Markers(label string, xs []time.Time, ys []float64, style strategies.Style) {
	s.chart.Layers = append(s.chart.Layers, Layer{
		Kind:   KindMarkers,
		Label:  label,
		Style:  convertStyle(style),
		Points: points(xs, ys),
	})
}

// HLine 添加水平線
func (s *Surface) HLine(label string, y float64, style strategies.Style) {
	layer := Layer{Kind: KindHLine, Label: label, Style: convertStyle(style)}
	if !math.IsNaN(y) && !math.IsInf(y, 0) {
		layer.Y = &y
	}
	s.chart.Layers = append(s.chart.Layers, layer)
}

// Chart 返回收集到的圖表
func (s *Surface) Chart() Chart { return s.chart }

// Render 讓策略把 frame 畫成 Chart
func Render(s strategies.Strategy, frame *strategy.Frame, signal strategy.Signal) (Chart, error) {
	surface := NewSurface(s.Name())
	if err := s.Plot(frame, surface); err != nil {
		return Chart{}, fmt.Errorf("render %s: %w", s.Name(), err)
	}
	c := surface.Chart()
	c.Signal = signal.String()
	return c, nil
}

func convertStyle(style strategies.Style) Style {
	return Style{
		Color:     style.Color,
		Dashed:    style.Dashed,
		Marker:    style.Marker,
		Secondary: style.Secondary,
	}
}

// points 對齊 xs 與 ys，NaN / Inf 輸出為 null
func points(xs []time.Time, ys []float64) []Point {
	n := min(len(xs), len(ys))
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[i].T = xs[i].UnixMilli()
		if v := ys[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i].V = &v
		}
	}
	return out
}
