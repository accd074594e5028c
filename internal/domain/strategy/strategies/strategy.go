package strategies

import (
	"sync"
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
)

// Strategy 策略介面（多態）
// 所有策略必須實現此介面，Runner 與 Aggregator 只依賴這個介面
type Strategy interface {
	// Name 策略名稱（結果映射的 key）
	Name() string

	// Active 是否參與本輪計算
	Active() bool

	// Calculate 在序列副本上計算指標，返回新的 Frame
	// 歷史不足不是錯誤（NaN 填充）；參數無效返回 *strategy.ParameterError
	Calculate(series market.Series) (*strategy.Frame, error)

	// GetSignal 只看最後一列（交叉類策略另看倒數第二列）
	GetSignal(frame *strategy.Frame) strategy.Signal

	// SetParameters 部分更新參數，下一次 Calculate 生效
	SetParameters(params strategy.Parameters)

	// Parameters 當前參數快照
	Parameters() strategy.Parameters

	// MinLookback 產生第一個有效指標值所需的最少K線數
	MinLookback() int

	// Plot 將 Frame 畫到 surface 上，不修改 Frame
	Plot(frame *strategy.Frame, surface Surface) error
}

// Style 繪圖樣式
type Style struct {
	Color     string
	Dashed    bool
	Marker    string // "^" 買點、"v" 賣點、"o" 一般點
	Secondary bool   // 畫在副座標軸
}

// Surface 繪圖目標（外部顯示層實現）
type Surface interface {
	Title(title string)
	Line(label string, xs []time.Time, ys []float64, style Style)
	Markers(label string, xs []time.Time, ys []float64, style Style)
	HLine(label string, y float64, style Style)
}

// Base 所有策略共用的名稱、啟用狀態與參數鎖
//
// 參數可能由控制面（HTTP API）並發更新，
// 策略在 Calculate 開始時於讀鎖內取參數快照，避免讀到更新一半的參數組。
type Base struct {
	name   string
	mu     sync.RWMutex
	active bool
}

// NewBase 創建 Base，預設啟用
func NewBase(name string) *Base {
	return &Base{name: name, active: true}
}

// Name 策略名稱
func (b *Base) Name() string { return b.name }

// Active 是否啟用
func (b *Base) Active() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// SetActive 設置啟用狀態
func (b *Base) SetActive(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = active
}

// Update 在寫鎖內套用 is_active，再執行 fn 更新策略自身參數
func (b *Base) Update(params strategy.Parameters, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if active, ok := params.Bool(strategy.KeyActive); ok {
		b.active = active
	}
	fn()
}

// View 在讀鎖內執行 fn（取參數快照）
func (b *Base) View(fn func()) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn()
}

// ActiveLocked 在 View / Update 回呼內讀取啟用狀態
func (b *Base) ActiveLocked() bool { return b.active }

// LastTwo 返回最後兩列的索引，不足兩列時 ok=false
func LastTwo(frame *strategy.Frame) (prev, last int, ok bool) {
	if frame == nil || frame.Len() < 2 {
		return 0, 0, false
	}
	last = frame.Len() - 1
	return last - 1, last, true
}

// FlaggedCloses 返回旗標為 true 的列的時間與收盤價（畫買賣點用）
func FlaggedCloses(frame *strategy.Frame, flag string) ([]time.Time, []float64) {
	series := frame.Series()
	var xs []time.Time
	var ys []float64
	for i := 0; i < frame.Len(); i++ {
		if frame.Flag(flag, i) {
			c := series.At(i)
			xs = append(xs, c.Timestamp())
			ys = append(ys, c.Close())
		}
	}
	return xs, ys
}
