package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dizzycode.xyz/multi-strategy-server/internal/application"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/chart"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// 推送消息類型
const (
	MessageCharts = "charts"
	MessageLog    = "log"
)

// Message websocket 推送格式
type Message struct {
	Type      string        `json:"type"`
	Symbol    string        `json:"symbol,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Charts    []chart.Chart `json:"charts,omitempty"`
	Line      string        `json:"line,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Hub 把每輪的策略圖表廣播給所有 websocket 客戶端
// 實現 application.DisplaySink
type Hub struct {
	logger logger.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	last    []byte // 最近一次圖表快照，新客戶端連上時先推送
}

// NewHub 創建 Hub
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		logger:  log,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Publish 渲染各策略圖表並廣播
func (h *Hub) Publish(_ context.Context, symbol string, results map[string]application.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	charts := make([]chart.Chart, 0, len(names))
	for _, name := range names {
		res := results[name]
		if res.Strategy == nil || res.Frame == nil {
			continue
		}
		c, err := chart.Render(res.Strategy, res.Frame, res.Signal)
		if err != nil {
			h.logger.Warn("Failed to render chart", map[string]any{
				"strategy": name,
				"error":    err,
			})
			continue
		}
		charts = append(charts, c)
	}

	data, err := json.Marshal(Message{
		Type:      MessageCharts,
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Charts:    charts,
	})
	if err != nil {
		h.logger.Error("Failed to marshal charts", map[string]any{"error": err})
		return
	}

	h.mu.Lock()
	h.last = data
	h.mu.Unlock()

	h.broadcast(data)
}

// Log 廣播一行控制台文字，同時寫入日誌
func (h *Hub) Log(line string) {
	h.logger.Info(line)

	data, err := json.Marshal(Message{Type: MessageLog, Timestamp: time.Now().UTC(), Line: line})
	if err != nil {
		return
	}
	h.broadcast(data)
}

// Clients 當前連接數
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	if h.last != nil {
		ch <- h.last
	}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // 慢客戶端，丟棄
		}
	}
}

// ServeWS 升級為 websocket 並持續推送
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]any{"error": err})
		return
	}

	ch := h.register(conn)
	h.logger.Info("WebSocket client connected", map[string]any{"remote": c.Request.RemoteAddr})

	// 讀循環只用來偵測斷線
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister(conn)
				return
			}
		}
	}()

	defer func() {
		h.unregister(conn)
		conn.Close()
		h.logger.Info("WebSocket client disconnected", map[string]any{"remote": c.Request.RemoteAddr})
	}()

	for msg := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
