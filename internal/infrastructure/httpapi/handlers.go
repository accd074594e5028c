package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dizzycode.xyz/multi-strategy-server/internal/application"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
)

// TradingService 控制面需要的交易服務能力
type TradingService interface {
	State() application.ServiceState
	Settings() application.Settings
	ApplySettings(patch func(*application.Settings) error) (application.Settings, error)
}

// Handler HTTP 控制面
type Handler struct {
	service  TradingService
	registry *application.Registry
	version  string
}

// NewHandler 創建 Handler
func NewHandler(service TradingService, registry *application.Registry, version string) *Handler {
	return &Handler{service: service, registry: registry, version: version}
}

// Health 健康檢查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "multi-strategy-server",
		"version":   h.version,
	})
}

// State 當前設置、倉位與最近一輪結果
func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.State())
}

// Strategies 列出所有策略與參數
func (h *Handler) Strategies(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Describe())
}

// UpdateParameters 部分更新某個策略的參數，下一輪生效
func (h *Handler) UpdateParameters(c *gin.Context) {
	name := c.Param("name")

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var params strategy.Parameters
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object: " + err.Error()})
		return
	}

	if err := h.registry.UpdateParameters(name, params); err != nil {
		if errors.Is(err, application.ErrStrategyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s, _ := h.registry.Get(name)
	c.JSON(http.StatusOK, application.StrategyInfo{
		Name:        s.Name(),
		Active:      s.Active(),
		MinLookback: s.MinLookback(),
		Parameters:  s.Parameters(),
	})
}

// settingsPatch 部分更新設置
type settingsPatch struct {
	Symbol    *string          `json:"symbol"`
	Timeframe *string          `json:"timeframe"`
	Limit     *int             `json:"limit"`
	Mode      *string          `json:"mode"`
	Quantity  *decimal.Decimal `json:"quantity"`
}

// apply 把請求中出現的欄位寫入設置
func (p settingsPatch) apply(settings *application.Settings) error {
	if p.Symbol != nil {
		settings.Symbol = *p.Symbol
	}
	if p.Timeframe != nil {
		settings.Timeframe = *p.Timeframe
	}
	if p.Limit != nil {
		settings.Limit = *p.Limit
	}
	if p.Mode != nil {
		mode, err := trading.ParseMode(*p.Mode)
		if err != nil {
			return err
		}
		settings.Mode = mode
	}
	if p.Quantity != nil {
		settings.Quantity = *p.Quantity
	}
	return nil
}

// UpdateSettings 部分更新交易設置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.service.ApplySettings(patch.apply)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}
