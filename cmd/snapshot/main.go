package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"dizzycode.xyz/multi-strategy-server/internal/application"
	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/bootstrap"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/chart"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/config"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/execution"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/loader"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/logger"
)

// chartCollector 收集一輪的圖表與控制台輸出
type chartCollector struct {
	charts []chart.Chart
	lines  []string
}

func (c *chartCollector) Publish(_ context.Context, _ string, results map[string]application.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result := results[name]
		rendered, err := chart.Render(result.Strategy, result.Frame, result.Signal)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
			continue
		}
		c.charts = append(c.charts, rendered)
	}
}

func (c *chartCollector) Log(line string) {
	c.lines = append(c.lines, line)
}

func main() {
	// 解析命令行參數
	dataFile := flag.String("data", "", "OKX K線數據文件路徑 (必填)")
	outFile := flag.String("out", "", "圖表 JSON 輸出路徑 (默認: 不輸出)")
	mode := flag.String("mode", "", "信號合成模式 majority / consensus / any (默認: 讀取 SIGNAL_MODE)")

	flag.Parse()

	if *dataFile == "" {
		fmt.Println("錯誤: 必須指定K線數據文件路徑")
		fmt.Println()
		fmt.Println("使用方式:")
		fmt.Println("  go run ./cmd/snapshot --data=internal/infrastructure/loader/testdata/okx_btc_usdt_30m.json")
		fmt.Println()
		fmt.Println("參數說明:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*dataFile); os.IsNotExist(err) {
		fmt.Printf("錯誤: 文件不存在: %s\n", *dataFile)
		os.Exit(1)
	}

	// 載入配置，數據源固定為文件
	_ = godotenv.Load()
	if os.Getenv("ENVIRONMENT") == "" {
		os.Setenv("ENVIRONMENT", "snapshot")
	}
	os.Setenv("MARKET_DATA_SOURCE", config.SourceFile)
	os.Setenv("CANDLE_FILE", *dataFile)
	if *mode != "" {
		os.Setenv("SIGNAL_MODE", *mode)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Printf("錯誤: 配置無效: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(cfg)
	defer log.Sync()

	registry, err := bootstrap.NewRegistry(cfg)
	if err != nil {
		fmt.Printf("錯誤: 創建策略失敗: %v\n", err)
		os.Exit(1)
	}

	collector := &chartCollector{}
	sink := execution.NewPaperSink(log)
	service, err := application.NewTradingService(application.Dependencies{
		Market:   loader.NewCandleLoader(*dataFile),
		Display:  collector,
		Registry: registry,
		Runner:   application.NewRunner(log, nil),
		Gate:     trading.NewPositionGate(sink),
		Logger:   log,
	}, bootstrap.Settings(cfg), application.Timing{})
	if err != nil {
		fmt.Printf("錯誤: 創建交易服務失敗: %v\n", err)
		os.Exit(1)
	}

	// 運行一輪
	report, err := service.RunCycle(context.Background())
	if err != nil {
		fmt.Printf("錯誤: 運行失敗: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("========================================")
	fmt.Printf("信號快照: %s (%s)\n", *dataFile, cfg.Trading.SignalMode)
	fmt.Println("========================================")
	for _, line := range collector.lines {
		fmt.Println(line)
	}
	for name, reason := range report.Failures {
		fmt.Printf("❌ %s: %s\n", name, reason)
	}
	fmt.Printf("K線數: %d\n", report.Candles)
	fmt.Printf("模擬成交: %d 筆 (淨持倉 %s)\n", len(sink.Orders()), sink.NetQuantity())

	if *outFile == "" {
		return
	}

	data, err := json.MarshalIndent(collector.charts, "", "  ")
	if err != nil {
		fmt.Printf("錯誤: 序列化圖表失敗: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outFile, data, 0o644); err != nil {
		fmt.Printf("錯誤: 寫入文件失敗: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("圖表已寫入: %s\n", *outFile)
}
