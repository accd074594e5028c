package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dizzycode.xyz/multi-strategy-server/internal/application"
	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/bootstrap"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/config"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/execution"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/httpapi"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/loader"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/logger"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/messaging"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/metrics"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/rabbitmq"
)

const version = "1.0.0"

func main() {
	// 1. 載入配置
	cfg := config.Load()

	// 2. 創建 logger
	log := logger.Must(cfg)
	defer log.Sync()

	log.Info("Starting Multi-Strategy Server", map[string]any{
		"environment": cfg.Environment,
		"port":        cfg.Port,
		"symbol":      cfg.Trading.Symbol,
		"timeframe":   cfg.Trading.Timeframe,
		"mode":        cfg.Trading.SignalMode,
		"source":      cfg.Trading.DataSource,
		"sink":        cfg.Trading.OrderSink,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 創建 Redis 客戶端（行情、資金費率或下單需要時）
	var redisClient *messaging.RedisClient
	if cfg.Trading.DataSource == config.SourceRedis || cfg.Trading.OrderSink == config.SinkRedis {
		client, err := messaging.NewRedisClient(ctx, messaging.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, log)
		if err != nil {
			log.Error("Failed to connect to Redis", map[string]any{"error": err})
			os.Exit(1)
		}
		defer client.Close()
		redisClient = client
	}

	// 4. 行情與資金費率數據源
	var market application.MarketDataSource
	var funding application.FundingRateSource
	switch cfg.Trading.DataSource {
	case config.SourceFile:
		market = loader.NewCandleLoader(cfg.Trading.CandleFile)
	default:
		market = messaging.NewMarketDataReader(redisClient, log)
		funding = messaging.NewFundingRateReader(redisClient, cfg.Trading.CandleLimit, log)
	}

	// 5. 下單出口
	var sink trading.OrderSink
	switch cfg.Trading.OrderSink {
	case config.SinkRedis:
		sink = messaging.NewRedisOrderPublisher(redisClient, log)
	case config.SinkRabbitMQ:
		conn := rabbitmq.NewConnection(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, log)
		if err := conn.Connect(); err != nil {
			log.Error("Failed to connect to RabbitMQ", map[string]any{"error": err})
			os.Exit(1)
		}
		defer conn.Close()
		sink = rabbitmq.NewOrderPublisher(conn, cfg.RabbitMQ.OrderQueue, log)
	default:
		sink = execution.NewPaperSink(log)
	}

	// 6. 策略與指標
	registry, err := bootstrap.NewRegistry(cfg)
	if err != nil {
		log.Error("Failed to create strategies", map[string]any{"error": err})
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(promRegistry)

	// 7. 創建應用層 - TradingService
	hub := httpapi.NewHub(log)
	service, err := application.NewTradingService(application.Dependencies{
		Market:   market,
		Funding:  funding,
		Display:  hub,
		Registry: registry,
		Runner:   application.NewRunner(log, recorder),
		Gate:     trading.NewPositionGate(sink),
		Metrics:  recorder,
		Logger:   log,
	}, bootstrap.Settings(cfg), application.Timing{
		PollInterval: cfg.Trading.PollInterval,
		ErrorBackoff: cfg.Trading.ErrorBackoff,
	})
	if err != nil {
		log.Error("Failed to create trading service", map[string]any{"error": err})
		os.Exit(1)
	}

	// 8. HTTP 控制面
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapi.NewRouter(httpapi.RouterOptions{
			Handler:  httpapi.NewHandler(service, registry, version),
			Hub:      hub,
			Gatherer: promRegistry,
			Logger:   log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", map[string]any{"error": err})
			cancel()
		}
	}()

	// 9. 輪詢循環
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = service.Run(ctx)
	}()

	log.Info("Multi-Strategy Server started successfully", map[string]any{
		"addr":       server.Addr,
		"strategies": len(registry.All()),
	})

	// 10. 等待退出信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("Shutting down Multi-Strategy Server...")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", map[string]any{"error": err})
	}
}
