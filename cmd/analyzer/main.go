package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"analysis-enginev1/config"
	"analysis-enginev1/internal/analysis"
	"analysis-enginev1/internal/logger"
	"analysis-enginev1/internal/metrics"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/registry"
	redisstore "analysis-enginev1/internal/store/redis"
	sqlitestore "analysis-enginev1/internal/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	slogger := logger.Init("analyzer", slog.LevelInfo)

	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[analyzer] SYMBOLS resolved to an empty universe")
	}
	slogger.Info("starting",
		slog.String("timeframe", cfg.Timeframe),
		slog.Int("symbols", len(symbols)),
		slog.Int("workers", cfg.WorkerPoolSize),
		slog.Int("lookback_bars", cfg.LookbackBars))

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slogger.Info("shutdown signal received")
		cancel()
	}()

	// ---- SQLite store ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[analyzer] sqlite init failed: %v", err)
	}
	defer store.Close()
	health.SetSQLiteOK(true)

	if err := store.SeedDefinitions(ctx, defaultIndicators(), defaultPatterns()); err != nil {
		log.Fatalf("[analyzer] catalog seed failed: %v", err)
	}

	// ---- Redis cache (optional, empty addr disables) ----
	var cache *redisstore.Cache
	if cfg.RedisAddr != "" {
		cache, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			slogger.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
			health.SetRedisConnected(false)
			cache = nil
		} else {
			health.SetRedisConnected(true)
			defer cache.Close()
		}
	}

	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Analysis service ----
	svc := analysis.New(analysis.Config{
		Timeframe:          cfg.Timeframe,
		LookbackBars:       cfg.LookbackBars,
		Workers:            cfg.WorkerPoolSize,
		SymbolTimeout:      time.Duration(cfg.SymbolTimeoutSec) * time.Second,
		ConfidenceOverride: cfg.ConfidenceOverride,
		DefinitionCacheTTL: time.Duration(cfg.DefCacheTTLSec) * time.Second,
	}, store, cache, registry.Builtins(), prom, slogger)

	runOnce := func() {
		batch := svc.AnalyzeUniverse(ctx, symbols)
		health.SetLastRunAt(time.Now())
		slogger.Info("batch finished",
			slog.String("run_id", batch.RunID),
			slog.Int("succeeded", batch.Succeeded),
			slog.Int("failed", batch.Failed))
	}

	runOnce()

	if cfg.AnalyzeIntervalSec > 0 {
		ticker := time.NewTicker(time.Duration(cfg.AnalyzeIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slogger.Info("stopping")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				metricsSrv.Stop(shutdownCtx)
				shutdownCancel()
				return
			case <-ticker.C:
				svc.RefreshDefinitions()
				runOnce()
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	metricsSrv.Stop(shutdownCtx)
	shutdownCancel()
}

// defaultIndicators is the bootstrap catalog, inserted only when the
// definition tables are empty. The rsi_14 row doubles as the dependency
// of the oversold reversal pattern.
func defaultIndicators() []model.IndicatorDefinition {
	return []model.IndicatorDefinition{
		{Name: "sma_20", Impl: "sma", Params: model.Params{"period": 20}, Enabled: true},
		{Name: "ema_20", Impl: "ema", Params: model.Params{"period": 20}, Enabled: true},
		{Name: "rsi_14", Impl: "rsi", Params: model.Params{"period": 14}, Enabled: true},
		{Name: "macd_12_26_9", Impl: "macd", Params: model.Params{"fast_period": 12, "slow_period": 26, "signal_period": 9}, Enabled: true},
		{Name: "bollinger_20", Impl: "bollinger", Params: model.Params{"period": 20, "num_std": 2}, Enabled: true},
		{Name: "atr_14", Impl: "atr", Params: model.Params{"period": 14}, Enabled: true},
		{Name: "stochastic_14_3", Impl: "stochastic", Params: model.Params{"k_period": 14, "d_period": 3}, Enabled: true},
		{Name: "obv", Impl: "obv", Params: model.Params{"ma_period": 20}, Enabled: true},
	}
}

func defaultPatterns() []model.PatternDefinition {
	all := "1min,5min,15min,30min,1h,4h,1day,1week"
	daily := "1h,4h,1day,1week"
	return []model.PatternDefinition{
		{Name: "doji", Impl: "doji", Params: model.Params{"body_tolerance": 0.1}, ConfidenceThreshold: 0.5, Timeframes: all, RiskLevel: "low", Enabled: true},
		{Name: "hammer", Impl: "hammer", Params: model.Params{"wick_ratio": 2}, ConfidenceThreshold: 0.55, Timeframes: all, RiskLevel: "medium", Enabled: true},
		{Name: "shooting_star", Impl: "shooting_star", Params: model.Params{"wick_ratio": 2}, ConfidenceThreshold: 0.55, Timeframes: all, RiskLevel: "medium", Enabled: true},
		{Name: "bullish_engulfing", Impl: "bullish_engulfing", Params: model.Params{}, ConfidenceThreshold: 0.6, Timeframes: all, RiskLevel: "medium", Enabled: true},
		{Name: "bearish_engulfing", Impl: "bearish_engulfing", Params: model.Params{}, ConfidenceThreshold: 0.6, Timeframes: all, RiskLevel: "medium", Enabled: true},
		{Name: "morning_star", Impl: "morning_star", Params: model.Params{}, ConfidenceThreshold: 0.6, Timeframes: daily, RiskLevel: "medium", Enabled: true},
		{Name: "evening_star", Impl: "evening_star", Params: model.Params{}, ConfidenceThreshold: 0.6, Timeframes: daily, RiskLevel: "medium", Enabled: true},
		{Name: "breakout", Impl: "breakout", Params: model.Params{"consolidation_period": 20, "max_range_ratio": 0.05, "breakout_strength": 0.01, "volume_factor": 1.5}, ConfidenceThreshold: 0.6, Timeframes: daily, RiskLevel: "high", Enabled: true},
		{Name: "oversold_reversal", Impl: "oversold_reversal", Params: model.Params{"oversold": 30}, ConfidenceThreshold: 0.6, Timeframes: daily, RiskLevel: "high", Enabled: true},
	}
}
