package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Analysis universe (comma-separated symbols, e.g. "RELIANCE,TCS,INFY")
	Symbols string

	// Engine tuning
	Timeframe          string
	LookbackBars       int
	WorkerPoolSize     int
	SymbolTimeoutSec   int
	ConfidenceOverride float64 // negative = use per-pattern catalog thresholds
	DefCacheTTLSec     int

	// AnalyzeIntervalSec re-runs the universe on a timer; 0 = run once and exit.
	AnalyzeIntervalSec int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnvOpt("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/analysis.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		Symbols: getEnv("SYMBOLS", "RELIANCE,TCS,INFY,HDFCBANK,ICICIBANK"),

		Timeframe:          getEnv("TIMEFRAME", "1day"),
		LookbackBars:       getEnvInt("LOOKBACK_BARS", 250),
		WorkerPoolSize:     getEnvInt("WORKER_POOL_SIZE", 4),
		SymbolTimeoutSec:   getEnvInt("SYMBOL_TIMEOUT_SEC", 30),
		ConfidenceOverride: getEnvFloat("CONFIDENCE_THRESHOLD", -1),
		DefCacheTTLSec:     getEnvInt("DEFINITION_CACHE_TTL_SEC", 60),

		AnalyzeIntervalSec: getEnvInt("ANALYZE_INTERVAL_SEC", 0),
	}
}

// ParseSymbols splits the Symbols string into a cleaned slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, strings.ToUpper(p))
	}
	return symbols
}

// getEnvOpt distinguishes "unset" from "explicitly empty": setting
// REDIS_ADDR="" disables the cache rather than falling back to the default.
func getEnvOpt(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
