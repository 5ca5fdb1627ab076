package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type LotSource string

const (
	LotSourceFile     LotSource = "file"
	LotSourcePostgres LotSource = "postgres"
)

// Config holds the server configuration, read from the environment.
type Config struct {
	Port            string
	LogLevel        logrus.Level
	LotSource       LotSource
	LotsFile        string
	PostgresURL     string
	WindowDays      int
	BenchmarkSymbol string
	YahooBaseURL    string
	GatewayTimeout  time.Duration
}

// Load reads a .env file when present and then the process environment.
func Load() (Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	var validationErrs []string

	cfg := Config{
		Port:            envDefault("PORT", "8080"),
		LotSource:       LotSource(strings.ToLower(envDefault("LOT_SOURCE", string(LotSourceFile)))),
		LotsFile:        envDefault("LOTS_FILE", "config/lots.yaml"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		BenchmarkSymbol: strings.ToUpper(envDefault("BENCHMARK_SYMBOL", "SPY")),
		YahooBaseURL:    envDefault("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
	}

	lvl, err := logrus.ParseLevel(envDefault("LOG_LEVEL", "debug"))
	if err != nil {
		validationErrs = append(validationErrs, "LOG_LEVEL: "+err.Error())
	}
	cfg.LogLevel = lvl

	cfg.WindowDays = envInt("WINDOW_DAYS", 90, &validationErrs)
	cfg.GatewayTimeout = time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", 10, &validationErrs)) * time.Second

	switch cfg.LotSource {
	case LotSourceFile:
		requireEnv("LOTS_FILE", cfg.LotsFile, &validationErrs)
	case LotSourcePostgres:
		requireEnv("POSTGRES_URL", cfg.PostgresURL, &validationErrs)
	default:
		validationErrs = append(validationErrs, "LOT_SOURCE must be file or postgres")
	}

	if len(validationErrs) > 0 {
		return cfg, errors.New(strings.Join(validationErrs, "; "))
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*errs = append(*errs, key+" must be a positive integer")
		return fallback
	}
	return n
}

func requireEnv(name, value string, errs *[]string) {
	if strings.TrimSpace(value) == "" {
		*errs = append(*errs, name+" is required")
	}
}
