package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// UnknownCodePolicy decides what the transformer does with a business
// code that has no entry in the seeded dimensions.
type UnknownCodePolicy string

const (
	// PolicyMapToUnknown maps the code to the reserved "Unknown"
	// dimension member. Default: dropping out-of-vocabulary codes would
	// skew fact-table totals.
	PolicyMapToUnknown UnknownCodePolicy = "unknown"
	// PolicyReject rejects the row with dimension_resolution_failed.
	PolicyReject UnknownCodePolicy = "reject"
)

// Config holds pipeline settings, read from the environment with an
// optional .env file.
type Config struct {
	// WarehouseDriver is "sqlite3" or "postgres".
	WarehouseDriver string
	// WarehouseDSN is the database/sql DSN for the chosen driver.
	WarehouseDSN string
	// UnknownPolicy is applied uniformly to all three dimensions.
	UnknownPolicy UnknownCodePolicy
	// MaxRejectedPct fails the overall pipeline run when a stage rejects
	// more than this percentage of its input.
	MaxRejectedPct float64
	// APIAddr is the listen address for the pipeline API server.
	APIAddr string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first if present.
func Load() Config {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	return Config{
		WarehouseDriver: getEnv("WAREHOUSE_DRIVER", "sqlite3"),
		WarehouseDSN:    getEnv("WAREHOUSE_DSN", "warehouse.db"),
		UnknownPolicy:   UnknownCodePolicy(getEnv("UNKNOWN_CODE_POLICY", string(PolicyMapToUnknown))),
		MaxRejectedPct:  getEnvFloat("MAX_REJECTED_PCT", 5.0),
		APIAddr:         getEnv("API_ADDR", ":8080"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
