// Package config loads runtime configuration from the environment with
// sensible defaults. Fare rates and the commission rate are deliberately not
// here: they live in the database so admins can change them at runtime.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Auth struct {
		JWTSecret string
	}
	Dispatch DispatchConfig
	Log      LogConfig
}

type DispatchConfig struct {
	// DefaultRadiusKm is the broadcast radius used when a dispatcher does not
	// override it per order.
	DefaultRadiusKm float64
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("TAXI_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("TAXI_DB_DSN")
	cfg.Redis.Addr = envOrDefault("TAXI_REDIS_ADDR", "localhost:6379")
	cfg.Auth.JWTSecret = os.Getenv("TAXI_JWT_SECRET")
	cfg.Dispatch.DefaultRadiusKm = envOrDefaultFloat("TAXI_DISPATCH_RADIUS_KM", 3.0)
	cfg.Log.Level = envOrDefault("TAXI_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("TAXI_LOG_FORMAT", "text")
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}
