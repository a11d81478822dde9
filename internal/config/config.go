// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
	StoreMySQL    StoreKind = "mysql"
	StoreRedis    StoreKind = "redis"
)

type Config struct {
	Port     string
	LogLevel string

	Store    StoreKind
	DBDSN    string
	RedisURL string
	RedisKey string

	Seed     bool
	SeedFile string

	MetricsEnabled bool
	MetricsToken   string

	RateLimitPerMin   int
	TrustForwardedFor bool
}

func (c Config) Addr() string { return ":" + c.Port }

func Load() (Config, error) {
	c := Config{
		Port:     GetEnv("PORT", "8080"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),

		Store:    StoreKind(strings.ToLower(GetEnv("STORE", string(StoreMemory)))),
		DBDSN:    os.Getenv("DB_DSN"),
		RedisURL: GetEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisKey: GetEnv("REDIS_KEY", "beers"),

		Seed:     GetEnvAsBool("SEED", true),
		SeedFile: os.Getenv("SEED_FILE"),

		MetricsEnabled: GetEnvAsBool("METRICS_ENABLED", true),
		MetricsToken:   os.Getenv("METRICS_TOKEN"),

		RateLimitPerMin:   GetEnvAsInt("RATE_LIMIT_PER_MIN", 0),
		TrustForwardedFor: GetEnvAsBool("TRUST_FORWARDED_FOR", false),
	}

	switch c.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres, StoreMySQL:
		if c.DBDSN == "" {
			return Config{}, fmt.Errorf("DB_DSN is required for STORE=%s", c.Store)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE %q", c.Store)
	}

	if c.RateLimitPerMin < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative")
	}

	return c, nil
}

func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func GetEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(GetEnv(key, "")); err == nil {
		return v
	}
	return fallback
}
