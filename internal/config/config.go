package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         int
	LogLevel     string
	RulesPath    string
	StoreDriver  string // memory | sqlite | postgres
	DatabaseURL  string
	SQLitePath   string
	StoreTimeout time.Duration
	NatsURL      string
	SpacyURL     string
	SpacyKey     string
	SpacyTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:         envInt("ATTUNE_PORT", 8620),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		RulesPath:    envStr("ATTUNE_RULES_PATH", ""),
		StoreDriver:  envStr("ATTUNE_STORE", "memory"),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		SQLitePath:   envStr("ATTUNE_SQLITE_PATH", "attune.db"),
		StoreTimeout: envDur("ATTUNE_STORE_TIMEOUT", 2*time.Second),
		NatsURL:      envStr("NATS_URL", ""),
		SpacyURL:     envStr("SPACY_URL", ""),
		SpacyKey:     envStr("SPACY_INTERNAL_KEY", ""),
		SpacyTimeout: envDur("SPACY_TIMEOUT", 3*time.Second),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
