package config

import (
	"fmt"
	"os"
	"time"
)

// Config carries the runtime settings for the auction server. Everything is
// sourced from environment variables so the same binary runs locally and in
// containers without a config file.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MongoURI selects the Mongo-backed store when set; empty means the
	// in-memory store.
	MongoURI string

	// MongoDatabase is the database name used by the Mongo store.
	MongoDatabase string

	// JWTSecret signs/verifies connection tokens. Empty disables token
	// verification (connections identify via the user_id query parameter).
	JWTSecret string

	// SweepInterval is the period of the auction-closing sweep.
	SweepInterval time.Duration
}

const defaultSweepInterval = 10 * time.Second

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	cfg := Config{
		Addr:          ":8080",
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: "bidify",
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SweepInterval: defaultSweepInterval,
	}

	if p := os.Getenv("PORT"); p != "" {
		cfg.Addr = fmt.Sprintf(":%s", p)
	}
	if db := os.Getenv("MONGO_DB"); db != "" {
		cfg.MongoDatabase = db
	}
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}

	return cfg
}
