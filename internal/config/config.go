// Package config loads the settings shared by the tessera binaries from the
// environment, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// Config holds the settings of the tessera binaries.
type Config struct {
	// EntityFiles lists JSON entity configuration files.
	EntityFiles []string

	// TablePrefix is prepended to DynamoDB table names.
	TablePrefix string

	// Keyspace holds the generated CQL tables.
	Keyspace string

	// CQLHosts lists the Cassandra contact points.
	CQLHosts []string

	CQLUsername string
	CQLPassword string

	// ReplicationFactor is used when the keyspace is created.
	ReplicationFactor int

	// Consistency is used for writes and repairs.
	Consistency store.Consistency

	// ReadConsistency is used for reads.
	ReadConsistency store.Consistency

	// Timeout bounds requests to the database.
	Timeout time.Duration

	// LogLevel is the minimum level logged.
	LogLevel slog.Level
}

// NewDefaultConfig creates a Config with sensible default values.
func NewDefaultConfig() Config {
	return Config{
		Keyspace:          "tessera",
		CQLHosts:          []string{"127.0.0.1"},
		ReplicationFactor: 1,
		Consistency:       store.Quorum,
		ReadConsistency:   store.Quorum,
		Timeout:           10 * time.Second,
		LogLevel:          slog.LevelInfo,
	}
}

// LoadConfig loads configuration with a clear precedence: Environment >
// .env files > Defaults. Missing .env files are ignored.
func LoadConfig(envFiles ...string) Config {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Could not read env file", "error", err)
	}
	cfg := NewDefaultConfig()
	applyEnvConfig(&cfg)
	return cfg
}

// applyEnvConfig overrides config values from environment variables.
func applyEnvConfig(cfg *Config) {
	if v := os.Getenv("TESSERA_ENTITIES"); v != "" {
		cfg.EntityFiles = splitList(v)
		slog.Info("Overriding EntityFiles from environment", "value", cfg.EntityFiles)
	}

	if v, ok := os.LookupEnv("TESSERA_TABLE_PREFIX"); ok {
		cfg.TablePrefix = v
		slog.Info("Overriding TablePrefix from environment", "value", v)
	}

	if v := os.Getenv("TESSERA_KEYSPACE"); v != "" {
		cfg.Keyspace = v
		slog.Info("Overriding Keyspace from environment", "value", v)
	}

	if v := os.Getenv("TESSERA_CQL_HOSTS"); v != "" {
		cfg.CQLHosts = splitList(v)
		slog.Info("Overriding CQLHosts from environment", "value", cfg.CQLHosts)
	}

	if v := os.Getenv("TESSERA_CQL_USERNAME"); v != "" {
		cfg.CQLUsername = v
	}

	if v := os.Getenv("TESSERA_CQL_PASSWORD"); v != "" {
		cfg.CQLPassword = v
	}

	if v := os.Getenv("TESSERA_REPLICATION_FACTOR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.ReplicationFactor = i
			slog.Info("Overriding ReplicationFactor from environment", "value", i)
		} else {
			slog.Warn("Invalid TESSERA_REPLICATION_FACTOR env var, using default", "value", v)
		}
	}

	overrideConsistency("TESSERA_CONSISTENCY", &cfg.Consistency)
	overrideConsistency("TESSERA_READ_CONSISTENCY", &cfg.ReadConsistency)

	if v := os.Getenv("TESSERA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
			slog.Info("Overriding Timeout from environment", "value", v)
		} else {
			slog.Warn("Invalid TESSERA_TIMEOUT env var, using default", "value", v)
		}
	}

	if v := os.Getenv("TESSERA_LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = level
		} else {
			slog.Warn("Invalid TESSERA_LOG_LEVEL env var, using default", "value", v)
		}
	}
}

func overrideConsistency(envKey string, target *store.Consistency) {
	v := os.Getenv(envKey)
	if v == "" {
		return
	}
	c, err := store.ParseConsistency(strings.ToUpper(v))
	if err != nil {
		slog.Warn("Invalid consistency env var, using default", "key", envKey, "value", v)
		return
	}
	*target = c
	slog.Info("Overriding consistency from environment", "key", envKey, "value", c.String())
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Registry loads every entity file into a registry.
func (c Config) Registry(extra ...string) (*schema.Registry, error) {
	files := append(append([]string(nil), c.EntityFiles...), extra...)
	if len(files) == 0 {
		return nil, errors.New("no entity files configured (set TESSERA_ENTITIES)")
	}

	reg := schema.NewRegistry()
	for _, path := range files {
		e, err := schema.LoadEntity(path)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(e); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}

// StoreConfig returns the store configuration for these settings.
func (c Config) StoreConfig(logger *slog.Logger) store.Config {
	sc := store.DefaultConfig()
	sc.Keyspace = c.Keyspace
	sc.ReadConsistency = c.ReadConsistency
	sc.Logger = logger
	return sc
}

// NewLogger returns a logger at the configured level. JSON output suits log
// collectors; text output suits terminals.
func (c Config) NewLogger(w io.Writer, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
