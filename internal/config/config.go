package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config represents the global ~/.mailsync/config.toml.
type Config struct {
	DefaultSession string           `toml:"default_session"`
	FetchQueue     FetchQueueConfig `toml:"fetch_queue"`
	Sync           SyncConfig       `toml:"sync"`
	Outbox         OutboxConfig     `toml:"outbox"`
	Log            LogConfig        `toml:"log"`
}

// FetchQueueConfig selects the contact detail-fetch queue backend.
type FetchQueueConfig struct {
	// DSN is memory:// or redis://host:port/db?key=name. Empty means memory.
	DSN      string `toml:"dsn"`
	Capacity int    `toml:"capacity" validate:"gte=0"`
}

// SyncConfig tunes batch ingestion.
type SyncConfig struct {
	// BusBuffer is how many inbound batches may wait on the bus.
	BusBuffer      int `toml:"bus_buffer" validate:"gte=1"`
	FetchBatchSize int `toml:"fetch_batch_size" validate:"gte=1,lte=15"`
}

// OutboxConfig controls how long an outgoing action may stay running.
type OutboxConfig struct {
	ReapIntervalSec   int `toml:"reap_interval_sec" validate:"gte=1"`
	RunningTimeoutSec int `toml:"running_timeout_sec" validate:"gte=1"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		FetchQueue: FetchQueueConfig{DSN: "memory://", Capacity: 1024},
		Sync:       SyncConfig{BusBuffer: 64, FetchBatchSize: 15},
		Outbox:     OutboxConfig{ReapIntervalSec: 30, RunningTimeoutSec: 300},
		Log:        LogConfig{Level: "info"},
	}
}

var validate = validator.New()

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads config from the given path on top of the defaults. Returns an
// error if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
