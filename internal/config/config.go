// Package config loads the pipeline configuration from a TOML file.
// The config is passed explicitly into the pipeline at call time; no
// package reads it from ambient state.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config controls one pipeline run.
type Config struct {
	// MaxEmails bounds how many emails a single run will process.
	MaxEmails int `toml:"max_emails"`
	// Concurrency bounds the worker fan-out across emails.
	Concurrency int `toml:"concurrency"`
	// EnabledParsers lists parser names in dispatch order. Empty means
	// all registered parsers in their default order.
	EnabledParsers []string `toml:"enabled_parsers"`
	// AutoProcess enables creating payments for high-tier credit
	// matches. When false every match is queued for review.
	AutoProcess bool `toml:"auto_process"`
	// DuplicateToleranceDays widens the duplicate date check by +/- N days.
	DuplicateToleranceDays int `toml:"duplicate_tolerance_days"`

	PDF PDFConfig `toml:"pdf"`
}

// PDFConfig supplies statement attachment passwords. Statement PDFs are
// usually protected with a per-account password; AccountPasswords is
// keyed by the masked account's last four digits.
type PDFConfig struct {
	DefaultPassword  string            `toml:"default_password"`
	AccountPasswords map[string]string `toml:"account_passwords"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxEmails:              50,
		Concurrency:            4,
		AutoProcess:            true,
		DuplicateToleranceDays: 1,
	}
}

// Load reads a TOML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DuplicateToleranceDays < 0 {
		cfg.DuplicateToleranceDays = 0
	}
	return cfg, nil
}

// PasswordFor returns the PDF password for a masked account fragment,
// falling back to the default password. The boolean reports whether any
// password is configured at all.
func (c PDFConfig) PasswordFor(accountLast4 string) (string, bool) {
	if accountLast4 != "" {
		if pw, ok := c.AccountPasswords[accountLast4]; ok && pw != "" {
			return pw, true
		}
	}
	if c.DefaultPassword != "" {
		return c.DefaultPassword, true
	}
	return "", false
}
