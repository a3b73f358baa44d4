// Package internal provides configuration and command orchestration for
// the iatf CLI.
package internal

import (
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the tool configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Documents DocumentsConfig   `yaml:"documents"`
	Registry  RegistryConfig    `yaml:"registry"`
	Watch     WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Documents.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds tool-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// DocumentsConfig controls how documents are discovered.
type DocumentsConfig struct {
	Extension string `yaml:"extension"`
}

// Validate validates the documents configuration.
func (c *DocumentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Extension, validation.Required,
			validation.By(func(interface{}) error {
				if !strings.HasPrefix(c.Extension, ".") {
					return validation.NewError("validation_extension", "must start with a dot")
				}
				return nil
			})),
	)
}

// RegistryConfig holds the watch registry location. An empty path resolves
// to the per-user default at startup.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig holds the poll-and-rebuild loop timings.
type WatchConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollInterval, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Documents: DocumentsConfig{
			Extension: ".iatf",
		},
		Watch: WatchConfig{
			PollInterval: time.Second,
			Debounce:     3 * time.Second,
		},
	}
}
