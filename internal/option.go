package internal

import (
	"io"
	"log/slog"

	"github.com/winds-ai/iatf/internal/registry"
)

// Option is a functional option for configuring the App.
type Option func(*App)

// WithConfig sets the tool configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithStore overrides the watch registry store (tests use a fake).
func WithStore(store registry.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithOutput redirects human-facing command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithInput overrides the prompt input stream.
func WithInput(stdin io.Reader) Option {
	return func(a *App) {
		a.stdin = stdin
	}
}

// WithInteractive forces the interactive-terminal decision, bypassing the
// stdin probe. Tests use this to exercise both prompt paths.
func WithInteractive(interactive bool) Option {
	return func(a *App) {
		forced := interactive
		a.interactive = func() bool { return forced }
	}
}
