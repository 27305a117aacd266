package internal

import (
	"io"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	force   bool
	// logOut receives the JSON log; nil means stdout.
	logOut io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithForce makes Analyze run even when the corpus is unchanged.
func WithForce(force bool) Option {
	return func(a *application) {
		a.force = force
	}
}

// WithLogOutput redirects the JSON log, e.g. to stderr when stdout carries
// the MCP stdio transport.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
