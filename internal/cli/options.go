package cli

// Options contains the configuration shared by every keel command.
type Options struct {
	Dir      string
	Path     string // Root description, relative to Dir. Empty picks the entry point.
	LogLevel string
	RedisURL string // Override store; empty keeps overrides in memory.
	Tolerate bool   // Skip failing operations instead of aborting the load.

	// MetricsAddr serves Prometheus metrics while watching. Empty disables it.
	MetricsAddr string
}
