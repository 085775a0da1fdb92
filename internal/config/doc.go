// Package config loads and validates the TOML configuration that drives the
// Opencast client, the import reconciler, and the CLI.
package config
