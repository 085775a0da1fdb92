package testsupport

import (
	"path/filepath"
	"testing"

	"castsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Opencast.Host = "http://opencast.test"

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHost overrides the platform host on the test config.
func WithHost(host string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Opencast.Host = host
	}
}

// WithArchiveDeletion enables archive deletion management on the test config.
func WithArchiveDeletion(workflow string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Opencast.DeleteArchiveMediaPackage = true
		if workflow != "" {
			b.cfg.Opencast.DeletionWorkflowName = workflow
		}
	}
}
