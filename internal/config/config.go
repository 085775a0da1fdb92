package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Opencast contains connection and policy settings for the remote platform.
type Opencast struct {
	Host     string `toml:"host"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	// AdminURL pins the admin node base URL. When empty it is resolved from
	// /info/components.json on first use.
	AdminURL      string `toml:"admin_url"`
	PlayerPath    string `toml:"player_path"`
	SchedulerPath string `toml:"scheduler_path"`
	DashboardPath string `toml:"dashboard_path"`
	Insecure      bool   `toml:"insecure"`

	DeleteArchiveMediaPackage bool   `toml:"delete_archive_mediapackage"`
	DeletionWorkflowName      string `toml:"deletion_workflow_name"`
	ManageUsers               bool   `toml:"manage_users"`
	// UserPassword is the initial password assigned to provisioned accounts.
	UserPassword string `toml:"user_password"`
	// RoleHierarchy maps a role onto the roles it implies; provisioned
	// accounts get the full reachable set.
	RoleHierarchy map[string][]string `toml:"role_hierarchy"`

	ConnectTimeout    int `toml:"connect_timeout"`
	RequestTimeout    int `toml:"request_timeout"`
	BatchDelaySeconds int `toml:"batch_delay_seconds"`
}

// Import contains settings for the import reconciler.
type Import struct {
	OtherLocales       []string `toml:"other_locales"`
	DefaultTagImported string   `toml:"default_tag_imported"`
	CustomLanguages    []string `toml:"custom_languages"`
	DefaultLanguage    string   `toml:"default_language"`
	BatchInverted      bool     `toml:"batch_inverted"`
	PicFlavors         []string `toml:"pic_flavors"`
	// IdentityProperty names the key inside the recorder property block that
	// points back at an existing multimedia object.
	IdentityProperty string `toml:"identity_property"`
}

// SBS contains configuration for side-by-side rendering job submission.
type SBS struct {
	Generate   bool   `toml:"generate"`
	Profile    string `toml:"profile"`
	UseFlavour bool   `toml:"use_flavour"`
	Flavour    string `toml:"flavour"`
	// EncoderURL is the job-submission endpoint of the downstream encoder.
	EncoderURL          string            `toml:"encoder_url"`
	DefaultVars         map[string]string `toml:"default_vars"`
	ErrorIfFileNotExist bool              `toml:"error_if_file_not_exist"`
}

// URLMapping maps a remote track URL prefix onto a local filesystem path.
type URLMapping struct {
	URL  string `toml:"url"`
	Path string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for castsync.
//
// Configuration sections by subsystem:
//   - Paths: library database and log directories
//   - Opencast: remote platform connection, credentials, and policy flags
//   - Import: locales, languages, taxonomy tag, and thumbnail flavors
//   - SBS: side-by-side rendering job submission
//   - URLMapping: remote URL to local path resolution for tracks
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Opencast      Opencast      `toml:"opencast"`
	Import        Import        `toml:"import"`
	SBS           SBS           `toml:"sbs"`
	URLMapping    []URLMapping  `toml:"url_mapping"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/castsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("castsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
