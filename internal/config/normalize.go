package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpencast()
	c.normalizeImport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpencast() {
	c.Opencast.Host = strings.TrimRight(strings.TrimSpace(c.Opencast.Host), "/")
	if c.Opencast.Username == "" {
		if value, ok := os.LookupEnv("OPENCAST_USERNAME"); ok {
			c.Opencast.Username = value
		}
	}
	if c.Opencast.Password == "" {
		if value, ok := os.LookupEnv("OPENCAST_PASSWORD"); ok {
			c.Opencast.Password = value
		}
	}
	if strings.TrimSpace(c.Opencast.DeletionWorkflowName) == "" {
		c.Opencast.DeletionWorkflowName = defaultDeletionWorkflowName
	}
	if c.Opencast.ConnectTimeout <= 0 {
		c.Opencast.ConnectTimeout = defaultConnectTimeout
	}
	if c.Opencast.RequestTimeout <= 0 {
		c.Opencast.RequestTimeout = defaultRequestTimeout
	}
	if c.Opencast.BatchDelaySeconds < 0 {
		c.Opencast.BatchDelaySeconds = 0
	}
	if strings.TrimSpace(c.Opencast.UserPassword) == "" {
		c.Opencast.UserPassword = defaultUserPassword
	}
}

func (c *Config) normalizeImport() {
	if strings.TrimSpace(c.Import.DefaultLanguage) == "" {
		c.Import.DefaultLanguage = defaultLanguage
	}
	if len(c.Import.PicFlavors) == 0 {
		c.Import.PicFlavors = Default().Import.PicFlavors
	}
	if strings.TrimSpace(c.Import.IdentityProperty) == "" {
		c.Import.IdentityProperty = defaultIdentityProperty
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
