package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpencast(); err != nil {
		return err
	}
	if err := c.validateSBS(); err != nil {
		return err
	}
	if err := c.validateURLMapping(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOpencast() error {
	if c.Opencast.Host == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/castsync/config.toml"
		}
		return fmt.Errorf("opencast.host is required. Edit %s (create with 'castsync config init')", defaultPath)
	}
	if _, err := url.ParseRequestURI(c.Opencast.Host); err != nil {
		return fmt.Errorf("opencast.host must be a valid URL: %w", err)
	}
	if c.Opencast.AdminURL != "" {
		if _, err := url.ParseRequestURI(c.Opencast.AdminURL); err != nil {
			return fmt.Errorf("opencast.admin_url must be a valid URL: %w", err)
		}
	}
	return nil
}

func (c *Config) validateSBS() error {
	if !c.SBS.Generate {
		return nil
	}
	if strings.TrimSpace(c.SBS.Profile) == "" {
		return errors.New("sbs.profile must be set when sbs.generate is enabled")
	}
	if strings.TrimSpace(c.SBS.EncoderURL) == "" {
		return errors.New("sbs.encoder_url must be set when sbs.generate is enabled")
	}
	return nil
}

func (c *Config) validateURLMapping() error {
	for i, mapping := range c.URLMapping {
		if strings.TrimSpace(mapping.URL) == "" || strings.TrimSpace(mapping.Path) == "" {
			return fmt.Errorf("url_mapping[%d]: url and path must both be set", i)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json", "console":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
