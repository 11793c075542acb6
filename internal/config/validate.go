package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateArr("sonarr", c.Sonarr); err != nil {
		return err
	}
	if err := c.validateArr("radarr", c.Radarr); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateAdmission(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.APIBind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateArr(section string, arr Arr) error {
	if arr.URL == "" {
		return nil
	}
	parsed, err := url.Parse(arr.URL)
	if err != nil {
		return fmt.Errorf("%s.url: %w", section, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s.url must use http or https, got %q", section, arr.URL)
	}
	return nil
}

func (c *Config) validateResolver() error {
	for _, root := range c.Resolver.FallbackRoots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("resolver.fallback_roots entry %q must be absolute", root)
		}
	}
	return nil
}

func (c *Config) validateAdmission() error {
	switch c.Admission.DedupPolicy {
	case DedupIdentity, DedupPath, DedupWindow:
		return nil
	default:
		return fmt.Errorf("admission.dedup_policy must be one of %q, %q, %q; got %q",
			DedupIdentity, DedupPath, DedupWindow, c.Admission.DedupPolicy)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
