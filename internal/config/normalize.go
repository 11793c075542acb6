package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArr()
	c.normalizeWorkflow()
	c.normalizeResolver()
	c.normalizeAdmission()
	c.normalizeTool()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeArr() {
	c.Sonarr.URL = strings.TrimRight(strings.TrimSpace(c.Sonarr.URL), "/")
	c.Sonarr.APIKey = strings.TrimSpace(c.Sonarr.APIKey)
	c.Radarr.URL = strings.TrimRight(strings.TrimSpace(c.Radarr.URL), "/")
	c.Radarr.APIKey = strings.TrimSpace(c.Radarr.APIKey)
	if c.Sonarr.URL == "" {
		c.Sonarr.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("SONARR_URL")), "/")
	}
	if c.Sonarr.APIKey == "" {
		c.Sonarr.APIKey = strings.TrimSpace(os.Getenv("SONARR_API_KEY"))
	}
	if c.Radarr.URL == "" {
		c.Radarr.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("RADARR_URL")), "/")
	}
	if c.Radarr.APIKey == "" {
		c.Radarr.APIKey = strings.TrimSpace(os.Getenv("RADARR_API_KEY"))
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.TickSeconds <= 0 {
		c.Workflow.TickSeconds = defaultTickSeconds
	}
	if c.Workflow.LookbackMinutes <= 0 {
		c.Workflow.LookbackMinutes = defaultLookbackMinutes
	}
	if c.Workflow.SourceTimeoutSeconds <= 0 {
		c.Workflow.SourceTimeoutSeconds = defaultSourceTimeoutSeconds
	}
}

func (c *Config) normalizeResolver() {
	roots := make([]string, 0, len(c.Resolver.FallbackRoots))
	seen := make(map[string]struct{}, len(c.Resolver.FallbackRoots))
	for _, root := range c.Resolver.FallbackRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	c.Resolver.FallbackRoots = roots
	if c.Resolver.MaxDepth <= 0 {
		c.Resolver.MaxDepth = defaultResolverMaxDepth
	}
	if c.Resolver.MaxFiles <= 0 {
		c.Resolver.MaxFiles = defaultResolverMaxFiles
	}
}

func (c *Config) normalizeAdmission() {
	c.Admission.DedupPolicy = strings.ToLower(strings.TrimSpace(c.Admission.DedupPolicy))
	if c.Admission.DedupPolicy == "" {
		c.Admission.DedupPolicy = defaultDedupPolicy
	}
	if c.Admission.WindowSeconds <= 0 {
		c.Admission.WindowSeconds = defaultDedupWindowSeconds
	}
}

func (c *Config) normalizeTool() {
	c.Tool.Binary = strings.TrimSpace(c.Tool.Binary)
	if c.Tool.Binary == "" {
		c.Tool.Binary = defaultToolBinary
	}
	if c.Tool.TimeoutSeconds <= 0 {
		c.Tool.TimeoutSeconds = defaultToolTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSeconds
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
