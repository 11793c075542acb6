package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bleeparr/internal/api"
	"bleeparr/internal/config"
	"bleeparr/internal/daemonctl"
	"bleeparr/internal/daemonrun"
	"bleeparr/internal/logging"
	"bleeparr/internal/queue"
	"bleeparr/internal/queueaccess"
	"bleeparr/internal/settings"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// cliLogger keeps library warnings off the terminal unless they are errors.
func cliLogger() *slog.Logger {
	logger, err := logging.New(logging.Options{Level: "error", Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) client() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil, nil
	}
	return daemonctl.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

// withAccess runs fn against the daemon when it answers, else against the
// database directly.
func (c *commandContext) withAccess(cmd *cobra.Command, fn func(queueaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client, err := c.client()
	if err != nil {
		return fmt.Errorf("control api: %w", err)
	}
	session, err := queueaccess.OpenWithFallback(cmd.Context(), client, func() (*api.Service, string, func() error, error) {
		return daemonrun.OpenLocal(cfg, cliLogger())
	})
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

// withSettings opens the store for commands that only touch the settings
// table. SQLite WAL lets this run next to a live daemon.
func (c *commandContext) withSettings(fn func(*config.Config, *queue.Store, *settings.Reader) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store, settings.NewReader(store, cfg, cliLogger()))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
