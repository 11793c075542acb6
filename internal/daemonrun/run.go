package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"bleeparr/internal/api"
	"bleeparr/internal/config"
	"bleeparr/internal/daemon"
	"bleeparr/internal/logging"
	"bleeparr/internal/queue"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the bleeparr daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("run_id", uuid.NewString()))

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	components := Build(cfg, store, logger)
	logStartupChecks(signalCtx, logger, components.Service)

	d, err := daemon.New(cfg, store, components.Workflow, components.Service, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other instance or check the data directory"),
		)
		return err
	}
	logger.Info("queue store ready",
		logging.String(logging.FieldEventType, "store_ready"),
		logging.String("database", store.Path()),
		logging.String("dedup_policy", string(store.Policy().Mode)),
	)

	<-signalCtx.Done()
	logger.Info("bleeparr daemon shutting down", logging.String(logging.FieldEventType, "daemon_stopping"))
	d.Stop()
	return nil
}

// PIDPath returns the pid file written while the daemon runs.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "bleeparr.pid")
}

// ReadPID returns the pid recorded at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s: invalid contents", path)
	}
	return pid, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartupChecks(ctx context.Context, logger *slog.Logger, svc *api.Service) {
	status, err := svc.Status(ctx)
	if err == nil {
		attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
		for _, dep := range status.Dependencies {
			attrs = append(attrs,
				logging.Bool(dep.Name+"_available", dep.Available),
				logging.String(dep.Name+"_command", dep.Command),
			)
		}
		logger.Info("dependency snapshot", logging.Args(attrs...)...)
	}

	for _, result := range svc.Preflight(ctx) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "affected items will fail until this is fixed"),
		)
	}
}
