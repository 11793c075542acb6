package daemonrun

import (
	"context"
	"fmt"
	"log/slog"

	"bleeparr/internal/api"
	"bleeparr/internal/censor"
	"bleeparr/internal/config"
	"bleeparr/internal/notifications"
	"bleeparr/internal/pathmap"
	"bleeparr/internal/queue"
	"bleeparr/internal/services/arr"
	"bleeparr/internal/settings"
	"bleeparr/internal/workflow"
)

// Components is the wired object graph shared by the daemon and the CLI's
// in-process fallback.
type Components struct {
	Settings *settings.Reader
	Resolver *pathmap.Resolver
	Sources  []arr.Adapter
	Runner   *censor.Runner
	Notifier notifications.Service
	Workflow *workflow.Manager
	Service  *api.Service
}

// Build wires every collaborator around an open store.
func Build(cfg *config.Config, store *queue.Store, logger *slog.Logger) Components {
	reader := settings.NewReader(store, cfg, logger)
	sourceOpts := []arr.Option{arr.WithTimeout(cfg.SourceTimeout())}

	sonarr := arr.NewSonarr(func(ctx context.Context) arr.Endpoint {
		conn := reader.Sonarr(ctx)
		return arr.Endpoint{URL: conn.URL, APIKey: conn.APIKey}
	}, store, sourceOpts...)
	radarr := arr.NewRadarr(func(ctx context.Context) arr.Endpoint {
		conn := reader.Radarr(ctx)
		return arr.Endpoint{URL: conn.URL, APIKey: conn.APIKey}
	}, store, sourceOpts...)
	sources := []arr.Adapter{sonarr, radarr}

	resolver := pathmap.NewResolver(cfg, reader, logger)
	runner := censor.New(cfg.Tool.Binary, cfg.ToolTimeout(), censor.WithLogger(logger))
	notifier := notifications.NewService(cfg)

	manager := workflow.NewManager(cfg, store, workflow.Dependencies{
		Sources:  sources,
		Resolver: resolver,
		Runner:   runner,
		Settings: reader,
		Notifier: notifier,
	}, logger)

	svc := api.NewService(api.Dependencies{
		Config:   cfg,
		Store:    store,
		Resolver: resolver,
		Settings: reader,
		Workflow: manager,
		Sources:  sources,
	}, logger)

	return Components{
		Settings: reader,
		Resolver: resolver,
		Sources:  sources,
		Runner:   runner,
		Notifier: notifier,
		Workflow: manager,
		Service:  svc,
	}
}

// OpenLocal opens the store and builds the service for direct access. The
// returned function closes the store.
func OpenLocal(cfg *config.Config, logger *slog.Logger) (*api.Service, string, func() error, error) {
	if cfg == nil {
		return nil, "", nil, fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, "", nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	components := Build(cfg, store, logger)
	return components.Service, cfg.LockPath(), store.Close, nil
}
