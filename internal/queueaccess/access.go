// Package queueaccess gives CLI commands one interface over the daemon
// control API and direct store access.
package queueaccess

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"bleeparr/internal/api"
	"bleeparr/internal/daemonctl"
)

// Access provides operator operations regardless of backing.
type Access interface {
	Mode() string
	Status(ctx context.Context) (api.Status, error)
	Preflight(ctx context.Context) ([]api.CheckResult, error)
	Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error)
	EnqueueFile(ctx context.Context, path string, dryRun *bool) (api.EnqueueResponse, error)
	EnqueueEntity(ctx context.Context, kind string, id int64, dryRun *bool) (api.BulkEnqueueResponse, error)
	History(ctx context.Context, kind string, limit, offset int) (api.HistoryResponse, error)
	ResetQueue(ctx context.Context) (api.ResetResponse, error)
	ResetHistory(ctx context.Context) (api.ResetResponse, error)
	SetFiltered(ctx context.Context, kind string, id int64, filtered bool) (api.FilterItem, error)
	Flags(ctx context.Context) ([]api.FilterItem, error)
	Sync(ctx context.Context) (api.SyncResponse, error)
}

// Mode names.
const (
	ModeDaemon = "daemon"
	ModeLocal  = "local"
)

// NewRemoteAccess returns an Access backed by the daemon control API.
func NewRemoteAccess(client *daemonctl.Client) Access {
	return &remoteAccess{client: client}
}

// NewLocalAccess returns an Access backed by an in-process service. Sync
// takes the daemon lock at lockPath so it never overlaps a running daemon.
func NewLocalAccess(svc *api.Service, lockPath string) Access {
	return &localAccess{svc: svc, lockPath: lockPath}
}

type remoteAccess struct {
	client *daemonctl.Client
}

func (a *remoteAccess) Mode() string { return ModeDaemon }

func (a *remoteAccess) Status(ctx context.Context) (api.Status, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return api.Status{}, err
	}
	return status.Service, nil
}

func (a *remoteAccess) Preflight(ctx context.Context) ([]api.CheckResult, error) {
	return a.client.Preflight(ctx)
}

func (a *remoteAccess) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	return a.client.Enqueue(ctx, req)
}

func (a *remoteAccess) EnqueueFile(ctx context.Context, path string, dryRun *bool) (api.EnqueueResponse, error) {
	return a.client.Enqueue(ctx, api.EnqueueRequest{FilePath: path, DryRun: dryRun})
}

func (a *remoteAccess) EnqueueEntity(ctx context.Context, kind string, id int64, dryRun *bool) (api.BulkEnqueueResponse, error) {
	return a.client.EnqueueEntity(ctx, kind, id, dryRun)
}

func (a *remoteAccess) History(ctx context.Context, kind string, limit, offset int) (api.HistoryResponse, error) {
	return a.client.History(ctx, kind, limit, offset)
}

func (a *remoteAccess) ResetQueue(ctx context.Context) (api.ResetResponse, error) {
	return a.client.ResetQueue(ctx)
}

func (a *remoteAccess) ResetHistory(ctx context.Context) (api.ResetResponse, error) {
	return a.client.ResetHistory(ctx)
}

func (a *remoteAccess) SetFiltered(ctx context.Context, kind string, id int64, filtered bool) (api.FilterItem, error) {
	return a.client.SetFiltered(ctx, kind, id, filtered)
}

func (a *remoteAccess) Flags(ctx context.Context) ([]api.FilterItem, error) {
	return a.client.Flags(ctx)
}

func (a *remoteAccess) Sync(ctx context.Context) (api.SyncResponse, error) {
	return a.client.Sync(ctx)
}

type localAccess struct {
	svc      *api.Service
	lockPath string
}

func (a *localAccess) Mode() string { return ModeLocal }

func (a *localAccess) Status(ctx context.Context) (api.Status, error) {
	return a.svc.Status(ctx)
}

func (a *localAccess) Preflight(ctx context.Context) ([]api.CheckResult, error) {
	return a.svc.Preflight(ctx), nil
}

func (a *localAccess) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	return a.svc.Enqueue(ctx, req)
}

func (a *localAccess) EnqueueFile(ctx context.Context, path string, dryRun *bool) (api.EnqueueResponse, error) {
	return a.svc.EnqueueFile(ctx, path, dryRun)
}

func (a *localAccess) EnqueueEntity(ctx context.Context, kind string, id int64, dryRun *bool) (api.BulkEnqueueResponse, error) {
	return a.svc.EnqueueEntity(ctx, kind, id, dryRun)
}

func (a *localAccess) History(ctx context.Context, kind string, limit, offset int) (api.HistoryResponse, error) {
	return a.svc.History(ctx, kind, limit, offset)
}

func (a *localAccess) ResetQueue(ctx context.Context) (api.ResetResponse, error) {
	return a.svc.ResetQueue(ctx)
}

func (a *localAccess) ResetHistory(ctx context.Context) (api.ResetResponse, error) {
	return a.svc.ResetHistory(ctx)
}

func (a *localAccess) SetFiltered(ctx context.Context, kind string, id int64, filtered bool) (api.FilterItem, error) {
	return a.svc.SetFiltered(ctx, kind, id, filtered)
}

func (a *localAccess) Flags(ctx context.Context) ([]api.FilterItem, error) {
	return a.svc.Flags(ctx)
}

// ErrDaemonLocked reports that a daemon holds the lock but its API did not
// answer.
var ErrDaemonLocked = errors.New("daemon lock held")

func (a *localAccess) Sync(ctx context.Context) (api.SyncResponse, error) {
	lock := flock.New(a.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return api.SyncResponse{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return api.SyncResponse{}, fmt.Errorf("%w: a daemon is running but its API is unreachable", ErrDaemonLocked)
	}
	defer func() { _ = lock.Unlock() }()
	return a.svc.TriggerSync(ctx)
}
