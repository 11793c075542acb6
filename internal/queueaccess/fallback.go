package queueaccess

import (
	"context"
	"fmt"
	"time"

	"bleeparr/internal/api"
	"bleeparr/internal/daemonctl"
)

const pingTimeout = 2 * time.Second

// Session represents an access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// LocalOpener builds an in-process service and returns its cleanup.
type LocalOpener func() (svc *api.Service, lockPath string, closeFn func() error, err error)

// OpenWithFallback prefers a daemon that answers on its control API and
// falls back to direct store access.
func OpenWithFallback(ctx context.Context, client *daemonctl.Client, openLocal LocalOpener) (Session, error) {
	if client != nil {
		if err := client.Ping(ctx, pingTimeout); err == nil {
			return Session{Access: NewRemoteAccess(client)}, nil
		}
	}

	if openLocal == nil {
		return Session{}, fmt.Errorf("open store: no local opener configured")
	}
	svc, lockPath, closeFn, err := openLocal()
	if err != nil {
		return Session{}, fmt.Errorf("open store: %w", err)
	}
	return Session{Access: NewLocalAccess(svc, lockPath), close: closeFn}, nil
}
