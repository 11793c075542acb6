package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bleeparr/internal/api"
	"bleeparr/internal/logging"
	"bleeparr/internal/services"
)

const requestTimeout = 60 * time.Second

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
	baseCtx  context.Context
}

func newAPIServer(bind, token string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(token),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware(token))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Get("/status", s.handleStatus)
			r.Get("/preflight", s.handlePreflight)
			r.Get("/queue", s.handleQueueList)
			r.Post("/queue", s.handleEnqueue)
			r.Post("/queue/{kind}/{id}", s.handleEnqueueEntity)
			r.Delete("/queue", s.handleResetQueue)
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleResetHistory)
			r.Get("/filtered", s.handleFlags)
			r.Put("/filtered/{kind}/{id}", s.handleSetFiltered)
		})
		// A sync drains the queue and can run the censoring tool for hours.
		r.Post("/sync", s.handleSync)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.baseCtx = ctx
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.listener = nil
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) svc() *api.Service {
	return s.daemon.service
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handlePreflight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc().Preflight(r.Context()))
}

func (s *apiServer) handleQueueList(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc().Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status.Queue)
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "decode", "invalid request body", err))
		return
	}
	var (
		resp api.EnqueueResponse
		err  error
	)
	if req.ItemID == 0 && strings.TrimSpace(req.Kind) == "" {
		resp, err = s.svc().EnqueueFile(r.Context(), req.FilePath, req.DryRun)
	} else {
		resp, err = s.svc().Enqueue(r.Context(), req)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusOK
	if resp.Admitted {
		code = http.StatusCreated
	}
	writeJSON(w, code, resp)
}

func (s *apiServer) handleEnqueueEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var dryRun *bool
	if raw := r.URL.Query().Get("dryRun"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, services.Wrap(services.ErrValidation, "api", "decode", "invalid dryRun", err))
			return
		}
		dryRun = &value
	}
	resp, err := s.svc().EnqueueEntity(r.Context(), chi.URLParam(r, "kind"), id, dryRun)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleResetQueue(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc().ResetQueue(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	resp, err := s.svc().History(r.Context(), query.Get("kind"), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc().ResetHistory(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := s.svc().Flags(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (s *apiServer) handleSetFiltered(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "decode", "invalid request body", err))
		return
	}
	resp, err := s.svc().SetFiltered(r.Context(), chi.URLParam(r, "kind"), id, req.Filtered)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// syncContext detaches a manual cycle from the caller's connection so a
// disconnect cannot kill the tool mid-file. Daemon shutdown still cancels it.
func (s *apiServer) syncContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	if s.baseCtx == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(s.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.syncContext(r)
	defer cancel()
	resp, err := s.svc().TriggerSync(ctx)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "cycle": resp.Cycle, "errors": resp.Errors})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "decode", "invalid id", err))
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrExternalTool):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(s.logger, "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
