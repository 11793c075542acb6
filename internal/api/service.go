package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"bleeparr/internal/config"
	"bleeparr/internal/deps"
	"bleeparr/internal/logging"
	"bleeparr/internal/preflight"
	"bleeparr/internal/queue"
	"bleeparr/internal/services"
	"bleeparr/internal/services/arr"
	"bleeparr/internal/workflow"
)

const recentHistory = 10

// Workflow is the subset of the poll loop the API drives.
type Workflow interface {
	RunCycle(ctx context.Context) (workflow.CycleSummary, error)
	Status(ctx context.Context) workflow.StatusSummary
}

// Dependencies bundles the collaborators of a Service.
type Dependencies struct {
	Config   *config.Config
	Store    *queue.Store
	Resolver workflow.Resolver
	Settings workflow.Settings
	Workflow Workflow
	Sources  []arr.Adapter
}

// Service implements the operator-facing operations.
type Service struct {
	cfg      *config.Config
	store    *queue.Store
	resolver workflow.Resolver
	settings workflow.Settings
	workflow Workflow
	sources  []arr.Adapter
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(deps Dependencies, logger *slog.Logger) *Service {
	return &Service{
		cfg:      deps.Config,
		store:    deps.Store,
		resolver: deps.Resolver,
		settings: deps.Settings,
		workflow: deps.Workflow,
		sources:  deps.Sources,
		logger:   logging.NewComponentLogger(logger, "api"),
	}
}

func validation(op, msg string) error {
	return services.Wrap(services.ErrValidation, "api", op, msg, nil)
}

func (s *Service) dryRun(ctx context.Context, override *bool) bool {
	if override != nil {
		return *override
	}
	if s.settings == nil {
		return false
	}
	return s.settings.DryRun(ctx)
}

func (s *Service) resolve(ctx context.Context, path string) bool {
	if s.resolver == nil {
		return false
	}
	_, ok := s.resolver.Resolve(ctx, path)
	return ok
}

func (s *Service) admit(ctx context.Context, op string, item *queue.Item) (bool, error) {
	ok, err := s.store.Admit(ctx, item)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidItem) {
			return false, services.Wrap(services.ErrValidation, "api", op, "invalid item", err)
		}
		return false, err
	}
	if ok {
		s.logger.Info("item enqueued",
			logging.String(logging.FieldEventType, "item_enqueued"),
			logging.String(logging.FieldItemKind, string(item.Kind)),
			logging.Int64(logging.FieldItemID, item.ItemID),
			logging.Bool("manual", item.Manual),
			logging.String("path", item.FilePath),
		)
	}
	return ok, nil
}

// Enqueue admits one item. Manual items must resolve to a local file and
// bypass the history check; the resolved path is not stored, so the drain
// resolves again against the mappings current at that time.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResponse, error) {
	kind, err := queue.ParseKind(req.Kind)
	if err != nil {
		return EnqueueResponse{}, validation("enqueue", err.Error())
	}
	media := queue.Media{Kind: kind, ItemID: req.ItemID, SeriesID: req.SeriesID}
	if kind == queue.KindMovie {
		media.SeriesID = 0
	}
	if err := media.Validate(); err != nil {
		return EnqueueResponse{}, validation("enqueue", err.Error())
	}
	path := strings.TrimSpace(req.FilePath)
	if path == "" {
		return EnqueueResponse{}, validation("enqueue", "file path is required")
	}
	if req.Manual && !s.resolve(ctx, path) {
		return EnqueueResponse{}, services.Wrap(services.ErrNotFound, "api", "enqueue", "file not found: "+path, nil)
	}

	item := &queue.Item{
		Media:    media,
		FilePath: path,
		Title:    strings.TrimSpace(req.Title),
		Detail:   strings.TrimSpace(req.Detail),
		Manual:   req.Manual,
		DryRun:   s.dryRun(ctx, req.DryRun),
	}
	ok, err := s.admit(ctx, "enqueue", item)
	if err != nil {
		return EnqueueResponse{}, err
	}
	resp := EnqueueResponse{Admitted: ok}
	if ok {
		dto := FromQueueItem(item)
		resp.Item = &dto
	}
	return resp, nil
}

// EnqueueFile queues a bare path that has no library-manager identity.
func (s *Service) EnqueueFile(ctx context.Context, path string, dryRun *bool) (EnqueueResponse, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return EnqueueResponse{}, validation("enqueue_file", "file path is required")
	}
	if !IsVideoFile(path) {
		return EnqueueResponse{}, validation("enqueue_file", fmt.Sprintf("unsupported file extension %q", strings.ToLower(filepath.Ext(path))))
	}
	return s.Enqueue(ctx, EnqueueRequest{
		Kind:     string(GuessKind(path)),
		ItemID:   SyntheticID(path),
		FilePath: path,
		Title:    ManualTitle(path),
		Manual:   true,
		DryRun:   dryRun,
	})
}

// EnqueueEntity queues every file of a series (kind show) or movie. Files
// that do not resolve locally are skipped and reported.
func (s *Service) EnqueueEntity(ctx context.Context, kind string, entityID int64, dryRun *bool) (BulkEnqueueResponse, error) {
	parsed, err := queue.ParseKind(kind)
	if err != nil {
		return BulkEnqueueResponse{}, validation("enqueue_entity", err.Error())
	}
	if entityID <= 0 {
		return BulkEnqueueResponse{}, validation("enqueue_entity", "entity id must be positive")
	}
	source := s.sourceFor(ctx, parsed)
	if source == nil {
		return BulkEnqueueResponse{}, services.Wrap(services.ErrConfiguration, "api", "enqueue_entity",
			fmt.Sprintf("no configured source for %s", parsed), nil)
	}

	entity, err := source.GetEntity(ctx, entityID)
	if err != nil {
		return BulkEnqueueResponse{}, err
	}
	files, err := source.EntityFiles(ctx, entityID)
	if err != nil {
		return BulkEnqueueResponse{}, err
	}

	resp := BulkEnqueueResponse{
		Kind:       string(parsed),
		EntityID:   entityID,
		Title:      entity.Title,
		Candidates: len(files),
	}
	useDryRun := s.dryRun(ctx, dryRun)
	for _, file := range files {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if !s.resolve(ctx, file.Path) {
			resp.Unresolved = append(resp.Unresolved, file.Path)
			logging.WarnWithContext(s.logger, "file skipped; not found locally", "bulk_unresolved",
				logging.String("path", file.Path),
				logging.String(logging.FieldErrorHint, services.ErrorHint(services.ErrNotFound)),
				logging.String(logging.FieldImpact, "file not queued"),
			)
			continue
		}
		item := &queue.Item{
			Media:    mediaOf(parsed, file),
			FilePath: file.Path,
			Title:    entity.Title,
			Detail:   file.Detail,
			Manual:   true,
			DryRun:   useDryRun,
		}
		ok, err := s.admit(ctx, "enqueue_entity", item)
		if err != nil {
			return resp, err
		}
		if ok {
			resp.Admitted++
		} else {
			resp.Duplicates++
		}
	}
	return resp, nil
}

func mediaOf(kind queue.Kind, file arr.ChildFile) queue.Media {
	if kind == queue.KindShow {
		return queue.Show(file.ChildID, file.EntityID)
	}
	return queue.Movie(file.ChildID)
}

func (s *Service) sourceFor(ctx context.Context, kind queue.Kind) arr.Adapter {
	for _, source := range s.sources {
		if source.Kind() == kind && source.Enabled(ctx) {
			return source
		}
	}
	return nil
}

// Status reports queue, history, source and dependency state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	pending, err := s.store.Pending(ctx)
	if err != nil {
		return Status{}, err
	}
	total, err := s.store.CountHistory(ctx, "")
	if err != nil {
		return Status{}, err
	}
	recent, err := s.store.QueryHistory(ctx, queue.HistoryQuery{Limit: recentHistory})
	if err != nil {
		return Status{}, err
	}

	status := Status{
		Queue:   QueueStatus{Pending: len(pending), Items: FromQueueItems(pending)},
		History: HistoryStatus{Total: total, Recent: FromHistoryRecords(recent)},
	}
	if s.workflow != nil {
		summary := s.workflow.Status(ctx)
		status.Running = summary.Running
		status.Sources = FromSourceStates(summary.Sources)
		status.LastError = summary.LastError
		status.NextCycleAt = formatTime(summary.NextCycleAt)
		if summary.LastCycle != nil {
			cycle := FromCycleSummary(*summary.LastCycle)
			status.LastCycle = &cycle
		}
	} else {
		for _, source := range s.sources {
			status.Sources = append(status.Sources, SourceStatus{
				Name:    source.Name(),
				Kind:    string(source.Kind()),
				Enabled: source.Enabled(ctx),
			})
		}
	}
	if status.Sources == nil {
		status.Sources = []SourceStatus{}
	}
	status.Dependencies = FromDependencyStatuses(deps.CheckBinaries(deps.ToolRequirements(s.toolBinary(ctx))))
	return status, nil
}

func (s *Service) toolBinary(ctx context.Context) string {
	if s.settings != nil {
		if binary := s.settings.ToolConfig(ctx).Binary; binary != "" {
			return binary
		}
	}
	if s.cfg != nil {
		return s.cfg.Tool.Binary
	}
	return ""
}

// Preflight runs the startup checks, including a ping of every configured
// source.
func (s *Service) Preflight(ctx context.Context) []CheckResult {
	in := preflight.Inputs{ToolBinary: s.toolBinary(ctx)}
	if s.settings != nil {
		in.OutputDirectory = s.settings.ToolConfig(ctx).OutputDirectory
	}
	for _, source := range s.sources {
		in.Sources = append(in.Sources, source)
	}
	return FromPreflightResults(preflight.RunAll(ctx, s.cfg, in))
}

// History returns a page of outcomes, newest first. An empty kind lists both.
func (s *Service) History(ctx context.Context, kind string, limit, offset int) (HistoryResponse, error) {
	var parsed queue.Kind
	if strings.TrimSpace(kind) != "" {
		k, err := queue.ParseKind(kind)
		if err != nil {
			return HistoryResponse{}, validation("history", err.Error())
		}
		parsed = k
	}
	q := queue.HistoryQuery{Kind: parsed, Limit: limit, Offset: offset}
	records, err := s.store.QueryHistory(ctx, q)
	if err != nil {
		return HistoryResponse{}, err
	}
	total, err := s.store.CountHistory(ctx, parsed)
	if err != nil {
		return HistoryResponse{}, err
	}
	items := FromHistoryRecords(records)
	if limit <= 0 {
		limit = len(items)
	}
	if offset < 0 {
		offset = 0
	}
	return HistoryResponse{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// ResetQueue drops every pending item.
func (s *Service) ResetQueue(ctx context.Context) (ResetResponse, error) {
	removed, err := s.store.ResetQueue(ctx)
	if err != nil {
		return ResetResponse{}, err
	}
	s.logger.Info("queue reset", logging.String(logging.FieldEventType, "queue_reset"), logging.Int64("removed", removed))
	return ResetResponse{Removed: removed}, nil
}

// ResetHistory truncates history. Previously processed items become
// admissible again.
func (s *Service) ResetHistory(ctx context.Context) (ResetResponse, error) {
	removed, err := s.store.ResetHistory(ctx)
	if err != nil {
		return ResetResponse{}, err
	}
	s.logger.Info("history reset", logging.String(logging.FieldEventType, "history_reset"), logging.Int64("removed", removed))
	return ResetResponse{Removed: removed}, nil
}

// SetFiltered opts a series or movie in or out of automatic censoring.
func (s *Service) SetFiltered(ctx context.Context, kind string, entityID int64, filtered bool) (FilterItem, error) {
	parsed, err := queue.ParseKind(kind)
	if err != nil {
		return FilterItem{}, validation("set_filtered", err.Error())
	}
	if entityID <= 0 {
		return FilterItem{}, validation("set_filtered", "entity id must be positive")
	}
	if err := s.store.SetFiltered(ctx, parsed, entityID, filtered); err != nil {
		return FilterItem{}, err
	}
	s.logger.Info("filter updated",
		logging.String(logging.FieldEventType, "filter_updated"),
		logging.String(logging.FieldItemKind, string(parsed)),
		logging.Int64("entity_id", entityID),
		logging.Bool("filtered", filtered),
	)
	return FilterItem{Kind: string(parsed), EntityID: entityID, Filtered: filtered}, nil
}

// Flags lists every stored opt-in flag.
func (s *Service) Flags(ctx context.Context) ([]FilterItem, error) {
	flags, err := s.store.Flags(ctx)
	if err != nil {
		return nil, err
	}
	return FromFilteredFlags(flags), nil
}

// TriggerSync runs one poll cycle and waits for it. Source failures are
// returned as an error alongside the cycle summary.
func (s *Service) TriggerSync(ctx context.Context) (SyncResponse, error) {
	if s.workflow == nil {
		return SyncResponse{}, services.Wrap(services.ErrConfiguration, "api", "sync", "workflow unavailable", nil)
	}
	summary, err := s.workflow.RunCycle(ctx)
	resp := SyncResponse{Cycle: FromCycleSummary(summary)}
	if err != nil {
		for name, msg := range summary.SourceErrors {
			resp.Errors = append(resp.Errors, name+": "+msg)
		}
		sort.Strings(resp.Errors)
		return resp, services.Wrap(services.ErrTransient, "api", "sync", "poll cycle reported errors", err)
	}
	return resp, nil
}
