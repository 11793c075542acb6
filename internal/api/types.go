package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a pending queue entry.
type QueueItem struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	ItemID    int64  `json:"itemId"`
	SeriesID  int64  `json:"seriesId,omitempty"`
	FilePath  string `json:"filePath"`
	Title     string `json:"title,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Manual    bool   `json:"manual"`
	DryRun    bool   `json:"dryRun"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// HistoryItem describes one processing outcome.
type HistoryItem struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	ItemID      int64  `json:"itemId"`
	SeriesID    int64  `json:"seriesId,omitempty"`
	FilePath    string `json:"filePath"`
	Title       string `json:"title,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Success     bool   `json:"success"`
	SwearsFound int    `json:"swearsFound"`
	Error       string `json:"error,omitempty"`
	OutputPath  string `json:"outputPath,omitempty"`
	DryRun      bool   `json:"dryRun"`
	ProcessedAt string `json:"processedAt,omitempty"`
}

// SourceStatus reports the availability of one library manager.
type SourceStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
	LastError string `json:"lastError,omitempty"`
	CheckedAt string `json:"checkedAt,omitempty"`
}

// CycleStatus summarizes a completed poll cycle.
type CycleStatus struct {
	ID           string            `json:"id"`
	StartedAt    string            `json:"startedAt"`
	FinishedAt   string            `json:"finishedAt"`
	DurationMS   int64             `json:"durationMs"`
	Fetched      bool              `json:"fetched"`
	Admitted     int               `json:"admitted"`
	Duplicates   int               `json:"duplicates"`
	Processed    int               `json:"processed"`
	Failed       int               `json:"failed"`
	SourceErrors map[string]string `json:"sourceErrors,omitempty"`
}

// DependencyStatus captures availability of an external program.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one preflight check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// QueueStatus summarizes pending work.
type QueueStatus struct {
	Pending int         `json:"pending"`
	Items   []QueueItem `json:"items"`
}

// HistoryStatus summarizes recorded outcomes.
type HistoryStatus struct {
	Total  int           `json:"total"`
	Recent []HistoryItem `json:"recent"`
}

// Status aggregates queue, history and source availability.
type Status struct {
	Running      bool               `json:"running"`
	Queue        QueueStatus        `json:"queue"`
	History      HistoryStatus      `json:"history"`
	Sources      []SourceStatus     `json:"sources"`
	Dependencies []DependencyStatus `json:"dependencies"`
	LastCycle    *CycleStatus       `json:"lastCycle,omitempty"`
	NextCycleAt  string             `json:"nextCycleAt,omitempty"`
	LastError    string             `json:"lastError,omitempty"`
}

// EnqueueRequest asks for one explicit item to be queued. A nil DryRun uses
// the dry_run setting.
type EnqueueRequest struct {
	Kind     string `json:"kind"`
	ItemID   int64  `json:"itemId"`
	SeriesID int64  `json:"seriesId,omitempty"`
	FilePath string `json:"filePath"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Manual   bool   `json:"manual"`
	DryRun   *bool  `json:"dryRun,omitempty"`
}

// EnqueueResponse reports whether the item was admitted.
type EnqueueResponse struct {
	Admitted bool       `json:"admitted"`
	Item     *QueueItem `json:"item,omitempty"`
}

// BulkEnqueueResponse reports a series-wide or movie enqueue.
type BulkEnqueueResponse struct {
	Kind       string   `json:"kind"`
	EntityID   int64    `json:"entityId"`
	Title      string   `json:"title,omitempty"`
	Candidates int      `json:"candidates"`
	Admitted   int      `json:"admitted"`
	Duplicates int      `json:"duplicates"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// HistoryResponse is one page of history.
type HistoryResponse struct {
	Items  []HistoryItem `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ResetResponse reports how many rows a reset removed.
type ResetResponse struct {
	Removed int64 `json:"removed"`
}

// FilterItem is one stored opt-in flag.
type FilterItem struct {
	Kind      string `json:"kind"`
	EntityID  int64  `json:"entityId"`
	Filtered  bool   `json:"filtered"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// FilterRequest sets an opt-in flag.
type FilterRequest struct {
	Filtered bool `json:"filtered"`
}

// SyncResponse reports a manually triggered cycle.
type SyncResponse struct {
	Cycle  CycleStatus `json:"cycle"`
	Errors []string    `json:"errors,omitempty"`
}
