package ports

import (
	"context"
	"time"

	"tokentrace/internal/data/history"
	"tokentrace/internal/data/query"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/parser"
	"tokentrace/internal/engine/resolver"
)

// StylesheetParser abstracts stylesheet parsing and file support checks.
type StylesheetParser interface {
	ParseFile(path string, content []byte) (*parser.Stylesheet, error)
	GetLanguage(path string) string
	IsSupportedPath(filePath string) bool
	SupportedExtensions() []string
}

// HistoryStore abstracts snapshot persistence for trend/report workflows.
type HistoryStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) error
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
}

// ScanRequest defines a scan operation request for driving adapters.
type ScanRequest struct {
	Paths []string
}

// ScanResult summarizes a completed scan operation.
type ScanResult struct {
	FilesScanned int
	Declarations int
	Warnings     []string
}

// SyncOutputsRequest defines output synchronization input for driving adapters.
type SyncOutputsRequest struct {
	Formats []string
}

// SyncOutputsResult contains generated output paths.
type SyncOutputsResult struct {
	Written []string
}

// MarkdownReportRequest defines markdown report generation input.
type MarkdownReportRequest struct {
	Path      string
	WriteFile bool
	Verbosity string
}

// MarkdownReportResult contains markdown report generation results.
type MarkdownReportResult struct {
	Markdown string
	Path     string
	Written  bool
}

// SummarySnapshot captures the current propagation state for driving adapters.
type SummarySnapshot struct {
	FileCount         int
	DeclarationCount  int
	TokenCount        int
	TrackedCount      int
	GlobalPropagation float64
	SentinelFileCount int
	Directories       map[string]coverage.DirectoryStats
	Unresolved        []resolver.UnresolvedVariable
	ByResolutionType  map[resolver.ResolutionType]int
}

// SummaryPrintRequest captures terminal-summary rendering inputs.
type SummaryPrintRequest struct {
	Duration time.Duration
	Snapshot SummarySnapshot
}

// QueryService exposes read-only propagation query operations for driving adapters.
type QueryService interface {
	ListDirectories(ctx context.Context, filter string, limit int) ([]query.DirectorySummary, error)
	ListFiles(ctx context.Context, filter string, limit int) ([]query.FileSummary, error)
	FileDetails(ctx context.Context, path string) (query.FileDetails, error)
	TrendSlice(ctx context.Context, since time.Time, limit int) (query.TrendSlice, error)
}

// WatchUpdate contains state emitted to driving adapters during watch-mode updates.
type WatchUpdate struct {
	FileCount         int
	DeclarationCount  int
	TokenCount        int
	GlobalPropagation float64
	UnresolvedCount   int
}

// WatchService exposes watch lifecycle and updates for driving adapters.
type WatchService interface {
	Start(ctx context.Context) error
	CurrentUpdate(ctx context.Context) (WatchUpdate, error)
	Subscribe(ctx context.Context, handler func(WatchUpdate)) error
}

// AnalysisService defines the driving-port surface over scan/report use cases.
type AnalysisService interface {
	RunScan(ctx context.Context, req ScanRequest) (ScanResult, error)
	FileResult(ctx context.Context, path string) (coverage.FileResult, error)
	ListResults(ctx context.Context) ([]coverage.FileResult, error)
	DirectoryReport(ctx context.Context) (map[string]coverage.DirectoryStats, error)
	UnresolvedReport(ctx context.Context) ([]resolver.UnresolvedVariable, error)
	QueryService(historyStore HistoryStore, projectKey string) QueryService
	CaptureHistoryTrend(ctx context.Context, historyStore HistoryStore, req HistoryTrendRequest) (HistoryTrendResult, error)
	WatchService() WatchService
	SummarySnapshot(ctx context.Context) (SummarySnapshot, error)
	PrintSummary(ctx context.Context, req SummaryPrintRequest) error
	SyncOutputs(ctx context.Context, req SyncOutputsRequest) (SyncOutputsResult, error)
	GenerateMarkdownReport(ctx context.Context, req MarkdownReportRequest) (MarkdownReportResult, error)
}

// HistoryTrendRequest captures inputs needed to save a snapshot and compute trends.
type HistoryTrendRequest struct {
	ProjectKey  string
	ProjectRoot string
	Since       time.Time
	Window      time.Duration
}

// HistoryTrendResult contains the optional trend report and saved snapshot metadata.
type HistoryTrendResult struct {
	Report             *history.TrendReport
	SnapshotSaved      bool
	SnapshotsEvaluated int
	LatestFileCount    int
	LatestGlobalPct    float64
	LatestUnresolved   int
}
