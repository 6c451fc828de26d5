package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/core/errors"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
	"tokentrace/internal/shared/observability"
)

// analysisService adapts App to the driving port consumed by the CLI, the
// TUI, and the observability server.
type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

// NewAnalysisService wraps an App in the ports.AnalysisService interface.
func NewAnalysisService(app *App) ports.AnalysisService {
	return &analysisService{app: app}
}

// AnalysisService returns the driving-port view of this app.
func (a *App) AnalysisService() ports.AnalysisService {
	return NewAnalysisService(a)
}

func (s *analysisService) RunScan(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.ScanResult{}, err
	}
	if s.app == nil {
		return ports.ScanResult{}, fmt.Errorf("app is required")
	}

	ctx, span := observability.Tracer.Start(ctx, "analysisService.RunScan",
		trace.WithAttributes(attribute.Int("scan.requested_paths", len(req.Paths))))
	defer span.End()

	start := time.Now()
	s.app.setRunID(uuid.NewString())

	roots := normalizeScanPaths(req.Paths, s.app.projectRoot)
	if len(roots) == 0 {
		roots = s.app.scanRoots()
	}
	roots = helpers.UniqueScanRoots(roots)

	files, err := s.app.ScanDirectories(roots)
	if err != nil {
		return ports.ScanResult{}, errors.AddContext(err, errors.CtxOperation, "scan_directories")
	}

	warnings, err := s.app.processFiles(ctx, files)
	if err != nil {
		return ports.ScanResult{}, errors.AddContext(err, errors.CtxOperation, "process_files")
	}

	snapshot := s.app.buildSummarySnapshot()
	s.app.publishMetrics(snapshot)
	observability.AnalysisDuration.WithLabelValues("scan").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("scan.files_scanned", len(files)))

	return ports.ScanResult{
		FilesScanned: len(files),
		Declarations: snapshot.DeclarationCount,
		Warnings:     warnings,
	}, nil
}

func (s *analysisService) FileResult(ctx context.Context, path string) (coverage.FileResult, error) {
	if err := ctx.Err(); err != nil {
		return coverage.FileResult{}, err
	}
	if s.app == nil {
		return coverage.FileResult{}, fmt.Errorf("app is required")
	}

	result, ok := s.app.resultForPath(path)
	if !ok {
		return coverage.FileResult{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "no analysis result for file"), errors.CtxPath, path)
	}
	return result, nil
}

func (s *analysisService) ListResults(ctx context.Context) ([]coverage.FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	return s.app.allResults(), nil
}

func (s *analysisService) DirectoryReport(ctx context.Context) (map[string]coverage.DirectoryStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	return coverage.BuildDirectoryReport(s.app.allResults()), nil
}

func (s *analysisService) UnresolvedReport(ctx context.Context) ([]resolver.UnresolvedVariable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	return s.app.unresolvedReport(), nil
}

func (s *analysisService) QueryService(historyStore ports.HistoryStore, projectKey string) ports.QueryService {
	return newQueryService(s.app, historyStore, projectKey)
}

func (s *analysisService) CaptureHistoryTrend(ctx context.Context, historyStore ports.HistoryStore, req ports.HistoryTrendRequest) (ports.HistoryTrendResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.HistoryTrendResult{}, err
	}
	if s.app == nil {
		return ports.HistoryTrendResult{}, fmt.Errorf("app is required")
	}
	if historyStore == nil {
		return ports.HistoryTrendResult{}, fmt.Errorf("history store is required")
	}

	projectKey := strings.TrimSpace(req.ProjectKey)
	if projectKey == "" {
		projectKey = "default"
	}
	window := req.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	projectRoot := strings.TrimSpace(req.ProjectRoot)
	if projectRoot == "" {
		projectRoot = s.app.projectRoot
	}

	snapshot := s.app.buildSummarySnapshot()
	commitHash, commitTime := history.ResolveGitMetadata(projectRoot)
	entry := history.Snapshot{
		ProjectKey:        projectKey,
		SchemaVersion:     history.SchemaVersion,
		RunID:             s.app.currentRunID(),
		Timestamp:         time.Now().UTC(),
		CommitHash:        commitHash,
		CommitTimestamp:   commitTime,
		FileCount:         snapshot.FileCount,
		DeclarationCount:  snapshot.DeclarationCount,
		TokenCount:        snapshot.TokenCount,
		TrackedCount:      snapshot.TrackedCount,
		UnresolvedCount:   len(snapshot.Unresolved),
		DirectoryCount:    len(snapshot.Directories),
		SentinelFileCount: snapshot.SentinelFileCount,
		GlobalPct:         snapshot.GlobalPropagation,
	}

	if err := historyStore.SaveSnapshot(projectKey, entry); err != nil {
		return ports.HistoryTrendResult{}, errors.Wrap(err, errors.CodeInternal, "save history snapshot")
	}
	result := ports.HistoryTrendResult{
		SnapshotSaved:    true,
		LatestFileCount:  entry.FileCount,
		LatestGlobalPct:  entry.GlobalPct,
		LatestUnresolved: entry.UnresolvedCount,
	}

	snapshots, err := historyStore.LoadSnapshots(projectKey, req.Since)
	if err != nil {
		return result, errors.Wrap(err, errors.CodeInternal, "load history snapshots")
	}
	result.SnapshotsEvaluated = len(snapshots)
	if len(snapshots) == 0 {
		return result, nil
	}

	trendReport, err := history.BuildTrendReport(projectKey, snapshots, window)
	if err != nil {
		return result, err
	}
	result.Report = &trendReport
	return result, nil
}

func (s *analysisService) WatchService() ports.WatchService {
	return &watchService{app: s.app}
}

func (s *analysisService) SummarySnapshot(ctx context.Context) (ports.SummarySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.SummarySnapshot{}, err
	}
	if s.app == nil {
		return ports.SummarySnapshot{}, fmt.Errorf("app is required")
	}
	return s.app.buildSummarySnapshot(), nil
}

func (s *analysisService) PrintSummary(ctx context.Context, req ports.SummaryPrintRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.app == nil {
		return fmt.Errorf("app is required")
	}
	newPresenter(s.app).PrintSummary(req.Snapshot.FileCount, req.Duration, req.Snapshot)
	return nil
}

func (s *analysisService) SyncOutputs(ctx context.Context, req ports.SyncOutputsRequest) (ports.SyncOutputsResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.SyncOutputsResult{}, err
	}
	if s.app == nil {
		return ports.SyncOutputsResult{}, fmt.Errorf("app is required")
	}

	formats := formatSet(req.Formats)
	original := s.app.Config.Output
	filtered := original
	if formats != nil {
		if !formats["snapshot"] && !formats["json"] {
			filtered.Snapshot = ""
		}
		if !formats["directories"] && !formats["tsv"] {
			filtered.DirectoryTSV = ""
		}
		if !formats["unresolved"] && !formats["tsv"] {
			filtered.UnresolvedTSV = ""
		}
		if !formats["markdown"] && !formats["md"] {
			filtered.Markdown = ""
			filtered.UpdateMarkdown = nil
		}
	}
	s.app.Config.Output = filtered
	defer func() { s.app.Config.Output = original }()

	snapshot := s.app.buildSummarySnapshot()
	if err := s.app.GenerateOutputs(ctx, snapshot); err != nil {
		return ports.SyncOutputsResult{}, err
	}

	targets := s.app.resolveOutputTargets()
	written := make([]string, 0, 4+len(filtered.UpdateMarkdown))
	for _, path := range []string{targets.Snapshot, targets.DirectoryTSV, targets.UnresolvedTSV, targets.Markdown} {
		if path != "" {
			written = append(written, path)
		}
	}
	for _, injection := range filtered.UpdateMarkdown {
		target := injection.File
		if !filepath.IsAbs(target) {
			target = filepath.Join(s.app.paths.OutputRoot, target)
		}
		written = append(written, target)
	}
	return ports.SyncOutputsResult{Written: uniqueStrings(written)}, nil
}

func (s *analysisService) GenerateMarkdownReport(ctx context.Context, req ports.MarkdownReportRequest) (ports.MarkdownReportResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.MarkdownReportResult{}, err
	}
	if s.app == nil {
		return ports.MarkdownReportResult{}, fmt.Errorf("app is required")
	}

	result, err := s.app.GenerateMarkdownReport(ctx, MarkdownReportRequest{
		OutputPath: req.Path,
		WriteFile:  req.WriteFile || strings.TrimSpace(req.Path) != "",
		Verbosity:  req.Verbosity,
	})
	if err != nil {
		return ports.MarkdownReportResult{}, err
	}
	return ports.MarkdownReportResult{Markdown: result.Markdown, Path: result.Path, Written: result.Written}, nil
}

// watchService adapts the app's watch lifecycle to the driving port.
type watchService struct {
	app *App
}

var _ ports.WatchService = (*watchService)(nil)

func (w *watchService) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.app == nil {
		return fmt.Errorf("app is required")
	}
	return w.app.StartWatcher()
}

func (w *watchService) CurrentUpdate(ctx context.Context) (ports.WatchUpdate, error) {
	if err := ctx.Err(); err != nil {
		return ports.WatchUpdate{}, err
	}
	if w.app == nil {
		return ports.WatchUpdate{}, fmt.Errorf("app is required")
	}
	return toWatchUpdate(w.app.CurrentUpdate()), nil
}

func (w *watchService) Subscribe(ctx context.Context, handler func(ports.WatchUpdate)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.app == nil {
		return fmt.Errorf("app is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	w.app.SetUpdateHandler(func(update Update) {
		if ctx.Err() != nil {
			return
		}
		handler(toWatchUpdate(update))
	})
	return nil
}

func toWatchUpdate(update Update) ports.WatchUpdate {
	return ports.WatchUpdate{
		FileCount:         update.FileCount,
		DeclarationCount:  update.DeclarationCount,
		TokenCount:        update.TokenCount,
		GlobalPropagation: update.GlobalPropagation,
		UnresolvedCount:   update.UnresolvedCount,
	}
}

func formatSet(formats []string) map[string]bool {
	set := make(map[string]bool, len(formats))
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			continue
		}
		set[format] = true
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func normalizeScanPaths(paths []string, root string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
