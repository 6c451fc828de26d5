package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tokentrace/internal/core/errors"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
	"tokentrace/internal/data/query"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/shared/util"
)

// queryService serves read-only TQL queries over the in-memory results and
// the history store.
type queryService struct {
	app          *App
	historyStore ports.HistoryStore
	projectKey   string
}

var _ ports.QueryService = (*queryService)(nil)

func newQueryService(app *App, historyStore ports.HistoryStore, projectKey string) ports.QueryService {
	key := strings.TrimSpace(projectKey)
	if key == "" {
		key = "default"
	}
	return &queryService{app: app, historyStore: historyStore, projectKey: key}
}

// conditionsFor accepts either a full TQL statement or a bare WHERE-clause
// fragment and returns the parsed conditions for the expected target.
func conditionsFor(target, filter string) ([]query.TQLCondition, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	raw := filter
	if !strings.HasPrefix(strings.ToUpper(filter), "SELECT") {
		raw = "SELECT " + target + " WHERE " + filter
	}
	parsed, err := query.ParseTQL(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Target != target {
		return nil, fmt.Errorf("query targets %q, expected %q", parsed.Target, target)
	}
	return parsed.Conditions, nil
}

func (q *queryService) ListDirectories(ctx context.Context, filter string, limit int) ([]query.DirectorySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	conditions, err := conditionsFor("directories", filter)
	if err != nil {
		return nil, err
	}

	stats := coverage.BuildDirectoryReport(q.app.allResults())
	rows := make([]query.DirectorySummary, 0, len(stats))
	for _, key := range coverage.SortedKeys(stats) {
		entry := stats[key]
		rows = append(rows, query.DirectorySummary{
			Key:                key,
			AveragePropagation: entry.AveragePropagation,
			FileCount:          entry.FileCount,
		})
	}

	rows, err = query.FilterDirectories(rows, conditions)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (q *queryService) ListFiles(ctx context.Context, filter string, limit int) ([]query.FileSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	conditions, err := conditionsFor("files", filter)
	if err != nil {
		return nil, err
	}

	results := q.app.allResults()
	rows := make([]query.FileSummary, 0, len(results))
	for _, result := range results {
		rows = append(rows, fileSummaryFromResult(result))
	}

	rows, err = query.FilterFiles(rows, conditions)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (q *queryService) FileDetails(ctx context.Context, path string) (query.FileDetails, error) {
	if err := ctx.Err(); err != nil {
		return query.FileDetails{}, err
	}
	if q.app == nil {
		return query.FileDetails{}, fmt.Errorf("app is required")
	}

	result, ok := q.app.resultForPath(path)
	if !ok {
		return query.FileDetails{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "no analysis result for file"), errors.CtxPath, path)
	}
	return query.FileDetails{
		FileSummary:  fileSummaryFromResult(result),
		Declarations: result.Declarations,
		Bindings:     result.BindingMap,
		Warnings:     result.Warnings,
		AnalyzedAt:   result.AnalyzedAt,
	}, nil
}

func (q *queryService) TrendSlice(ctx context.Context, since time.Time, limit int) (query.TrendSlice, error) {
	if err := ctx.Err(); err != nil {
		return query.TrendSlice{}, err
	}
	if q.historyStore == nil {
		return query.TrendSlice{}, fmt.Errorf("history store is required")
	}

	snapshots, err := q.historyStore.LoadSnapshots(q.projectKey, since)
	if err != nil {
		return query.TrendSlice{}, errors.Wrap(err, errors.CodeInternal, "load history snapshots")
	}
	slice := query.TrendSlice{ProjectKey: q.projectKey, Since: since, Until: time.Now().UTC()}
	if len(snapshots) == 0 {
		return slice, nil
	}

	trendReport, err := history.BuildTrendReport(q.projectKey, snapshots, 24*time.Hour)
	if err != nil {
		return query.TrendSlice{}, err
	}
	points := trendReport.Points
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	slice.ScanCount = trendReport.ScanCount
	slice.Until = trendReport.Until
	slice.Points = points
	return slice, nil
}

// resultForPath looks up a result by absolute or project-relative path.
func (a *App) resultForPath(path string) (coverage.FileResult, bool) {
	id := util.NormalizePatternPath(filepath.Clean(path))
	if filepath.IsAbs(path) {
		id = a.fileID(path)
	}
	return a.resultByID(id)
}

func fileSummaryFromResult(result coverage.FileResult) query.FileSummary {
	return query.FileSummary{
		Path:             result.FileIdentifier,
		Language:         result.Language,
		Percentage:       result.Percentage,
		TokenCount:       result.TokenCount,
		TrackedCount:     result.TrackedCount,
		DeclarationCount: len(result.Declarations),
		UnresolvedCount:  fileUnresolvedCount(result),
	}
}

// fileUnresolvedCount counts the distinct unresolved names across a file's
// declarations.
func fileUnresolvedCount(result coverage.FileResult) int {
	names := make(map[string]bool)
	for _, decl := range result.Declarations {
		for _, name := range decl.UnresolvedVariables {
			names[name] = true
		}
	}
	return len(names)
}
