package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tokentrace/internal/core/ports"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
	"tokentrace/internal/shared/observability"
)

// HandleChanges re-analyzes the changed stylesheets plus every file whose
// external bindings came from a changed file, then refreshes outputs,
// metrics, and watch subscribers.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	start := time.Now()

	affected := make(map[string]bool)
	for _, path := range paths {
		fileID := a.fileID(path)
		if a.externals.IsMappedExternal(fileID) {
			for _, dependent := range a.externals.Invalidate(fileID) {
				affected[filepath.Join(a.projectRoot, filepath.FromSlash(dependent))] = true
			}
		}
		if !a.styleParser.IsSupportedPath(path) {
			continue
		}
		affected[path] = true
	}

	for path := range affected {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.RemoveFile(path)
			continue
		}
		if err := a.ProcessFile(path); err != nil {
			observability.FileAnalysisErrorsTotal.Inc()
			slog.Warn("failed to re-process file", "path", path, "error", err)
		}
	}

	snapshot := a.buildSummarySnapshot()
	a.publishMetrics(snapshot)

	if err := a.GenerateOutputs(context.Background(), snapshot); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	duration := time.Since(start)
	if a.terminalSummary {
		newPresenter(a).PrintSummary(len(paths), duration, snapshot)
	}
	a.emitUpdate(updateFromSnapshot(snapshot))
}

// buildSummarySnapshot aggregates the stored file results into the
// cross-file view served to driving adapters.
func (a *App) buildSummarySnapshot() ports.SummarySnapshot {
	results := a.allResults()

	var declarations, tokens, tracked, sentinels int
	byType := make(map[resolver.ResolutionType]int)
	for _, result := range results {
		declarations += len(result.Declarations)
		tokens += result.TokenCount
		tracked += result.TrackedCount
		if result.Percentage == coverage.NotApplicable {
			sentinels++
		}
		for _, decl := range result.Declarations {
			byType[decl.ResolutionType]++
		}
	}

	return ports.SummarySnapshot{
		FileCount:         len(results),
		DeclarationCount:  declarations,
		TokenCount:        tokens,
		TrackedCount:      tracked,
		GlobalPropagation: coverage.GlobalAverage(results),
		SentinelFileCount: sentinels,
		Directories:       coverage.BuildDirectoryReport(results),
		Unresolved:        a.unresolvedReport(),
		ByResolutionType:  byType,
	}
}

func (a *App) publishMetrics(snapshot ports.SummarySnapshot) {
	observability.FilesTracked.Set(float64(snapshot.FileCount))
	observability.DeclarationsTracked.Set(float64(snapshot.DeclarationCount))
	observability.GlobalPropagation.Set(snapshot.GlobalPropagation)
	observability.UnresolvedNames.Set(float64(len(snapshot.Unresolved)))
}

func updateFromSnapshot(snapshot ports.SummarySnapshot) Update {
	return Update{
		FileCount:         snapshot.FileCount,
		DeclarationCount:  snapshot.DeclarationCount,
		TokenCount:        snapshot.TokenCount,
		GlobalPropagation: snapshot.GlobalPropagation,
		UnresolvedCount:   len(snapshot.Unresolved),
	}
}
