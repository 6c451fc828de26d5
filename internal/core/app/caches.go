package app

import (
	"sort"

	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
)

func (a *App) resultByID(fileID string) (coverage.FileResult, bool) {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	result, ok := a.results[fileID]
	return result, ok
}

// allResults returns a snapshot of the result set sorted by file identifier.
func (a *App) allResults() []coverage.FileResult {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()

	out := make([]coverage.FileResult, 0, len(a.results))
	for _, result := range a.results {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FileIdentifier < out[j].FileIdentifier
	})
	return out
}

func (a *App) resultCount() int {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	return len(a.results)
}

// rebuildTracker recomputes the unresolved-variable tracker from the stored
// results. Incremental re-analysis would otherwise leave stale file sets
// behind after edits and deletions.
func (a *App) rebuildTracker() {
	a.tracker.Reset()
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	for fileID, result := range a.results {
		for i := range result.Declarations {
			a.tracker.AddFromDeclaration(&result.Declarations[i], fileID)
		}
	}
}

// unresolvedReport rebuilds the tracker and returns its sorted report.
func (a *App) unresolvedReport() []resolver.UnresolvedVariable {
	a.rebuildTracker()
	return a.tracker.Report()
}
