package query

import (
	"time"

	"tokentrace/internal/data/history"
	"tokentrace/internal/engine/resolver"
)

// DirectorySummary is one row of the `SELECT directories` result set.
type DirectorySummary struct {
	Key                string  `json:"key"`
	AveragePropagation float64 `json:"averagePropagation"`
	FileCount          int     `json:"fileCount"`
}

// FileSummary is one row of the `SELECT files` result set.
type FileSummary struct {
	Path             string  `json:"path"`
	Language         string  `json:"language,omitempty"`
	Percentage       float64 `json:"percentage"`
	TokenCount       int     `json:"tokenCount"`
	TrackedCount     int     `json:"trackedCount"`
	DeclarationCount int     `json:"declarationCount"`
	UnresolvedCount  int     `json:"unresolvedCount"`
}

// FileDetails carries the full analysis of a single stylesheet, declarations
// and binding map included.
type FileDetails struct {
	FileSummary
	Declarations []resolver.Declaration `json:"declarations"`
	Bindings     resolver.BindingMap    `json:"bindingMap,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
	AnalyzedAt   time.Time              `json:"analyzedAt"`
}

// TrendSlice is a window of historical snapshots with computed deltas.
type TrendSlice struct {
	ProjectKey string               `json:"projectKey"`
	Since      time.Time            `json:"since"`
	Until      time.Time            `json:"until"`
	ScanCount  int                  `json:"scanCount"`
	Points     []history.TrendPoint `json:"points"`
}
