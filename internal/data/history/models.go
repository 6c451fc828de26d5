package history

import "time"

const SchemaVersion = 2

// Snapshot is one persisted propagation measurement for a project.
type Snapshot struct {
	ProjectKey        string    `json:"project_key,omitempty"`
	SchemaVersion     int       `json:"schema_version"`
	RunID             string    `json:"run_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	CommitHash        string    `json:"commit_hash,omitempty"`
	CommitTimestamp   time.Time `json:"commit_timestamp,omitempty"`
	FileCount         int       `json:"file_count"`
	DeclarationCount  int       `json:"declaration_count"`
	TokenCount        int       `json:"token_count"`
	TrackedCount      int       `json:"tracked_count"`
	UnresolvedCount   int       `json:"unresolved_count"`
	DirectoryCount    int       `json:"directory_count"`
	SentinelFileCount int       `json:"sentinel_file_count"`
	GlobalPct         float64   `json:"global_pct"`
}

// TrendPoint is one snapshot enriched with deltas against the previous
// snapshot and moving averages over the report window.
type TrendPoint struct {
	Timestamp         time.Time `json:"timestamp"`
	CommitHash        string    `json:"commit_hash,omitempty"`
	FileCount         int       `json:"file_count"`
	DeclarationCount  int       `json:"declaration_count"`
	TokenCount        int       `json:"token_count"`
	TrackedCount      int       `json:"tracked_count"`
	UnresolvedCount   int       `json:"unresolved_count"`
	DirectoryCount    int       `json:"directory_count"`
	SentinelFileCount int       `json:"sentinel_file_count"`
	GlobalPct         float64   `json:"global_pct"`
	DeltaFiles        int       `json:"delta_files"`
	DeltaDeclarations int       `json:"delta_declarations"`
	DeltaTokens       int       `json:"delta_tokens"`
	DeltaUnresolved   int       `json:"delta_unresolved"`
	DeltaGlobalPct    float64   `json:"delta_global_pct"`
	TokenGrowthPct    float64   `json:"token_growth_pct"`
	AvgGlobalPct      float64   `json:"avg_global_pct"`
	AvgUnresolved     float64   `json:"avg_unresolved"`
	WindowHours       float64   `json:"window_hours"`
}

// TrendReport is the ordered series of trend points for one project.
type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	ProjectKey    string       `json:"project_key"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	ScanCount     int          `json:"scan_count"`
	Points        []TrendPoint `json:"points"`
}
