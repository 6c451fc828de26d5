package formats

import (
	"encoding/json"
	"time"

	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
)

// SnapshotData is the root document of the propagation JSON artifact.
type SnapshotData struct {
	GeneratedAt time.Time                          `json:"generatedAt"`
	RunID       string                             `json:"runId,omitempty"`
	Commit      string                             `json:"commit,omitempty"`
	Global      float64                            `json:"globalPropagation"`
	FileCount   int                                `json:"fileCount"`
	Directories map[string]coverage.DirectoryStats `json:"directories"`
	Files       []coverage.FileResult              `json:"files"`
	Unresolved  []resolver.UnresolvedVariable      `json:"unresolved,omitempty"`
}

type SnapshotGenerator struct{}

func NewSnapshotGenerator() *SnapshotGenerator {
	return &SnapshotGenerator{}
}

// Generate renders the snapshot document as indented JSON. Map keys marshal
// sorted, so the artifact is stable across runs with identical inputs.
func (s *SnapshotGenerator) Generate(data SnapshotData) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}
