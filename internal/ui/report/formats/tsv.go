package formats

import (
	"fmt"
	"strings"

	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
)

type TSVGenerator struct{}

func NewTSVGenerator() *TSVGenerator {
	return &TSVGenerator{}
}

// GenerateDirectories renders one row per directory group, sorted by key.
// The not-applicable sentinel serializes as -1.
func (t *TSVGenerator) GenerateDirectories(stats map[string]coverage.DirectoryStats) (string, error) {
	var buf strings.Builder

	buf.WriteString("Directory\tFiles\tUsable\tAveragePropagation\n")
	for _, key := range coverage.SortedKeys(stats) {
		entry := stats[key]
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\t%s\n",
			key,
			entry.FileCount,
			entry.UsableCount,
			tsvPct(entry.AveragePropagation),
		))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateUnresolved(rows []resolver.UnresolvedVariable) (string, error) {
	var buf strings.Builder

	buf.WriteString("Variable\tFileCount\tFiles\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%s\n",
			row.VariableName,
			row.FileCount,
			strings.Join(row.Files, ","),
		))
	}

	return buf.String(), nil
}
