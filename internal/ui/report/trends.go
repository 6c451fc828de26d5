package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"tokentrace/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tCommit\tFiles\tDeclarations\tTokens\tTracked\tUnresolved\tDirectories\tSentinelFiles\tGlobalPct\tDeltaFiles\tDeltaDeclarations\tDeltaTokens\tDeltaUnresolved\tDeltaGlobalPct\tTokenGrowthPct\tAvgGlobalPct\tAvgUnresolved\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.CommitHash,
			point.FileCount,
			point.DeclarationCount,
			point.TokenCount,
			point.TrackedCount,
			point.UnresolvedCount,
			point.DirectoryCount,
			point.SentinelFileCount,
			point.GlobalPct,
			point.DeltaFiles,
			point.DeltaDeclarations,
			point.DeltaTokens,
			point.DeltaUnresolved,
			point.DeltaGlobalPct,
			point.TokenGrowthPct,
			point.AvgGlobalPct,
			point.AvgUnresolved,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
