package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport turns an ordered snapshot series into a trend report:
// per-point deltas against the previous snapshot plus moving averages over
// the given window. Sentinel (-1) global percentages never enter an average.
func BuildTrendReport(projectKey string, snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no snapshots available")
	}

	points := make([]TrendPoint, 0, len(snapshots))
	for i, current := range snapshots {
		point := TrendPoint{
			Timestamp:         current.Timestamp,
			CommitHash:        current.CommitHash,
			FileCount:         current.FileCount,
			DeclarationCount:  current.DeclarationCount,
			TokenCount:        current.TokenCount,
			TrackedCount:      current.TrackedCount,
			UnresolvedCount:   current.UnresolvedCount,
			DirectoryCount:    current.DirectoryCount,
			SentinelFileCount: current.SentinelFileCount,
			GlobalPct:         current.GlobalPct,
		}

		if i > 0 {
			prev := snapshots[i-1]
			point.DeltaFiles = current.FileCount - prev.FileCount
			point.DeltaDeclarations = current.DeclarationCount - prev.DeclarationCount
			point.DeltaTokens = current.TokenCount - prev.TokenCount
			point.DeltaUnresolved = current.UnresolvedCount - prev.UnresolvedCount
			if current.GlobalPct >= 0 && prev.GlobalPct >= 0 {
				point.DeltaGlobalPct = round2(current.GlobalPct - prev.GlobalPct)
			}
			if prev.TokenCount > 0 {
				point.TokenGrowthPct = round2((float64(point.DeltaTokens) / float64(prev.TokenCount)) * 100)
			}
		}

		avgGlobal, avgUnresolved := movingAverages(snapshots, i, window)
		point.AvgGlobalPct = round2(avgGlobal)
		point.AvgUnresolved = round2(avgUnresolved)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		ProjectKey:    projectKey,
		Since:         snapshots[0].Timestamp,
		Until:         snapshots[len(snapshots)-1].Timestamp,
		Window:        window.String(),
		ScanCount:     len(points),
		Points:        points,
	}, nil
}

func movingAverages(snapshots []Snapshot, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		pct := snapshots[index].GlobalPct
		if pct < 0 {
			pct = 0
		}
		return pct, float64(snapshots[index].UnresolvedCount)
	}

	cutoff := snapshots[index].Timestamp.Add(-window)
	var globalTotal float64
	var globalCount int
	var unresolvedTotal int
	count := 0
	for i := index; i >= 0; i-- {
		if snapshots[i].Timestamp.Before(cutoff) {
			break
		}
		if snapshots[i].GlobalPct >= 0 {
			globalTotal += snapshots[i].GlobalPct
			globalCount++
		}
		unresolvedTotal += snapshots[i].UnresolvedCount
		count++
	}
	if count == 0 {
		return 0, 0
	}
	avgGlobal := 0.0
	if globalCount > 0 {
		avgGlobal = globalTotal / float64(globalCount)
	}
	return avgGlobal, float64(unresolvedTotal) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
