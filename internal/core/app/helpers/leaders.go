package helpers

import (
	"fmt"
	"net/url"
	"sort"

	"tokentrace/internal/engine/coverage"
)

// DirectoryLaggards lists the directories with the lowest average
// propagation, formatted as "dir(pct%)". Sentinel-valued groups are skipped.
func DirectoryLaggards(stats map[string]coverage.DirectoryStats, limit int) []string {
	type scoredDir struct {
		key string
		pct float64
	}

	scored := make([]scoredDir, 0, len(stats))
	for key, group := range stats {
		if group.AveragePropagation == coverage.NotApplicable {
			continue
		}
		scored = append(scored, scoredDir{key: key, pct: group.AveragePropagation})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].pct == scored[j].pct {
			return scored[i].key < scored[j].key
		}
		return scored[i].pct < scored[j].pct
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	lines := make([]string, 0, len(scored))
	for _, s := range scored {
		lines = append(lines, fmt.Sprintf("%s(%.2f%%)", DecodeDirKey(s.key), s.pct))
	}
	return lines
}

// DecodeDirKey reverses the percent-encoding applied to directory keys for
// human-facing output. Undecodable keys pass through untouched.
func DecodeDirKey(key string) string {
	decoded, err := url.PathUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
