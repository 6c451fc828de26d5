package coverage

import (
	"net/url"
	"path"
	"sort"

	"tokentrace/internal/shared/util"
)

// DirectoryStats aggregates propagation for all files sharing a directory.
// UsableCount is the number of files that contributed to the average, i.e.
// those without the not-applicable sentinel.
type DirectoryStats struct {
	AveragePropagation float64  `json:"averagePropagation"`
	FileCount          int      `json:"fileCount"`
	UsableCount        int      `json:"usableCount"`
	Files              []string `json:"files"`
}

// DirKey returns the aggregation key for a repo-relative file path: the
// URL-escaped directory portion, with "." standing in for root-level files.
func DirKey(relPath string) string {
	dir := path.Dir(util.NormalizePatternPath(relPath))
	return url.PathEscape(dir)
}

// ComputeAverage applies the shared averaging policy to a set of
// percentages: the mean of the non-sentinel values rounded to two decimals,
// the sentinel when every value carries it, and zero when the set is empty.
func ComputeAverage(percentages []float64) float64 {
	if len(percentages) == 0 {
		return 0
	}
	var sum float64
	var counted int
	for _, p := range percentages {
		if p == NotApplicable {
			continue
		}
		sum += p
		counted++
	}
	if counted == 0 {
		return NotApplicable
	}
	return round2(sum / float64(counted))
}

// GroupByDirectory buckets file results under their directory keys.
func GroupByDirectory(files []FileResult) map[string][]FileResult {
	grouped := make(map[string][]FileResult)
	for _, f := range files {
		key := DirKey(f.FileIdentifier)
		grouped[key] = append(grouped[key], f)
	}
	return grouped
}

// BuildDirectoryReport rolls per-file results up into one entry per
// directory, with sorted file lists.
func BuildDirectoryReport(files []FileResult) map[string]DirectoryStats {
	report := make(map[string]DirectoryStats)
	for key, group := range GroupByDirectory(files) {
		names := make([]string, 0, len(group))
		percentages := make([]float64, 0, len(group))
		usable := 0
		for _, f := range group {
			names = append(names, f.FileIdentifier)
			percentages = append(percentages, f.Percentage)
			if f.Percentage != NotApplicable {
				usable++
			}
		}
		sort.Strings(names)
		report[key] = DirectoryStats{
			AveragePropagation: ComputeAverage(percentages),
			FileCount:          len(group),
			UsableCount:        usable,
			Files:              names,
		}
	}
	return report
}

// GlobalAverage applies the directory averaging policy across every file of
// a run.
func GlobalAverage(files []FileResult) float64 {
	percentages := make([]float64, 0, len(files))
	for _, f := range files {
		percentages = append(percentages, f.Percentage)
	}
	return ComputeAverage(percentages)
}

// SortedKeys returns the directory keys of a report in lexicographic order,
// matching the order they serialize in.
func SortedKeys(report map[string]DirectoryStats) []string {
	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
