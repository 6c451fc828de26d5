package helpers

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// CompilePatterns compiles the configured exclusion globs up front so a bad
// pattern fails app construction instead of surfacing on every scan.
func CompilePatterns(label string, patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// UniqueScanRoots absolutizes the configured scan paths and drops duplicates
// so overlapping entries do not analyze the same stylesheet twice. Output is
// sorted for a stable walk order.
func UniqueScanRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var roots []string
	for _, p := range paths {
		root := filepath.Clean(p)
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)
	return roots
}
