package resolver

import (
	"sort"
	"strings"
	"sync"
)

// UnresolvedTracker accumulates undefined variable references across a run.
// Safe for concurrent use by analysis workers.
type UnresolvedTracker struct {
	mu        sync.Mutex
	tokenKeys []string
	byName    map[string]map[string]struct{}
}

// NewUnresolvedTracker builds an empty tracker. Names containing any of the
// given token keys are considered covered by the token table and never
// recorded.
func NewUnresolvedTracker(tokenKeys []string) *UnresolvedTracker {
	return &UnresolvedTracker{
		tokenKeys: append([]string(nil), tokenKeys...),
		byName:    make(map[string]map[string]struct{}),
	}
}

// Add records that a file referenced an undefined name. Duplicate pairs
// collapse, so a name referenced many times in one file counts that file
// once.
func (t *UnresolvedTracker) Add(name, filePath string) {
	for _, key := range t.tokenKeys {
		if key != "" && strings.Contains(name, key) {
			return
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	files, ok := t.byName[name]
	if !ok {
		files = make(map[string]struct{})
		t.byName[name] = files
	}
	files[filePath] = struct{}{}
}

// AddFromDeclaration records every unresolved name of an analyzed
// declaration against the given file.
func (t *UnresolvedTracker) AddFromDeclaration(decl *Declaration, filePath string) {
	for _, name := range decl.UnresolvedVariables {
		t.Add(name, filePath)
	}
}

// Reset clears all recorded references, keeping the token keys.
func (t *UnresolvedTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName = make(map[string]map[string]struct{})
}

// Len returns the number of distinct unresolved names recorded so far.
func (t *UnresolvedTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}

// Report returns one entry per unresolved name, ordered by descending file
// count with ties broken by name. File lists are sorted.
func (t *UnresolvedTracker) Report() []UnresolvedVariable {
	t.mu.Lock()
	defer t.mu.Unlock()
	report := make([]UnresolvedVariable, 0, len(t.byName))
	for name, fileSet := range t.byName {
		files := make([]string, 0, len(fileSet))
		for f := range fileSet {
			files = append(files, f)
		}
		sort.Strings(files)
		report = append(report, UnresolvedVariable{
			VariableName: name,
			FileCount:    len(files),
			Files:        files,
		})
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].FileCount != report[j].FileCount {
			return report[i].FileCount > report[j].FileCount
		}
		return report[i].VariableName < report[j].VariableName
	})
	return report
}
