package app

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/engine/resolver"
	"tokentrace/internal/shared/observability"
	"tokentrace/internal/shared/util"
)

const defaultExternalCacheSize = 32

type externalMapping struct {
	raw         string
	pattern     glob.Glob
	stylesheets []string
}

// externalIndex resolves which external stylesheets are in scope for a file
// under analysis and memoizes the bindings collected from each external.
type externalIndex struct {
	styleParser ports.StylesheetParser
	root        string
	mappings    []externalMapping
	cache       *lru.Cache[string, []resolver.Binding]

	mu         sync.Mutex
	dependents map[string]map[string]bool
}

func newExternalIndex(cfg *config.Config, styleParser ports.StylesheetParser, root string) (*externalIndex, error) {
	patterns := make([]string, 0, len(cfg.Externals.Mapping))
	for pattern := range cfg.Externals.Mapping {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	mappings := make([]externalMapping, 0, len(patterns))
	for _, pattern := range patterns {
		compiled, err := glob.Compile(util.NormalizePatternPath(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid external mapping pattern %q: %w", pattern, err)
		}
		stylesheets := make([]string, 0, len(cfg.Externals.Mapping[pattern]))
		for _, sheet := range cfg.Externals.Mapping[pattern] {
			stylesheets = append(stylesheets, path.Clean(util.NormalizePatternPath(sheet)))
		}
		mappings = append(mappings, externalMapping{
			raw:         pattern,
			pattern:     compiled,
			stylesheets: stylesheets,
		})
	}

	size := cfg.ExternalCache.Size
	if size <= 0 {
		size = defaultExternalCacheSize
	}
	cache, err := lru.New[string, []resolver.Binding](size)
	if err != nil {
		return nil, fmt.Errorf("create external bindings cache: %w", err)
	}

	return &externalIndex{
		styleParser: styleParser,
		root:        root,
		mappings:    mappings,
		cache:       cache,
		dependents:  make(map[string]map[string]bool),
	}, nil
}

// bindingsFor returns the external bindings in scope for fileID, in mapping
// order so that a later external wins when names collide. A mapped
// stylesheet equal to the file under analysis is skipped.
func (e *externalIndex) bindingsFor(fileID string) []resolver.Binding {
	var collected []resolver.Binding
	for _, mapping := range e.mappings {
		if !mapping.pattern.Match(fileID) {
			continue
		}
		for _, external := range mapping.stylesheets {
			if external == fileID {
				slog.Debug("skipping self-referential external mapping", "path", fileID, "pattern", mapping.raw)
				continue
			}
			collected = append(collected, e.collect(external)...)
			e.recordDependent(external, fileID)
		}
	}
	return collected
}

func (e *externalIndex) collect(externalID string) []resolver.Binding {
	if bindings, ok := e.cache.Get(externalID); ok {
		observability.ExternalCacheHitsTotal.Inc()
		return bindings
	}
	observability.ExternalCacheMissesTotal.Inc()

	bindings := e.collectUncached(externalID)
	e.cache.Add(externalID, bindings)
	return bindings
}

func (e *externalIndex) collectUncached(externalID string) []resolver.Binding {
	fullPath := filepath.Join(e.root, filepath.FromSlash(externalID))
	content, err := os.ReadFile(fullPath)
	if err != nil {
		slog.Warn("failed to read external stylesheet", "path", externalID, "error", err)
		return []resolver.Binding{}
	}
	sheet, err := e.styleParser.ParseFile(fullPath, content)
	if err != nil {
		slog.Warn("failed to parse external stylesheet", "path", externalID, "error", err)
		return []resolver.Binding{}
	}
	return resolver.CollectExternalBindings(sheet, externalID)
}

func (e *externalIndex) recordDependent(externalID, fileID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.dependents[externalID]
	if !ok {
		set = make(map[string]bool)
		e.dependents[externalID] = set
	}
	set[fileID] = true
}

// Invalidate drops the cache entry for a changed external stylesheet and
// returns the files whose analysis depended on it.
func (e *externalIndex) Invalidate(fileID string) []string {
	e.cache.Remove(fileID)

	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.dependents[fileID]
	if !ok {
		return nil
	}
	affected := make([]string, 0, len(set))
	for dependent := range set {
		affected = append(affected, dependent)
	}
	sort.Strings(affected)
	return affected
}

// IsMappedExternal reports whether fileID appears as a mapped stylesheet in
// any external mapping.
func (e *externalIndex) IsMappedExternal(fileID string) bool {
	for _, mapping := range e.mappings {
		for _, external := range mapping.stylesheets {
			if external == fileID {
				return true
			}
		}
	}
	return false
}

func (e *externalIndex) Purge() {
	e.cache.Purge()
}
