package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/engine/parser"
	"tokentrace/internal/engine/resolver"
)

// collectTokenKeys merges the inline token keys with the custom-property
// names harvested from the configured token source files. Source files are
// parsed with the regular stylesheet parser; only in-scope (:root/:host)
// definitions count. The merged set is deduplicated and sorted.
func collectTokenKeys(cfg *config.Config, styleParser ports.StylesheetParser, projectRoot string) ([]string, error) {
	seen := make(map[string]bool)
	keys := make([]string, 0, len(cfg.Tokens.Keys))

	for _, key := range cfg.Tokens.Keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		keys = append(keys, trimmed)
	}

	for _, sourceFile := range cfg.Tokens.SourceFiles {
		path := strings.TrimSpace(sourceFile)
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, path)
		}
		harvested, err := harvestTokenNames(styleParser, path)
		if err != nil {
			return nil, fmt.Errorf("harvest token keys from %q: %w", sourceFile, err)
		}
		for _, name := range harvested {
			if seen[name] {
				continue
			}
			seen[name] = true
			keys = append(keys, name)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func harvestTokenNames(styleParser ports.StylesheetParser, path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sheet, err := styleParser.ParseFile(path, content)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	sheet.Walk(func(d *parser.Declaration) {
		if !resolver.IsCustomProperty(d.Property) {
			return
		}
		if !resolver.IsScopeSelector(d.Selector) {
			return
		}
		names = append(names, d.Property)
	})
	return names, nil
}
