package app

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/core/watcher"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/parser"
	"tokentrace/internal/engine/resolver"
	"tokentrace/internal/shared/util"
)

// Update carries the propagation state pushed to watch-mode subscribers
// after each re-analysis pass.
type Update struct {
	FileCount         int
	DeclarationCount  int
	TokenCount        int
	GlobalPropagation float64
	UnresolvedCount   int
}

type MarkdownReportRequest struct {
	OutputPath string
	WriteFile  bool
	Verbosity  string
}

type MarkdownReportResult struct {
	Markdown string
	Path     string
	Written  bool
}

// Dependencies lets callers swap collaborators, primarily so tests can
// inject a stub stylesheet parser.
type Dependencies struct {
	StyleParser ports.StylesheetParser
}

type App struct {
	Config      *config.Config
	styleParser ports.StylesheetParser
	analyzer    *resolver.Resolver
	tracker     *resolver.UnresolvedTracker
	externals   *externalIndex

	projectRoot string
	paths       config.ResolvedPaths

	resultsMu sync.RWMutex
	results   map[string]coverage.FileResult

	runMu sync.Mutex
	runID string

	updateMu sync.RWMutex
	onUpdate func(Update)

	activeWatcher *watcher.Watcher
	rescanLimiter *util.Limiter

	// terminalSummary gates the per-update stdout summary so TUI mode can
	// keep the terminal to itself.
	terminalSummary bool

	excludeDirGlobs  []glob.Glob
	excludeFileGlobs []glob.Glob
}

func New(cfg *config.Config) (*App, error) {
	return NewWithDependencies(cfg, Dependencies{StyleParser: parser.NewParser()})
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.StyleParser == nil {
		return nil, fmt.Errorf("stylesheet parser dependency is required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve project paths: %w", err)
	}

	excludeDirGlobs, err := helpers.CompilePatterns("exclude dir", cfg.Exclude.Dirs)
	if err != nil {
		return nil, err
	}
	excludeFileGlobs, err := helpers.CompilePatterns("exclude file", cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	rules, err := compileValueRules(cfg.Rules.ExcludedValues)
	if err != nil {
		return nil, err
	}

	tokenKeys, err := collectTokenKeys(cfg, deps.StyleParser, paths.ProjectRoot)
	if err != nil {
		return nil, err
	}

	externals, err := newExternalIndex(cfg, deps.StyleParser, paths.ProjectRoot)
	if err != nil {
		return nil, err
	}

	rate := cfg.Watch.RescanPerSecond
	if rate <= 0 {
		rate = 2
	}
	burst := cfg.Watch.RescanBurst
	if burst < 1 {
		burst = 1
	}

	return &App{
		Config:           cfg,
		styleParser:      deps.StyleParser,
		analyzer:         resolver.New(tokenKeys, cfg.Properties.Tracked, rules),
		tracker:          resolver.NewUnresolvedTracker(tokenKeys),
		externals:        externals,
		projectRoot:      paths.ProjectRoot,
		paths:            paths,
		results:          make(map[string]coverage.FileResult),
		rescanLimiter:    util.NewLimiter(rate, burst),
		excludeDirGlobs:  excludeDirGlobs,
		excludeFileGlobs: excludeFileGlobs,
	}, nil
}

// compileValueRules turns the declarative exclusion config into ordered
// matchers: listed values first (a leading "!" negates), patterns after.
func compileValueRules(rules []config.ExcludedValueRule) ([]resolver.ValueRule, error) {
	out := make([]resolver.ValueRule, 0, len(rules))
	for _, rule := range rules {
		matchers := make([]resolver.Matcher, 0, len(rule.Values)+len(rule.Patterns))
		for _, value := range rule.Values {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "!") {
				matchers = append(matchers, resolver.NegatedMatcher(strings.TrimPrefix(trimmed, "!")))
				continue
			}
			matchers = append(matchers, resolver.ExactMatcher(trimmed))
		}
		for _, pattern := range rule.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid excluded-value pattern %q for property %q: %w", pattern, rule.Property, err)
			}
			matchers = append(matchers, resolver.PatternMatcher(re))
		}
		if len(matchers) == 0 {
			return nil, fmt.Errorf("excluded-value rule for property %q has no usable matchers", rule.Property)
		}
		out = append(out, resolver.ValueRule{Property: rule.Property, Matchers: matchers})
	}
	return out, nil
}

// fileID is the repo-relative slash path identifying an analyzed file in
// results, bindings, and reports.
func (a *App) fileID(path string) string {
	return util.RelativeSlashPath(a.projectRoot, path)
}

func (a *App) ProjectRoot() string {
	return a.projectRoot
}

func (a *App) ResolvedPaths() config.ResolvedPaths {
	return a.paths
}

func (a *App) TokenKeys() []string {
	return a.analyzer.TokenKeys()
}

// SetTerminalSummary toggles the stdout summary printed after each
// watch-mode update.
func (a *App) SetTerminalSummary(enabled bool) {
	a.terminalSummary = enabled
}

func (a *App) currentRunID() string {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.runID
}

func (a *App) setRunID(id string) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	a.runID = id
}

// UpdateConfig swaps the analysis configuration in place. Derived state
// (token keys, rules, external mappings, cached results) is rebuilt; callers
// are expected to trigger a rescan afterwards.
func (a *App) UpdateConfig(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	rules, err := compileValueRules(cfg.Rules.ExcludedValues)
	if err != nil {
		return err
	}
	tokenKeys, err := collectTokenKeys(cfg, a.styleParser, a.projectRoot)
	if err != nil {
		return err
	}
	externals, err := newExternalIndex(cfg, a.styleParser, a.projectRoot)
	if err != nil {
		return err
	}
	excludeDirGlobs, err := helpers.CompilePatterns("exclude dir", cfg.Exclude.Dirs)
	if err != nil {
		return err
	}
	excludeFileGlobs, err := helpers.CompilePatterns("exclude file", cfg.Exclude.Files)
	if err != nil {
		return err
	}

	a.Config = cfg
	a.analyzer = resolver.New(tokenKeys, cfg.Properties.Tracked, rules)
	a.tracker = resolver.NewUnresolvedTracker(tokenKeys)
	a.externals = externals
	a.excludeDirGlobs = excludeDirGlobs
	a.excludeFileGlobs = excludeFileGlobs

	a.resultsMu.Lock()
	a.results = make(map[string]coverage.FileResult)
	a.resultsMu.Unlock()
	return nil
}

func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.activeWatcher != nil {
		if err := a.activeWatcher.Close(); err != nil {
			return err
		}
		a.activeWatcher = nil
	}
	return nil
}
