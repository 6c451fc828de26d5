package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
	"tokentrace/internal/data/query"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/shared/observability"
	"tokentrace/internal/shared/util"
	"tokentrace/internal/shared/version"
	"tokentrace/internal/ui/report"
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("tokentrace v%s\n", version.Version)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}

	activeProject, err := resolveRuntimeProject(cfg, paths, cwd)
	if err != nil {
		slog.Error("failed to resolve active project", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceShutdown, err := observability.InitTracing(ctx, "tokentrace", tracingEndpoint(cfg))
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		if err := traceShutdown(context.Background()); err != nil {
			slog.Warn("failed to flush trace spans", "error", err)
		}
	}()

	coreApp, analysis, err := initializeAnalysis(cfg, coreAnalysisFactory{})
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() { _ = coreApp.Close(context.Background()) }()

	watchMode := opts.watch || opts.ui || opts.serve
	coreApp.SetTerminalSummary(watchMode && !opts.ui)

	scanStart := time.Now()
	if _, err := analysis.RunScan(ctx, ports.ScanRequest{}); err != nil {
		slog.Error("initial scan failed", "error", err)
		return 1
	}
	scanDuration := time.Since(scanStart)

	historyStore, err := openHistoryStoreIfEnabled(opts.history, cfg, paths)
	if err != nil {
		slog.Error("history setup failed", "error", err)
		return 1
	}
	if historyStore != nil {
		defer historyStore.Close()
	}
	var store ports.HistoryStore
	if historyStore != nil {
		store = history.NewAdapter(historyStore)
	}

	summary, err := analysis.SummarySnapshot(ctx)
	if err != nil {
		slog.Error("failed to collect summary snapshot", "error", err)
		return 1
	}

	if _, err := analysis.SyncOutputs(ctx, ports.SyncOutputsRequest{}); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	trendReport, err := runHistoryMode(opts, analysis, activeProject, store, cfg, paths)
	if err != nil {
		slog.Error("history mode failed", "error", err)
		return 1
	}

	if stop, code := runQueryCommand(analysis, opts, store, activeProject.Key, paths.ProjectRoot); stop {
		return code
	}

	if !opts.ui {
		if err := analysis.PrintSummary(ctx, ports.SummaryPrintRequest{
			Duration: scanDuration,
			Snapshot: summary,
		}); err != nil {
			slog.Error("failed to print summary", "error", err)
			return 1
		}
	}

	if !watchMode {
		return 0
	}

	obsServer, err := startObservabilityServer(opts, cfg, coreApp, store)
	if err != nil {
		slog.Error("failed to start observability server", "error", err)
		return 1
	}
	if obsServer != nil {
		defer func() { _ = obsServer.Stop(context.Background()) }()
	}

	watch := analysis.WatchService()
	if watch == nil {
		slog.Error("watch service unavailable")
		return 1
	}
	if err := watch.Start(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	if opts.ui {
		if err := runUI(ctx, analysis, trendReport, paths.ProjectRoot); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	<-ctx.Done()
	return 0
}

func runQueryCommand(analysis ports.AnalysisService, opts cliOptions, historyStore ports.HistoryStore, projectKey, projectRoot string) (bool, int) {
	if opts.query == "" && opts.file == "" && !opts.trends {
		return false, 0
	}

	if analysis == nil {
		fmt.Fprintln(os.Stderr, "analysis service unavailable")
		return true, 1
	}
	svc := analysis.QueryService(historyStore, projectKey)
	if svc == nil {
		fmt.Fprintln(os.Stderr, "query service unavailable")
		return true, 1
	}
	ctx := context.Background()

	switch {
	case opts.file != "":
		details, err := svc.FileDetails(ctx, strings.TrimSpace(opts.file))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		printFileDetails(details)
		if opts.explain != "" {
			if err := printVariableContext(projectRoot, details.Path, opts.explain); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				return true, 1
			}
		}
		return true, 0
	case opts.trends:
		if historyStore == nil {
			fmt.Fprintln(os.Stderr, "-trends requires -history and db.enabled=true")
			return true, 1
		}
		since, err := parseSince(opts.since)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		slice, err := svc.TrendSlice(ctx, since, opts.queryLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Printf("Trend slice: scans=%d since=%s until=%s\n",
			slice.ScanCount,
			slice.Since.Format("2006-01-02 15:04:05"),
			slice.Until.Format("2006-01-02 15:04:05"),
		)
		for _, point := range slice.Points {
			fmt.Printf("  %s files=%d declarations=%d tokens=%d unresolved=%d propagation=%.2f%% (%+.2f)\n",
				point.Timestamp.Format(time.RFC3339),
				point.FileCount,
				point.DeclarationCount,
				point.TokenCount,
				point.UnresolvedCount,
				point.GlobalPct,
				point.DeltaGlobalPct,
			)
		}
		return true, 0
	default:
		switch target := queryTarget(opts.query); target {
		case "directories":
			rows, err := svc.ListDirectories(ctx, opts.query, opts.queryLimit)
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				return true, 1
			}
			fmt.Printf("Directories (%d):\n", len(rows))
			for _, row := range rows {
				fmt.Printf("  %s files=%d propagation=%s\n",
					helpers.DecodeDirKey(row.Key), row.FileCount, pctLabel(row.AveragePropagation))
			}
			return true, 0
		case "files":
			rows, err := svc.ListFiles(ctx, opts.query, opts.queryLimit)
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				return true, 1
			}
			fmt.Printf("Files (%d):\n", len(rows))
			for _, row := range rows {
				fmt.Printf("  %s tokens=%d declarations=%d unresolved=%d propagation=%s\n",
					row.Path, row.TokenCount, row.DeclarationCount, row.UnresolvedCount, pctLabel(row.Percentage))
			}
			return true, 0
		default:
			fmt.Fprintf(os.Stderr, "query target must be directories or files, got %q\n", target)
			return true, 1
		}
	}
}

// queryTarget extracts the SELECT target from a raw query. Bare WHERE-clause
// fragments default to the files collection.
func queryTarget(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return "files"
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return ""
	}
	return strings.ToLower(fields[1])
}

func printFileDetails(details query.FileDetails) {
	fmt.Printf("File: %s\n", details.Path)
	if details.Language != "" {
		fmt.Printf("Language: %s\n", details.Language)
	}
	fmt.Printf("Propagation: %s (%d token, %d total, %d excluded declarations)\n",
		pctLabel(details.Percentage), details.TokenCount, details.DeclarationCount, details.TrackedCount)
	if details.UnresolvedCount > 0 {
		fmt.Printf("Unresolved custom properties: %d\n", details.UnresolvedCount)
	}
	if len(details.Declarations) > 0 {
		fmt.Println("Declarations:")
		for _, decl := range details.Declarations {
			fmt.Printf("  %4d: %s: %s [%s]\n", decl.Span.Start.Line, decl.Property, decl.Value, decl.ResolutionType)
			if len(decl.UnresolvedVariables) > 0 {
				fmt.Printf("        unresolved: %s\n", strings.Join(decl.UnresolvedVariables, ", "))
			}
		}
	}
	if len(details.Warnings) > 0 {
		fmt.Println("Warnings:")
		for _, warning := range details.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}
}

func printVariableContext(projectRoot, relPath, variable string) error {
	abs := relPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(projectRoot, filepath.FromSlash(relPath))
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %q: %w", relPath, err)
	}

	usage := report.GetVariableContext(variable, relPath, content)
	if len(usage.Snippets) == 0 {
		fmt.Printf("No occurrences of %s in %s\n", usage.Variable, relPath)
		return nil
	}
	fmt.Printf("Occurrences of %s (%d):\n", usage.Variable, len(usage.Snippets))
	for _, snippet := range usage.Snippets {
		kind := "reference"
		if snippet.Declaration {
			kind = "declaration"
		}
		fmt.Printf("- line %d (%s)\n", snippet.Line, kind)
		for _, line := range snippet.Context {
			fmt.Printf("    %s\n", line)
		}
	}
	return nil
}

func pctLabel(v float64) string {
	if v == coverage.NotApplicable {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func loadConfig(path, cwd string) (*config.Config, error) {
	if path != defaultConfigPath {
		return config.Load(path)
	}

	candidates, err := discoverDefaultConfig(cwd)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, candidate := range candidates {
		cfg, loadErr := config.Load(candidate)
		if loadErr == nil {
			if candidate == filepath.Clean(filepath.Join(cwd, "tokentrace.toml")) {
				fmt.Fprintln(os.Stderr, "warning: using deprecated config path ./tokentrace.toml; migrate to ./data/config/tokentrace.toml")
			}
			return cfg, nil
		}
		if os.IsNotExist(loadErr) {
			lastErr = loadErr
			continue
		}
		return nil, loadErr
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no default config file found")
}

func discoverDefaultConfig(cwd string) ([]string, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, fmt.Errorf("cwd must not be empty")
	}
	return []string{
		filepath.Clean(filepath.Join(cwd, "data/config/tokentrace.toml")),
		filepath.Clean(filepath.Join(cwd, "tokentrace.toml")),
		filepath.Clean(filepath.Join(cwd, "data/config/tokentrace.example.toml")),
		filepath.Clean(filepath.Join(cwd, "tokentrace.example.toml")),
	}, nil
}

func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	modeCount := 0
	if opts.query != "" {
		modeCount++
	}
	if opts.file != "" {
		modeCount++
	}
	if opts.trends {
		modeCount++
	}
	if modeCount > 1 {
		return fmt.Errorf("-query, -file, and -trends modes cannot be combined")
	}
	if modeCount > 0 && (opts.watch || opts.ui || opts.serve) {
		return fmt.Errorf("query modes cannot be combined with -watch, -ui, or -serve")
	}

	if opts.explain != "" && opts.file == "" {
		return fmt.Errorf("-explain requires -file")
	}

	if opts.once && (opts.watch || opts.ui || opts.serve) {
		return fmt.Errorf("-once cannot be combined with -watch, -ui, or -serve")
	}

	if len(opts.args) > 0 {
		cfg.ScanPaths = append([]string(nil), opts.args...)
	}

	if (opts.historyTSV != "" || opts.historyJSON != "") && !opts.history {
		return fmt.Errorf("-history-tsv/-history-json require -history")
	}
	if opts.trends && !opts.history {
		return fmt.Errorf("-trends requires -history")
	}
	if opts.history {
		if _, err := parseHistoryWindow(opts.historyWindow); err != nil {
			return err
		}
	}
	return nil
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("-since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func writeBytes(path string, data []byte) error {
	return util.WriteFileWithDirs(path, data, 0o644)
}

func runHistoryMode(
	opts cliOptions,
	analysis ports.AnalysisService,
	activeProject config.ActiveProject,
	store ports.HistoryStore,
	cfg *config.Config,
	paths config.ResolvedPaths,
) (*history.TrendReport, error) {
	if !opts.history {
		return nil, nil
	}
	if analysis == nil {
		return nil, fmt.Errorf("analysis service unavailable")
	}

	since, err := parseSince(opts.since)
	if err != nil {
		return nil, err
	}
	window, err := parseHistoryWindow(opts.historyWindow)
	if err != nil {
		return nil, err
	}

	if store == nil {
		return nil, fmt.Errorf("history store unavailable (set db.enabled=true)")
	}

	trend, err := analysis.CaptureHistoryTrend(context.Background(), store, ports.HistoryTrendRequest{
		ProjectKey:  activeProject.Key,
		ProjectRoot: activeProject.Root,
		Since:       since,
		Window:      window,
	})
	if err != nil {
		return nil, err
	}
	if trend.Report == nil {
		fmt.Println("History: no snapshots matched the requested time window.")
		return nil, nil
	}
	trendReport := trend.Report

	fmt.Printf(
		"History: %d snapshots from %s to %s\n",
		trendReport.ScanCount,
		trendReport.Since.Format("2006-01-02 15:04:05"),
		trendReport.Until.Format("2006-01-02 15:04:05"),
	)
	if len(trendReport.Points) > 0 {
		latest := trendReport.Points[len(trendReport.Points)-1]
		fmt.Printf(
			"Trend latest: propagation=%.2f%% (%+.2f), tokens=%d (%+d), unresolved=%d (%+d)\n",
			latest.GlobalPct,
			latest.DeltaGlobalPct,
			latest.TokenCount,
			latest.DeltaTokens,
			latest.UnresolvedCount,
			latest.DeltaUnresolved,
		)
	}

	if target := resolveTrendTarget(opts.historyTSV, cfg.Output.TrendTSV, paths.OutputRoot); target != "" {
		tsv, err := report.RenderTrendTSV(*trendReport)
		if err != nil {
			return nil, fmt.Errorf("render trend TSV: %w", err)
		}
		if err := writeBytes(target, tsv); err != nil {
			return nil, fmt.Errorf("write trend TSV %q: %w", target, err)
		}
	}

	if target := resolveTrendTarget(opts.historyJSON, cfg.Output.TrendJSON, paths.OutputRoot); target != "" {
		raw, err := report.RenderTrendJSON(*trendReport)
		if err != nil {
			return nil, fmt.Errorf("render trend JSON: %w", err)
		}
		if err := writeBytes(target, raw); err != nil {
			return nil, fmt.Errorf("write trend JSON %q: %w", target, err)
		}
	}

	return trendReport, nil
}

// resolveTrendTarget picks the trend artifact destination: an explicit flag
// path wins as given (cwd-relative), otherwise the configured path resolves
// against the output root.
func resolveTrendTarget(flagValue, cfgValue, outputRoot string) string {
	if target := strings.TrimSpace(flagValue); target != "" {
		return target
	}
	target := strings.TrimSpace(cfgValue)
	if target == "" {
		return ""
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(outputRoot, target)
	}
	return target
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("-history-window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("-history-window must be > 0, got %q", value)
	}
	return d, nil
}

func openHistoryStoreIfEnabled(enabled bool, cfg *config.Config, paths config.ResolvedPaths) (*history.Store, error) {
	if !enabled {
		return nil, nil
	}
	if !cfg.DB.Enabled {
		return nil, nil
	}

	store, err := history.Open(paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

func resolveRuntimeProject(cfg *config.Config, paths config.ResolvedPaths, cwd string) (config.ActiveProject, error) {
	entries := cfg.Projects.Entries
	if len(entries) == 0 && strings.TrimSpace(cfg.Projects.RegistryFile) != "" {
		registryPath := config.ResolveRelative(paths.ConfigDir, cfg.Projects.RegistryFile)
		if loaded, err := config.LoadProjectRegistry(registryPath); err == nil {
			cfg.Projects.Entries = loaded
		} else if !os.IsNotExist(err) {
			return config.ActiveProject{}, fmt.Errorf("load projects registry %q: %w", registryPath, err)
		}
	}
	for i := range cfg.Projects.Entries {
		cfg.Projects.Entries[i].Root = config.ResolveRelative(paths.ProjectRoot, cfg.Projects.Entries[i].Root)
		if strings.TrimSpace(cfg.Projects.Entries[i].ConfigFile) != "" {
			cfg.Projects.Entries[i].ConfigFile = config.ResolveRelative(paths.ConfigDir, cfg.Projects.Entries[i].ConfigFile)
		}
	}
	project, err := config.ResolveActiveProject(cfg, cwd)
	if err != nil {
		return config.ActiveProject{}, err
	}
	if strings.TrimSpace(project.Root) == "" {
		project.Root = paths.ProjectRoot
	}
	if strings.TrimSpace(project.Key) == "" {
		project.Key = "default"
	}
	return project, nil
}

// tracingEndpoint returns the OTLP endpoint when tracing is switched on, so
// InitTracing keeps the no-op provider otherwise.
func tracingEndpoint(cfg *config.Config) string {
	if !cfg.Observability.EnableTracing {
		return ""
	}
	return strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	var closeFn func() = func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "tokentrace", "tokentrace.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "tokentrace", "tokentrace.log")
	}

	return "tokentrace.log"
}
