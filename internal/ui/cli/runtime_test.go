package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreapp "tokentrace/internal/core/app"
	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
)

func TestApplyModeOptions_RejectsCombinedQueryModes(t *testing.T) {
	opts := &cliOptions{query: "SELECT files", file: "styles/button.css"}
	cfg := &config.Config{}

	err := applyModeOptions(opts, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cannot be combined") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_QueryModeRejectsWatch(t *testing.T) {
	opts := &cliOptions{query: "SELECT directories", watch: true}
	cfg := &config.Config{}

	err := applyModeOptions(opts, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cannot be combined") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_ExplainRequiresFile(t *testing.T) {
	opts := &cliOptions{explain: "--brand-primary"}
	cfg := &config.Config{}

	err := applyModeOptions(opts, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "requires -file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_OnceRejectsWatch(t *testing.T) {
	opts := &cliOptions{once: true, ui: true}
	cfg := &config.Config{}

	err := applyModeOptions(opts, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "-once cannot be combined") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_OverridesScanPathsWithPositionalArgs(t *testing.T) {
	opts := &cliOptions{args: []string{"./override"}}
	cfg := &config.Config{ScanPaths: []string{"./original"}}

	if err := applyModeOptions(opts, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.ScanPaths) != 1 || cfg.ScanPaths[0] != "./override" {
		t.Fatalf("unexpected scan paths: %v", cfg.ScanPaths)
	}
}

func TestApplyModeOptions_HistoryOutputsRequireHistoryFlag(t *testing.T) {
	opts := &cliOptions{historyTSV: "trend.tsv"}
	cfg := &config.Config{}

	err := applyModeOptions(opts, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "require -history") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_TrendsRequiresHistory(t *testing.T) {
	opts := &cliOptions{trends: true}
	cfg := &config.Config{}

	err := applyModeOptions(opts, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "requires -history") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantZero  bool
		wantError bool
	}{
		{name: "empty", input: "", wantZero: true},
		{name: "date", input: "2026-02-13"},
		{name: "rfc3339", input: "2026-02-13T15:00:00Z"},
		{name: "invalid", input: "13/02/2026", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSince(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantZero && !got.Equal(time.Time{}) {
				t.Fatalf("expected zero time, got %v", got)
			}
			if !tt.wantZero && got.IsZero() {
				t.Fatal("expected non-zero parsed time")
			}
		})
	}
}

func TestParseHistoryWindow(t *testing.T) {
	if _, err := parseHistoryWindow("24h"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got, err := parseHistoryWindow(""); err != nil || got != 24*time.Hour {
		t.Fatalf("expected 24h default, got %v (%v)", got, err)
	}
	if _, err := parseHistoryWindow("0h"); err == nil {
		t.Fatal("expected error for non-positive window")
	}
}

func TestQueryTarget(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "bare filter", query: "percentage < 50", want: "files"},
		{name: "select directories", query: "SELECT directories", want: "directories"},
		{name: "select files with filter", query: "SELECT files WHERE tokens > 0", want: "files"},
		{name: "lowercase select", query: "select directories where files >= 2", want: "directories"},
		{name: "unknown target", query: "SELECT declarations", want: "declarations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryTarget(tt.query); got != tt.want {
				t.Fatalf("queryTarget(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestResolveTrendTarget(t *testing.T) {
	root := filepath.Join("out", "root")

	if got := resolveTrendTarget("flag.tsv", "cfg.tsv", root); got != "flag.tsv" {
		t.Fatalf("expected flag path to win, got %q", got)
	}
	if got := resolveTrendTarget("", "cfg.tsv", root); got != filepath.Join(root, "cfg.tsv") {
		t.Fatalf("expected config path under output root, got %q", got)
	}
	abs := filepath.Join(string(filepath.Separator), "tmp", "trend.tsv")
	if got := resolveTrendTarget("", abs, root); got != abs {
		t.Fatalf("expected absolute config path unchanged, got %q", got)
	}
	if got := resolveTrendTarget("", "", root); got != "" {
		t.Fatalf("expected empty target, got %q", got)
	}
}

func TestInitializeAnalysis_RequiresFactory(t *testing.T) {
	if _, _, err := initializeAnalysis(&config.Config{}, nil); err == nil {
		t.Fatal("expected factory requirement error")
	}
}

func TestLoadConfig_DefaultDiscoveryOrder(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "data", "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(tmpDir, "data", "config", "tokentrace.toml")
	if err := os.WriteFile(cfgPath, []byte("scan_paths = [\"./styles\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(defaultConfigPath, tmpDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.ScanPaths) != 1 || cfg.ScanPaths[0] != "./styles" {
		t.Fatalf("unexpected config payload: %+v", cfg.ScanPaths)
	}
}

func TestLoadConfig_CustomPathNoFallback(t *testing.T) {
	tmpDir := t.TempDir()
	custom := filepath.Join(tmpDir, "custom.toml")

	_, err := loadConfig(custom, tmpDir)
	if err == nil {
		t.Fatal("expected missing custom config error")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestOpenHistoryStore_UsesConfiguredDBPath(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{
		Paths: config.Paths{
			ProjectRoot: tmpDir,
			DatabaseDir: filepath.Join(tmpDir, "db"),
		},
		DB: config.Database{
			Enabled: true,
			Path:    "nested/history.db",
		},
	}
	paths, err := config.ResolvePaths(cfg, tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	store, err := openHistoryStoreIfEnabled(true, cfg, paths)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Path() != filepath.Join(tmpDir, "db", "nested", "history.db") {
		t.Fatalf("unexpected history path: %q", store.Path())
	}
}

func TestOpenHistoryStore_DBDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{DB: config.Database{Enabled: false}}
	paths, err := config.ResolvePaths(cfg, filepath.Join(tmpDir))
	if err != nil {
		t.Fatal(err)
	}

	store, err := openHistoryStoreIfEnabled(true, cfg, paths)
	if err != nil {
		t.Fatal(err)
	}
	if store != nil {
		t.Fatal("expected nil store when db disabled")
	}
}

func TestRunHistoryMode_SQLiteIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	stylesheet := ":root { --brand: #2563eb; }\n.button { color: var(--brand); }\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "theme.css"), []byte(stylesheet), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		ScanPaths: []string{tmpDir},
		Paths:     config.Paths{ProjectRoot: tmpDir},
		Tokens:    config.Tokens{Keys: []string{"--brand"}},
		Properties: config.Properties{
			Tracked: []string{"color"},
		},
		DB: config.Database{Enabled: true, Path: "history.db"},
	}
	paths, err := config.ResolvePaths(cfg, tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	app, err := coreapp.New(cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer func() { _ = app.Close(context.Background()) }()
	analysis := app.AnalysisService()

	if _, err := analysis.RunScan(context.Background(), ports.ScanRequest{}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	rawStore, err := openHistoryStoreIfEnabled(true, cfg, paths)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer rawStore.Close()
	store := history.NewAdapter(rawStore)

	report, err := runHistoryMode(
		cliOptions{history: true, historyWindow: "24h"},
		analysis,
		config.ActiveProject{Name: "default", Root: tmpDir, Key: "default"},
		store,
		cfg,
		paths,
	)
	if err != nil {
		t.Fatalf("run history mode: %v", err)
	}
	if report == nil || report.ScanCount == 0 {
		t.Fatalf("expected report with snapshots, got %+v", report)
	}

	snapshots, err := rawStore.LoadSnapshots("default", time.Time{})
	if err != nil {
		t.Fatalf("load snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].TokenCount == 0 {
		t.Fatalf("expected token declarations in snapshot, got %+v", snapshots[0])
	}
}
