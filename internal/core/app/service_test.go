package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
	"tokentrace/internal/engine/coverage"
)

func writeFixture(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newFixtureApp builds an app over a two-file project: a sentinel token
// sheet at the root and one measurable component file under styles/.
func newFixtureApp(t *testing.T) (*App, string) {
	t.Helper()
	tmpDir := t.TempDir()

	writeFixture(t, tmpDir, "theme.css",
		":root {\n  --brand: #2563eb;\n  --accent: var(--brand);\n}\n")
	writeFixture(t, tmpDir, "styles/button.css",
		".button {\n  color: var(--brand);\n  background-color: #fff;\n  border-color: var(--missing);\n}\n")

	cfg := &config.Config{
		ScanPaths: []string{tmpDir},
		Paths:     config.Paths{ProjectRoot: tmpDir},
		Tokens:    config.Tokens{Keys: []string{"--brand"}},
		Properties: config.Properties{
			Tracked: []string{"color", "background-color", "border-color"},
		},
	}
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app, tmpDir
}

func TestAnalysisService_ScanAndSummary(t *testing.T) {
	app, _ := newFixtureApp(t)
	svc := app.AnalysisService()
	ctx := context.Background()

	result, err := svc.RunScan(ctx, ports.ScanRequest{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.FilesScanned != 2 {
		t.Fatalf("expected 2 files scanned, got %d", result.FilesScanned)
	}
	if result.Declarations != 3 {
		t.Fatalf("expected 3 tracked declarations, got %d", result.Declarations)
	}

	snapshot, err := svc.SummarySnapshot(ctx)
	if err != nil {
		t.Fatalf("summary snapshot: %v", err)
	}
	if snapshot.FileCount != 2 || snapshot.TokenCount != 1 || snapshot.SentinelFileCount != 1 {
		t.Fatalf("unexpected snapshot counters: %+v", snapshot)
	}
	if snapshot.GlobalPropagation != 33.33 {
		t.Fatalf("expected global propagation 33.33, got %v", snapshot.GlobalPropagation)
	}
	if len(snapshot.Directories) != 2 {
		t.Fatalf("expected 2 directory groups, got %d", len(snapshot.Directories))
	}

	fileResult, err := svc.FileResult(ctx, "styles/button.css")
	if err != nil {
		t.Fatalf("file result: %v", err)
	}
	if fileResult.Percentage != 33.33 || fileResult.TokenCount != 1 {
		t.Fatalf("unexpected file result: %+v", fileResult)
	}

	sentinel, err := svc.FileResult(ctx, "theme.css")
	if err != nil {
		t.Fatalf("sentinel file result: %v", err)
	}
	if sentinel.Percentage != coverage.NotApplicable {
		t.Fatalf("expected sentinel percentage for token sheet, got %v", sentinel.Percentage)
	}

	unresolved, err := svc.UnresolvedReport(ctx)
	if err != nil {
		t.Fatalf("unresolved report: %v", err)
	}
	if len(unresolved) != 1 || unresolved[0].VariableName != "--missing" {
		t.Fatalf("unexpected unresolved report: %+v", unresolved)
	}
	if len(unresolved[0].Files) != 1 || unresolved[0].Files[0] != "styles/button.css" {
		t.Fatalf("unexpected unresolved files: %+v", unresolved[0].Files)
	}
}

func TestAnalysisService_RunScanHonorsRequestPaths(t *testing.T) {
	app, _ := newFixtureApp(t)
	svc := app.AnalysisService()

	result, err := svc.RunScan(context.Background(), ports.ScanRequest{Paths: []string{"styles"}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.FilesScanned != 1 {
		t.Fatalf("expected scoped scan of 1 file, got %d", result.FilesScanned)
	}
}

func TestAnalysisService_SyncOutputsFiltersFormats(t *testing.T) {
	app, tmpDir := newFixtureApp(t)
	app.Config.Output.Snapshot = "propagation.json"
	app.Config.Output.DirectoryTSV = "directories.tsv"
	app.Config.Output.UnresolvedTSV = "unresolved.tsv"
	svc := app.AnalysisService()
	ctx := context.Background()

	if _, err := svc.RunScan(ctx, ports.ScanRequest{}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	result, err := svc.SyncOutputs(ctx, ports.SyncOutputsRequest{Formats: []string{"snapshot"}})
	if err != nil {
		t.Fatalf("sync outputs: %v", err)
	}
	if len(result.Written) != 1 || result.Written[0] != filepath.Join(tmpDir, "propagation.json") {
		t.Fatalf("unexpected written list: %v", result.Written)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "propagation.json")); err != nil {
		t.Fatalf("expected snapshot artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "directories.tsv")); !os.IsNotExist(err) {
		t.Fatal("directory TSV should be filtered out")
	}

	result, err = svc.SyncOutputs(ctx, ports.SyncOutputsRequest{})
	if err != nil {
		t.Fatalf("sync all outputs: %v", err)
	}
	if len(result.Written) != 3 {
		t.Fatalf("expected 3 artifacts, got %v", result.Written)
	}
	for _, name := range []string{"directories.tsv", "unresolved.tsv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); err != nil {
			t.Fatalf("expected %s artifact: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "directories.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "styles\t") {
		t.Fatalf("expected styles directory row, got:\n%s", data)
	}
}

type memoryHistoryStore struct {
	snapshots map[string][]history.Snapshot
	saveErr   error
}

func (m *memoryHistoryStore) SaveSnapshot(projectKey string, snapshot history.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.snapshots == nil {
		m.snapshots = make(map[string][]history.Snapshot)
	}
	m.snapshots[projectKey] = append(m.snapshots[projectKey], snapshot)
	return nil
}

func (m *memoryHistoryStore) LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error) {
	entries := m.snapshots[projectKey]
	out := make([]history.Snapshot, 0, len(entries))
	for _, entry := range entries {
		if !since.IsZero() && entry.Timestamp.Before(since) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func TestAnalysisService_CaptureHistoryTrend(t *testing.T) {
	app, tmpDir := newFixtureApp(t)
	svc := app.AnalysisService()
	ctx := context.Background()

	if _, err := svc.RunScan(ctx, ports.ScanRequest{}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	store := &memoryHistoryStore{}
	result, err := svc.CaptureHistoryTrend(ctx, store, ports.HistoryTrendRequest{
		ProjectKey:  "web",
		ProjectRoot: tmpDir,
	})
	if err != nil {
		t.Fatalf("capture trend: %v", err)
	}
	if !result.SnapshotSaved || result.SnapshotsEvaluated != 1 {
		t.Fatalf("unexpected capture result: %+v", result)
	}
	if result.Report == nil || result.Report.ScanCount != 1 {
		t.Fatalf("expected single-point trend report, got %+v", result.Report)
	}
	if result.LatestGlobalPct != 33.33 || result.LatestFileCount != 2 {
		t.Fatalf("unexpected latest metrics: %+v", result)
	}

	saved := store.snapshots["web"]
	if len(saved) != 1 || saved[0].TokenCount != 1 || saved[0].SchemaVersion != history.SchemaVersion {
		t.Fatalf("unexpected stored snapshot: %+v", saved)
	}

	if _, err := svc.CaptureHistoryTrend(ctx, nil, ports.HistoryTrendRequest{}); err == nil {
		t.Fatal("expected error without history store")
	}
}

func TestWatchService_SubscribeDeliversUpdates(t *testing.T) {
	app, tmpDir := newFixtureApp(t)
	svc := app.AnalysisService()
	ctx := context.Background()

	if _, err := svc.RunScan(ctx, ports.ScanRequest{}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	watch := svc.WatchService()
	current, err := watch.CurrentUpdate(ctx)
	if err != nil {
		t.Fatalf("current update: %v", err)
	}
	if current.FileCount != 2 || current.TokenCount != 1 {
		t.Fatalf("unexpected current update: %+v", current)
	}

	var got ports.WatchUpdate
	if err := watch.Subscribe(ctx, func(update ports.WatchUpdate) { got = update }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	writeFixture(t, tmpDir, "styles/button.css",
		".button {\n  color: var(--brand);\n  background-color: var(--brand);\n  border-color: var(--brand);\n}\n")
	app.HandleChanges([]string{filepath.Join(tmpDir, "styles", "button.css")})

	if got.FileCount != 2 {
		t.Fatalf("expected update after re-analysis, got %+v", got)
	}
	if got.TokenCount != 3 {
		t.Fatalf("expected 3 token declarations after edit, got %+v", got)
	}
	if got.UnresolvedCount != 0 {
		t.Fatalf("expected unresolved name cleared after edit, got %+v", got)
	}
}

func TestAnalysisService_GenerateMarkdownReport(t *testing.T) {
	app, tmpDir := newFixtureApp(t)
	svc := app.AnalysisService()
	ctx := context.Background()

	if _, err := svc.RunScan(ctx, ports.ScanRequest{}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	target := filepath.Join(tmpDir, "report.md")
	result, err := svc.GenerateMarkdownReport(ctx, ports.MarkdownReportRequest{Path: target})
	if err != nil {
		t.Fatalf("generate markdown: %v", err)
	}
	if !result.Written || result.Path != target {
		t.Fatalf("unexpected markdown result: %+v", result)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read markdown report: %v", err)
	}
	if !strings.Contains(string(data), "--missing") {
		t.Fatalf("expected unresolved section in report, got:\n%s", data)
	}
}

func TestNewWithDependencies_Validation(t *testing.T) {
	if _, err := NewWithDependencies(nil, Dependencies{}); err == nil {
		t.Fatal("expected config requirement error")
	}
	if _, err := NewWithDependencies(&config.Config{}, Dependencies{}); err == nil {
		t.Fatal("expected parser requirement error")
	}
}

func TestCompileValueRules(t *testing.T) {
	rules, err := compileValueRules([]config.ExcludedValueRule{
		{Property: "*", Values: []string{"inherit", "!var(--legacy-ok)"}, Patterns: []string{`^url\(`}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 || len(rules[0].Matchers) != 3 {
		t.Fatalf("unexpected compiled rules: %+v", rules)
	}

	if _, err := compileValueRules([]config.ExcludedValueRule{{Property: "color", Patterns: []string{"("}}}); err == nil {
		t.Fatal("expected invalid pattern error")
	}
	if _, err := compileValueRules([]config.ExcludedValueRule{{Property: "color"}}); err == nil {
		t.Fatal("expected empty matcher error")
	}
}
