package cli

import (
	"context"
	"testing"
	"time"

	"tokentrace/internal/data/query"
	"tokentrace/internal/engine/resolver"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeQueryService struct {
	directories []query.DirectorySummary
	files       []query.FileSummary
}

func (f fakeQueryService) ListDirectories(ctx context.Context, filter string, limit int) ([]query.DirectorySummary, error) {
	return f.directories, nil
}

func (f fakeQueryService) ListFiles(ctx context.Context, filter string, limit int) ([]query.FileSummary, error) {
	return f.files, nil
}

func (f fakeQueryService) FileDetails(ctx context.Context, path string) (query.FileDetails, error) {
	return query.FileDetails{}, nil
}

func (f fakeQueryService) TrendSlice(ctx context.Context, since time.Time, limit int) (query.TrendSlice, error) {
	return query.TrendSlice{}, nil
}

func TestModel_FilterAndFocusFlow(t *testing.T) {
	m := initialModel(nil, nil, "")

	updated, _ := m.Update(updateMsg{
		unresolved: []resolver.UnresolvedVariable{
			{VariableName: "--brand-primary", FileCount: 2, Files: []string{"a.css", "b.css"}},
			{VariableName: "--spacing-lg", FileCount: 1, Files: []string{"layout.css"}},
		},
		directories: []query.DirectorySummary{
			{Key: ".", FileCount: 2, AveragePropagation: 50},
			{Key: "styles", FileCount: 1, AveragePropagation: 100},
		},
		fileCount: 3,
		declCount: 9,
		globalPct: 66.67,
	})

	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	if len(state.unresolvedList.Items()) != 2 {
		t.Fatalf("expected 2 unresolved items, got %d", len(state.unresolvedList.Items()))
	}
	if len(state.dirList.Items()) != 2 {
		t.Fatalf("expected 2 directory items, got %d", len(state.dirList.Items()))
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyTab})
	state = updated.(model)
	if state.mode != panelDirectories {
		t.Fatalf("expected directory panel after tab, got %v", state.mode)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyTab})
	state = updated.(model)
	if state.mode != panelUnresolved {
		t.Fatalf("expected unresolved panel after second tab, got %v", state.mode)
	}
}

func TestModel_DirectoryDrillDownAndTrendToggle(t *testing.T) {
	svc := fakeQueryService{
		files: []query.FileSummary{
			{Path: "styles/components/button.css", Percentage: 75, TokenCount: 3, DeclarationCount: 4},
			{Path: "styles/theme.css", Percentage: 100, TokenCount: 2, DeclarationCount: 2},
		},
	}

	m := initialModel(svc, nil, "")
	updated, _ := m.Update(updateMsg{
		directories: []query.DirectorySummary{
			{Key: "styles%2Fcomponents", FileCount: 1, AveragePropagation: 75},
			{Key: "styles", FileCount: 1, AveragePropagation: 100},
		},
		fileCount: 2,
		declCount: 6,
		globalPct: 83.33,
	})
	state := updated.(model)

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyTab})
	state = updated.(model)
	if state.mode != panelDirectories {
		t.Fatalf("expected directory panel, got %v", state.mode)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = updated.(model)
	if !state.hasDirDetails {
		t.Fatal("expected directory details to open")
	}
	if len(state.dirFiles) != 1 {
		t.Fatalf("expected 1 file in directory detail, got %d", len(state.dirFiles))
	}
	if state.dirFiles[0].Path != "styles/components/button.css" {
		t.Fatalf("unexpected file in directory detail: %q", state.dirFiles[0].Path)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	state = updated.(model)
	if !state.showTrend {
		t.Fatal("expected trend overlay toggled on")
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEsc})
	state = updated.(model)
	if state.hasDirDetails {
		t.Fatal("expected directory details to close on esc")
	}
}
