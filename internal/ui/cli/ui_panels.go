package cli

import (
	"fmt"
	"strings"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/data/history"
)

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | enter details | esc back | t trend overlay | j/k file cursor | o open source | q quit"
	if m.mode == panelUnresolved {
		keys = "Keys: tab panel | / filter | t trend overlay | q quit"
	}
	return statusStyle.Render(keys)
}

func renderDirectoryPanel(m model) string {
	summary := m.dirList.View()
	details := renderDirectorySummary(m)
	if m.hasDirDetails {
		details = renderDirectoryDetails(m)
	}
	return summary + "\n\n" + details
}

func renderDirectorySummary(m model) string {
	if len(m.directories) == 0 {
		return statusStyle.Render("No directories available.")
	}
	idx := m.dirList.Index()
	if idx < 0 || idx >= len(m.directories) {
		idx = 0
	}
	selected := m.directories[idx]
	return strings.Join([]string{
		"Selected Directory",
		fmt.Sprintf("  Path: %s", helpers.DecodeDirKey(selected.Key)),
		fmt.Sprintf("  Files: %d", selected.FileCount),
		fmt.Sprintf("  Propagation: %s", pctLabel(selected.AveragePropagation)),
		"  Press enter to list files.",
	}, "\n")
}

func renderDirectoryDetails(m model) string {
	if m.dirDetailsErr != "" {
		return warnStyle.Render("Directory details error: " + m.dirDetailsErr)
	}
	idx := m.dirList.Index()
	if idx < 0 || idx >= len(m.directories) {
		idx = 0
	}
	dirPath := "."
	if len(m.directories) > 0 {
		dirPath = helpers.DecodeDirKey(m.directories[idx].Key)
	}
	lines := []string{
		fmt.Sprintf("Directory Detail: %s", dirPath),
		fmt.Sprintf("  Files (%d):", len(m.dirFiles)),
	}
	for i, f := range m.dirFiles {
		prefix := "   "
		if i == m.selectedFileIndex {
			prefix = " ->"
		}
		lines = append(lines, fmt.Sprintf("%s %s propagation=%s tokens=%d unresolved=%d",
			prefix, f.Path, pctLabel(f.Percentage), f.TokenCount, f.UnresolvedCount))
	}
	if len(m.dirFiles) == 0 {
		lines = append(lines, "   none")
	}
	lines = append(lines, "  Press esc to exit details, o to open the highlighted file.")
	return strings.Join(lines, "\n")
}

func renderTrendOverlay(report *history.TrendReport) string {
	if report == nil || len(report.Points) == 0 {
		return statusStyle.Render("Trend overlay unavailable (enable -history to capture snapshots).")
	}
	last := report.Points[len(report.Points)-1]
	return strings.Join([]string{
		"Trend Overlay",
		fmt.Sprintf("  Window: %s | Scans: %d", report.Window, report.ScanCount),
		fmt.Sprintf("  Propagation drift: %+.2f (now %.2f%%, avg %.2f%%)", last.DeltaGlobalPct, last.GlobalPct, last.AvgGlobalPct),
		fmt.Sprintf("  Token growth: %+d (%.2f%%)", last.DeltaTokens, last.TokenGrowthPct),
		fmt.Sprintf("  Files delta: %+d | Unresolved delta: %+d", last.DeltaFiles, last.DeltaUnresolved),
	}, "\n")
}
