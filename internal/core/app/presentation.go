package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/engine/coverage"
)

// presenter renders the per-scan terminal summary.
type presenter struct {
	app *App
}

func newPresenter(app *App) *presenter {
	return &presenter{app: app}
}

// PrintSummary writes a short propagation summary to stdout after a scan or
// an incremental update.
func (p *presenter) PrintSummary(changedCount int, duration time.Duration, snapshot ports.SummarySnapshot) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("📄 %d files · %d tracked declarations (%d changed in %s)\n",
		snapshot.FileCount, snapshot.DeclarationCount, changedCount, duration.Round(time.Millisecond))

	if snapshot.GlobalPropagation == coverage.NotApplicable {
		fmt.Println("❓ Token propagation: n/a (nothing measurable yet)")
	} else {
		icon := "⚠️"
		if snapshot.GlobalPropagation >= 80 {
			icon = "✅"
		}
		measurable := snapshot.DeclarationCount - snapshot.TrackedCount
		fmt.Printf("%s Token propagation: %.2f%% (%d of %d declarations use design tokens)\n",
			icon, snapshot.GlobalPropagation, snapshot.TokenCount, measurable)
	}

	if laggards := helpers.DirectoryLaggards(snapshot.Directories, 3); len(laggards) > 0 {
		fmt.Printf("🔥 Lowest directories: %s\n", strings.Join(laggards, ", "))
	}
	if len(snapshot.Unresolved) > 0 {
		fmt.Printf("❓ %d unresolved custom properties (top: %s)\n",
			len(snapshot.Unresolved), strings.Join(topUnresolvedNames(snapshot, 3), ", "))
	}
	if snapshot.SentinelFileCount > 0 {
		fmt.Printf("🧹 %d files with no measurable declarations\n", snapshot.SentinelFileCount)
	}
	fmt.Println(strings.Repeat("-", 40))
}

func topUnresolvedNames(snapshot ports.SummarySnapshot, limit int) []string {
	type nameCount struct {
		name  string
		count int
	}
	entries := make([]nameCount, 0, len(snapshot.Unresolved))
	for _, entry := range snapshot.Unresolved {
		entries = append(entries, nameCount{entry.VariableName, entry.FileCount})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].name < entries[j].name
		}
		return entries[i].count > entries[j].count
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.name)
	}
	return names
}
