package cli

import (
	"context"

	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, analysis ports.AnalysisService, trendReport *history.TrendReport, projectRoot string) error {
	svc := analysis.QueryService(nil, "default")
	m := initialModel(svc, trendReport, projectRoot)
	p := tea.NewProgram(m, tea.WithAltScreen())

	sendUpdate := func(update ports.WatchUpdate) {
		directories, err := svc.ListDirectories(ctx, "", 0)
		if err != nil {
			directories = nil
		}
		unresolved, err := analysis.UnresolvedReport(ctx)
		if err != nil {
			unresolved = nil
		}
		p.Send(updateMsg{
			unresolved:  unresolved,
			directories: directories,
			fileCount:   update.FileCount,
			declCount:   update.DeclarationCount,
			globalPct:   update.GlobalPropagation,
		})
	}

	watch := analysis.WatchService()
	if watch != nil {
		if err := watch.Subscribe(ctx, sendUpdate); err != nil {
			return err
		}
		go func() {
			update, err := watch.CurrentUpdate(ctx)
			if err != nil {
				return
			}
			sendUpdate(update)
		}()
	}

	_, err := p.Run()
	return err
}
