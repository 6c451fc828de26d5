package cli

import (
	"fmt"
	"strings"
	"time"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
	"tokentrace/internal/data/query"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	unresolvedList list.Model
	dirList        list.Model
	mode           panelMode
	querySvc       ports.QueryService
	trendReport    *history.TrendReport
	showTrend      bool
	unresolved     []resolver.UnresolvedVariable
	directories    []query.DirectorySummary
	lastUpdate     time.Time
	fileCount      int
	declCount      int
	globalPct      float64

	dirFiles          []query.FileSummary
	hasDirDetails     bool
	dirDetailsErr     string
	selectedFileIndex int
	sourceJumpStatus  string
	projectRoot       string
}

type panelMode int

const (
	panelUnresolved panelMode = iota
	panelDirectories
)

type updateMsg struct {
	unresolved  []resolver.UnresolvedVariable
	directories []query.DirectorySummary
	fileCount   int
	declCount   int
	globalPct   float64
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.unresolvedList.SetSize(width, height)
		m.dirList.SetSize(width, height)
	case updateMsg:
		m.unresolved = msg.unresolved
		m.directories = msg.directories
		m.fileCount = msg.fileCount
		m.declCount = msg.declCount
		m.globalPct = msg.globalPct
		m.lastUpdate = time.Now()
		m.dirDetailsErr = ""

		items := make([]list.Item, 0, len(m.unresolved))
		for _, u := range m.unresolved {
			files := u.Files
			if len(files) > 3 {
				files = files[:3]
			}
			items = append(items, item{
				title: u.VariableName,
				desc:  fmt.Sprintf("%d files: %s", u.FileCount, strings.Join(files, ", ")),
			})
		}
		m.unresolvedList.SetItems(items)

		dirItems := make([]list.Item, 0, len(m.directories))
		for _, dir := range m.directories {
			dirItems = append(dirItems, item{
				title: helpers.DecodeDirKey(dir.Key),
				desc:  fmt.Sprintf("files=%d propagation=%s", dir.FileCount, pctLabel(dir.AveragePropagation)),
			})
		}
		m.dirList.SetItems(dirItems)
		if m.hasDirDetails {
			m, _ = refreshDirectoryDetails(m)
		}
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelUnresolved {
		m.unresolvedList, cmd = m.unresolvedList.Update(msg)
	} else {
		m.dirList, cmd = m.dirList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d declarations",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.declCount))

	var summary string
	switch {
	case m.globalPct == coverage.NotApplicable:
		summary = statusStyle.Render("Propagation n/a")
	case m.globalPct >= 80:
		summary = successStyle.Render(fmt.Sprintf("Propagation %.2f%%", m.globalPct))
	default:
		summary = warnStyle.Render(fmt.Sprintf("Propagation %.2f%%", m.globalPct))
	}
	if len(m.unresolved) > 0 {
		summary = fmt.Sprintf("%s | %s", summary,
			unresolvedStyle.Render(fmt.Sprintf("%d unresolved", len(m.unresolved))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Design Token Monitor"), status, summary)
	help := renderHelp(m)

	body := m.unresolvedList.View()
	if m.mode == panelDirectories {
		body = renderDirectoryPanel(m)
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m.trendReport)
	}
	if m.sourceJumpStatus != "" {
		body += "\n\n" + m.sourceJumpStatus
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func initialModel(service ports.QueryService, trendReport *history.TrendReport, projectRoot string) model {
	unresolvedList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	unresolvedList.Title = "Unresolved Properties"
	unresolvedList.SetShowStatusBar(false)
	unresolvedList.SetFilteringEnabled(true)

	dirList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	dirList.Title = "Directory Explorer"
	dirList.SetShowStatusBar(false)
	dirList.SetFilteringEnabled(true)

	return model{
		unresolvedList:    unresolvedList,
		dirList:           dirList,
		mode:              panelUnresolved,
		querySvc:          service,
		trendReport:       trendReport,
		lastUpdate:        time.Now(),
		selectedFileIndex: 0,
		projectRoot:       projectRoot,
	}
}
