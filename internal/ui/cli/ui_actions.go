package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tokentrace/internal/data/query"
	"tokentrace/internal/engine/coverage"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelUnresolved {
			m.mode = panelDirectories
		} else {
			m.mode = panelUnresolved
		}
		return m, nil
	case "t":
		m.showTrend = !m.showTrend
		return m, nil
	}

	if m.mode != panelDirectories {
		var cmd tea.Cmd
		m.unresolvedList, cmd = m.unresolvedList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		return refreshDirectoryDetails(m)
	case "esc", "backspace":
		m.hasDirDetails = false
		m.dirDetailsErr = ""
		m.selectedFileIndex = 0
		return m, nil
	case "j":
		if m.hasDirDetails && len(m.dirFiles) > 0 {
			if m.selectedFileIndex < len(m.dirFiles)-1 {
				m.selectedFileIndex++
			}
			return m, nil
		}
	case "k":
		if m.hasDirDetails && len(m.dirFiles) > 0 {
			if m.selectedFileIndex > 0 {
				m.selectedFileIndex--
			}
			return m, nil
		}
	case "o":
		if !m.hasDirDetails {
			return m, nil
		}
		target, ok := selectedSourceTarget(m)
		if !ok {
			m.sourceJumpStatus = statusStyle.Render("No source target available.")
			return m, nil
		}
		return m, jumpToSourceCmd(target)
	}

	var cmd tea.Cmd
	m.dirList, cmd = m.dirList.Update(msg)
	return m, cmd
}

func refreshDirectoryDetails(m model) (model, tea.Cmd) {
	if m.querySvc == nil || len(m.directories) == 0 {
		return m, nil
	}
	idx := m.dirList.Index()
	if idx < 0 || idx >= len(m.directories) {
		idx = 0
	}
	files, err := m.querySvc.ListFiles(context.Background(), "", 0)
	if err != nil {
		m.dirDetailsErr = err.Error()
		m.hasDirDetails = false
		return m, nil
	}
	m.dirFiles = filesForDirectory(files, m.directories[idx].Key)
	m.dirDetailsErr = ""
	m.hasDirDetails = true
	m.selectedFileIndex = 0
	return m, nil
}

func filesForDirectory(files []query.FileSummary, dirKey string) []query.FileSummary {
	matched := make([]query.FileSummary, 0, len(files))
	for _, f := range files {
		if coverage.DirKey(f.Path) == dirKey {
			matched = append(matched, f)
		}
	}
	return matched
}

type sourceTarget struct {
	file string
	line int
}

func selectedSourceTarget(m model) (sourceTarget, bool) {
	if len(m.dirFiles) == 0 {
		return sourceTarget{}, false
	}
	idx := m.selectedFileIndex
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.dirFiles) {
		idx = len(m.dirFiles) - 1
	}
	rel := m.dirFiles[idx].Path
	if rel == "" {
		return sourceTarget{}, false
	}
	file := rel
	if m.projectRoot != "" && !filepath.IsAbs(file) {
		file = filepath.Join(m.projectRoot, filepath.FromSlash(rel))
	}
	return sourceTarget{file: file, line: 1}, true
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.HasSuffix(editor, "/vi") {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}
