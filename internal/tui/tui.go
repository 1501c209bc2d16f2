// Package tui renders audits in the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/biasbench/biasbench/internal/model"
)

// Lines per record in the list pane (prompt + subtitle + blank separator).
const recordItemHeight = 3

const (
	paneList = iota
	paneDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedItemTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedItemSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))
)

type historyModel struct {
	records        []model.AuditRecord
	listViewport   viewport.Model
	detailViewport viewport.Model
	activePane     int
	cursor         int
	width          int
	height         int
	ready          bool
}

func (m historyModel) Init() tea.Cmd {
	return nil
}

func (m historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "left", "right":
			m.activePane = 1 - m.activePane
			m.recalcList()
			return m, nil
		case "up", "k":
			if m.activePane == paneList {
				m.moveCursor(-1)
				return m, nil
			}
		case "down", "j":
			if m.activePane == paneList {
				m.moveCursor(1)
				return m, nil
			}
		}

		// Forward scrolling keys to the active viewport.
		var cmd tea.Cmd
		if m.activePane == paneList {
			m.listViewport, cmd = m.listViewport.Update(msg)
		} else {
			m.detailViewport, cmd = m.detailViewport.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

func (m *historyModel) moveCursor(delta int) {
	next := clamp(m.cursor+delta, 0, max(len(m.records)-1, 0))
	if next == m.cursor {
		return
	}
	m.cursor = next
	m.recalcList()
	m.recalcDetail()
	m.detailViewport.SetYOffset(0)
	m.ensureCursorVisible()
}

func (m *historyModel) ensureCursorVisible() {
	vp := &m.listViewport
	cursorTop := m.cursor * recordItemHeight
	cursorBottom := cursorTop + recordItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m *historyModel) recalcLayout() {
	// The list pane takes a third of the width; 2 border chars per pane + 1 gap.
	listWidth := max((m.width-5)/3, 24)
	detailWidth := max(m.width-5-listWidth, 30)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(listWidth, paneHeight)
		m.detailViewport = viewport.New(detailWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = listWidth
		m.listViewport.Height = paneHeight
		m.detailViewport.Width = detailWidth
		m.detailViewport.Height = paneHeight
	}

	m.recalcList()
	m.recalcDetail()
}

func (m *historyModel) recalcList() {
	m.listViewport.SetContent(renderRecords(m.records, m.cursor, m.activePane == paneList, m.listViewport.Width))
}

func (m *historyModel) recalcDetail() {
	if len(m.records) == 0 {
		m.detailViewport.SetContent("  (no audits yet)")
		return
	}
	m.detailViewport.SetContent(RenderResult(m.records[m.cursor], m.detailViewport.Width))
}

func (m historyModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	listHeader := fmt.Sprintf(" History (%d)", len(m.records))
	detailHeader := " Audit"
	if len(m.records) > 0 {
		detailHeader = fmt.Sprintf(" Audit #%d", m.records[m.cursor].ID)
	}

	var listHeaderRendered, detailHeaderRendered string
	var listBorder, detailBorder lipgloss.Style

	if m.activePane == paneList {
		listHeaderRendered = activeHeaderStyle.Render(listHeader)
		detailHeaderRendered = inactiveHeaderStyle.Render(detailHeader)
		listBorder = activeBorderStyle.Width(m.listViewport.Width)
		detailBorder = inactiveBorderStyle.Width(m.detailViewport.Width)
	} else {
		listHeaderRendered = inactiveHeaderStyle.Render(listHeader)
		detailHeaderRendered = activeHeaderStyle.Render(detailHeader)
		listBorder = inactiveBorderStyle.Width(m.listViewport.Width)
		detailBorder = activeBorderStyle.Width(m.detailViewport.Width)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.listViewport.Width+2).Render(listHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(m.detailViewport.Width+2).Render(detailHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorder.Render(m.listViewport.View()),
		" ",
		detailBorder.Render(m.detailViewport.View()),
	)

	statusText := " ←/→/Tab switch pane  ↑/↓/j/k move or scroll  pgup/pgdn page  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func renderRecords(records []model.AuditRecord, cursor int, isActive bool, width int) string {
	if len(records) == 0 {
		return "  (no audits)"
	}

	textWidth := max(width-4, 10)
	var b strings.Builder
	for i, r := range records {
		isSelected := isActive && i == cursor

		titleSt := itemTitleStyle
		subtitleSt := itemSubtitleStyle
		prefix := "  "
		if i == cursor {
			prefix = "> "
		}
		if isSelected {
			titleSt = selectedItemTitleStyle
			subtitleSt = selectedItemSubtitleStyle
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(truncate(r.Prompt, textWidth)))
		b.WriteByte('\n')

		sub := fmt.Sprintf("#%d · %s · %s", r.ID, r.Verdict.BiasTag, r.CreatedAt.Local().Format("01-02 15:04"))
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(truncate(sub, textWidth)))
		b.WriteByte('\n')

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:max(n-1, 0)]) + "…"
}

// RunHistoryTUI launches the interactive split-pane history browser over
// records, which are expected newest first.
func RunHistoryTUI(records []model.AuditRecord) error {
	m := historyModel{records: records}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
