package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/biasbench/biasbench/internal/audit"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// auditDoneMsg is sent when the wrapped audit returns.
type auditDoneMsg struct {
	outcome audit.Outcome
	err     error
}

type spinnerTickMsg struct{}

type loaderModel struct {
	label   string
	runFn   func(ctx context.Context) (audit.Outcome, error)
	frame   int
	started time.Time
	result  audit.Outcome
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doRun(), m.tick())
}

func (m loaderModel) doRun() tea.Cmd {
	runFn := m.runFn
	return func() tea.Msg {
		out, err := runFn(context.Background())
		return auditDoneMsg{outcome: out, err: err}
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case auditDoneMsg:
		m.result = msg.outcome
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinnerTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = fmt.Errorf("cancelled")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render(spinnerFrames[m.frame])
	elapsed := time.Since(m.started).Truncate(time.Second)
	return fmt.Sprintf("%s %s (%s)\n", spinner, m.label, elapsed)
}

// RunLoader shows a spinner while runFn executes. It renders inline (no alt screen).
// Ctrl+C abandons the wait and returns an error.
func RunLoader(label string, runFn func(ctx context.Context) (audit.Outcome, error)) (audit.Outcome, error) {
	m := loaderModel{
		label:   label,
		runFn:   runFn,
		started: time.Now(),
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return audit.Outcome{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
