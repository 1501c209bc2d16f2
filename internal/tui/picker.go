package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

type pickerModel struct {
	specs     []adapter.Spec
	checked   []bool
	cursor    int
	confirmed bool
	quit      bool
}

func newPickerModel(specs []adapter.Spec, preselected []model.ModelKey) pickerModel {
	checked := make([]bool, len(specs))
	for i, s := range specs {
		for _, k := range preselected {
			if s.Key == k {
				checked[i] = true
			}
		}
	}
	return pickerModel{specs: specs, checked: checked}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.specs)-1 {
				m.cursor++
			}
		case " ", "x":
			if len(m.specs) > 0 {
				m.checked[m.cursor] = !m.checked[m.cursor]
			}
		case "enter":
			if len(m.selection()) == 0 {
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) selection() []model.ModelKey {
	var keys []model.ModelKey
	for i, s := range m.specs {
		if m.checked[i] {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("BiasBench: select models to audit")
	s += "\n"

	for i, spec := range m.specs {
		box := "[ ]"
		if m.checked[i] {
			box = "[x]"
		}
		label := fmt.Sprintf("%s %s (%s · %s)", box, spec.Label, spec.Key, spec.Model)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  space toggle  enter run  q quit")
	return s
}

// RunModelPicker shows an interactive multi-select over specs with
// preselected keys checked. Returns nil if the user quit.
func RunModelPicker(specs []adapter.Spec, preselected []model.ModelKey) ([]model.ModelKey, error) {
	p := tea.NewProgram(newPickerModel(specs, preselected))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := result.(pickerModel)
	if !final.confirmed {
		return nil, nil
	}
	return final.selection(), nil
}
