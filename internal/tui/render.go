package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/model"
)

const (
	defaultRenderWidth = 80
	scoreBarWidth      = 20
)

var (
	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modelNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	errorTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

// biasColor picks a tag colour: blue left, red right, green neutral.
func biasColor(tag model.BiasTag) lipgloss.Color {
	switch tag {
	case model.BiasLeft:
		return lipgloss.Color("33")
	case model.BiasRight:
		return lipgloss.Color("160")
	case model.BiasNeutral:
		return lipgloss.Color("42")
	case model.BiasSubjective:
		return lipgloss.Color("214")
	}
	return lipgloss.Color("245")
}

func scoreBar(score int) string {
	filled := clamp(score*scoreBarWidth/100, 0, scoreBarWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", scoreBarWidth-filled) + fmt.Sprintf(" %d/100", score)
}

// RenderResult renders one audit as styled text wrapped to width. A width
// below 20 uses the default of 80.
func RenderResult(rec model.AuditRecord, width int) string {
	if width < 20 {
		width = defaultRenderWidth
	}
	wrapWidth := max(width-4, 16)
	var b strings.Builder

	addField := func(label, value string) {
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	title := "Audit"
	if rec.ID > 0 {
		title = fmt.Sprintf("Audit #%d", rec.ID)
	}
	b.WriteString(detailTitleStyle.Render(title) + "\n")

	addField("Prompt", "")
	b.WriteString(bodyStyle.Render(wordWrap(rec.Prompt, wrapWidth)) + "\n\n")
	if !rec.CreatedAt.IsZero() {
		addField("Created", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	addField("Models", joinKeys(rec.Responses.Keys()))

	v := rec.Verdict
	b.WriteByte('\n')
	b.WriteString(divider("── Verdict ") + "\n\n")
	tag := lipgloss.NewStyle().Bold(true).Foreground(biasColor(v.BiasTag)).Render(string(v.BiasTag))
	addField("Bias", tag)
	addField("Subjectivity", scoreBar(v.SubjectivityScore))
	addField("Confidence", scoreBar(v.Confidence))
	addField("Agreement", string(v.AgreementRate))
	b.WriteByte('\n')
	b.WriteString(bodyStyle.Render(wordWrap(v.Summary, wrapWidth)) + "\n")
	if v.IsFallback() {
		b.WriteString(hintStyle.Render("  the judge output could not be used") + "\n")
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Responses ") + "\n")
	for _, r := range rec.Responses.Entries() {
		b.WriteByte('\n')
		b.WriteString(modelNameStyle.Render(string(r.Key)) + "\n")
		text := wordWrap(r.Text, wrapWidth)
		if isErrorText(r.Text) {
			b.WriteString(errorTextStyle.Render(text) + "\n")
		} else {
			b.WriteString(bodyStyle.Render(text) + "\n")
		}
	}
	if rec.Responses.Len() == 0 {
		b.WriteString(hintStyle.Render("  (no models were recognized)") + "\n")
	}

	return b.String()
}

// RenderModels renders the model catalog as an aligned table. Default models
// are marked with an asterisk.
func RenderModels(specs []adapter.Spec, defaults []model.ModelKey) string {
	isDefault := make(map[model.ModelKey]bool, len(defaults))
	for _, k := range defaults {
		isDefault[k] = true
	}

	keyCol := lipgloss.NewStyle().Width(12)
	labelCol := lipgloss.NewStyle().Width(12)
	providerCol := lipgloss.NewStyle().Width(9)
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	var b strings.Builder
	b.WriteString(head.Render("  " + keyCol.Render("KEY") + labelCol.Render("LABEL") + providerCol.Render("PROVIDER") + "MODEL"))
	b.WriteByte('\n')
	for _, s := range specs {
		mark := "  "
		if isDefault[s.Key] {
			mark = "* "
		}
		b.WriteString(mark + keyCol.Render(string(s.Key)) + labelCol.Render(s.Label) + providerCol.Render(s.Provider) + s.Model)
		b.WriteByte('\n')
	}
	b.WriteString(hintStyle.Render("* used when a request names no models"))
	b.WriteByte('\n')
	return b.String()
}

func isErrorText(text string) bool {
	return strings.HasPrefix(text, "[") && strings.Contains(text, " Error]: ")
}

func joinKeys(keys []model.ModelKey) string {
	if len(keys) == 0 {
		return "none"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				out = append(out, line)
				line = w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
