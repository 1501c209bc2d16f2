package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/model"
)

func sampleRecords() []model.AuditRecord {
	mk := func(id int64, prompt string, tag model.BiasTag) model.AuditRecord {
		return model.AuditRecord{
			ID:     id,
			Prompt: prompt,
			Responses: model.NewResponseSet([]model.Response{
				{Key: model.Gemini, Text: "answer " + prompt},
				{Key: model.Llama8B, Text: "[Llama 8B Error]: timeout"},
			}),
			Verdict: model.Verdict{
				Summary:           "summary for " + prompt,
				SubjectivityScore: 40,
				BiasTag:           tag,
				AgreementRate:     model.AgreementMedium,
				Confidence:        75,
			},
			CreatedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		}
	}
	return []model.AuditRecord{
		mk(3, "third prompt", model.BiasLeft),
		mk(2, "second prompt", model.BiasRight),
		mk(1, "first prompt", model.BiasNeutral),
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(m historyModel) historyModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(historyModel)
}

func TestRenderResult_ContainsVerdictAndResponses(t *testing.T) {
	out := RenderResult(sampleRecords()[0], 100)

	for _, want := range []string{"Audit #3", "third prompt", "Left-Leaning", "40/100", "75/100", "MEDIUM", "summary for third prompt", "gemini", "[Llama 8B Error]: timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderResult missing %q", want)
		}
	}
	if strings.Index(out, "gemini") > strings.Index(out, "llama_8b") {
		t.Error("responses should render in set order")
	}
}

func TestRenderResult_FallbackAndEmpty(t *testing.T) {
	rec := model.AuditRecord{Prompt: "x", Verdict: model.FallbackVerdict()}
	out := RenderResult(rec, 0)

	if !strings.Contains(out, "could not be used") {
		t.Error("fallback verdict should be flagged")
	}
	if !strings.Contains(out, "no models were recognized") {
		t.Error("empty response set should be explained")
	}
}

func TestRenderModels_MarksDefaults(t *testing.T) {
	out := RenderModels(adapter.Catalog(), []model.ModelKey{model.Gemini})

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "gemini-2.5-flash") && !strings.HasPrefix(line, "* ") {
			t.Errorf("default model not marked: %q", line)
		}
		if strings.Contains(line, "mixtral-8x7b") && strings.HasPrefix(line, "* ") {
			t.Errorf("non-default model marked: %q", line)
		}
	}
}

func TestHistoryModel_CursorMovesAndUpdatesDetail(t *testing.T) {
	m := sized(historyModel{records: sampleRecords()})

	next, _ := m.Update(key("j"))
	m = next.(historyModel)
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	if !strings.Contains(m.View(), "Audit #2") {
		t.Error("detail header should follow the cursor")
	}

	for i := 0; i < 5; i++ {
		next, _ = m.Update(key("down"))
		m = next.(historyModel)
	}
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want clamped to 2", m.cursor)
	}
}

func TestHistoryModel_TabSwitchesPaneAndFreezesCursor(t *testing.T) {
	m := sized(historyModel{records: sampleRecords()})

	next, _ := m.Update(key("tab"))
	m = next.(historyModel)
	if m.activePane != paneDetail {
		t.Fatalf("activePane = %d, want detail", m.activePane)
	}

	next, _ = m.Update(key("j"))
	m = next.(historyModel)
	if m.cursor != 0 {
		t.Errorf("cursor moved while detail pane active: %d", m.cursor)
	}
}

func TestHistoryModel_EmptyHistory(t *testing.T) {
	m := sized(historyModel{})

	next, _ := m.Update(key("j"))
	m = next.(historyModel)
	if !strings.Contains(m.View(), "History (0)") {
		t.Error("expected empty history header")
	}
}

func TestHistoryModel_QuitKey(t *testing.T) {
	m := sized(historyModel{records: sampleRecords()})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestPickerModel_ToggleAndConfirm(t *testing.T) {
	m := newPickerModel(adapter.Catalog(), []model.ModelKey{model.Gemini})

	// Move to llama_70b and select it.
	next, _ := m.Update(key("j"))
	next, _ = next.Update(key(" "))
	pm := next.(pickerModel)

	got := pm.selection()
	if len(got) != 2 || got[0] != model.Gemini || got[1] != model.Llama70B {
		t.Fatalf("selection = %v", got)
	}

	next, cmd := pm.Update(key("enter"))
	if !next.(pickerModel).confirmed || cmd == nil {
		t.Error("enter should confirm a non-empty selection")
	}
}

func TestPickerModel_EnterWithNothingSelected(t *testing.T) {
	m := newPickerModel(adapter.Catalog(), nil)

	next, cmd := m.Update(key("enter"))
	if next.(pickerModel).confirmed || cmd != nil {
		t.Error("enter with empty selection should be ignored")
	}
}

func TestLoaderModel_FinishesOnDone(t *testing.T) {
	m := loaderModel{label: "Auditing", started: time.Now()}

	next, cmd := m.Update(auditDoneMsg{})
	lm := next.(loaderModel)
	if !lm.done || cmd == nil {
		t.Error("loader should finish on auditDoneMsg")
	}
	if lm.View() != "" {
		t.Error("finished loader should render nothing")
	}
}
