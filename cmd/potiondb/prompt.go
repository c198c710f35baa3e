package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"potiondb/internal/plugin"
)

// promptModel is a bubbletea model that asks one question at a time.
// Defaults pre-fill the inputs.
type promptModel struct {
	questions []plugin.ConfigQuestion
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newPromptModel(questions []plugin.ConfigQuestion) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.Prompt
		ti.CharLimit = 512
		if q.Default != "" {
			ti.SetValue(q.Default)
		}
		inputs[i] = ti
	}
	m := promptModel{questions: questions, inputs: inputs}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("%s %s\n%s: %s\n",
		mutedStyle.Render(fmt.Sprintf("(%d/%d)", m.idx+1, len(m.questions))),
		mutedStyle.Render("enter to confirm, esc to cancel"),
		promptStyle.Render(q.Prompt), m.inputs[m.idx].View())
}

// answers returns the values typed so far keyed by question.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		out[q.Key] = m.inputs[i].Value()
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by ConfigQuestion.Key.
func promptQuestions(questions []plugin.ConfigQuestion) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	result, err := tea.NewProgram(newPromptModel(questions)).Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	return final.answers(), nil
}
