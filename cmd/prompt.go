package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// loginChoice is what the interactive prompt collects: where to keep the
// credential, and an app password when the user picked the direct exchange
// (empty means the browser flow).
type loginChoice struct {
	store    string
	password string
}

const (
	stepMethod = iota
	stepStore
	stepPassword
)

var (
	promptTitleStyle    = lipgloss.NewStyle().Bold(true)
	promptCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	promptSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	promptHelpStyle     = lipgloss.NewStyle().Faint(true)
)

type loginModel struct {
	identifier   string
	defaultStore string

	step    int
	cursor  int
	method  int // 0 browser, 1 password
	store   int // 0 keyring, 1 file
	input   textinput.Model
	aborted bool
}

var (
	methodOptions = []string{"Browser authorization (recommended)", "App password"}
	storeOptions  = []string{"System keyring", "Credentials file"}
	storeNames    = []string{"keyring", "file"}
)

func newLoginModel(identifier, defaultStore string) loginModel {
	input := textinput.New()
	input.Placeholder = "app password"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.CharLimit = 256

	cursor := 0
	if defaultStore == storeNames[1] {
		cursor = 1
	}

	return loginModel{
		identifier:   identifier,
		defaultStore: defaultStore,
		store:        cursor,
		input:        input,
	}
}

func (m loginModel) Init() tea.Cmd {
	return nil
}

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	}

	if m.step == stepPassword {
		if keyMsg.String() == "enter" && m.input.Value() != "" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < 1 {
			m.cursor++
		}
	case "enter":
		switch m.step {
		case stepMethod:
			m.method = m.cursor
			m.step = stepStore
			m.cursor = m.store
		case stepStore:
			m.store = m.cursor
			if m.method == 1 {
				m.step = stepPassword
				m.input.Focus()
				return m, textinput.Blink
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loginModel) View() string {
	if m.aborted {
		return ""
	}

	switch m.step {
	case stepMethod:
		return m.renderList(fmt.Sprintf("How should %s log in?", m.identifier), methodOptions)
	case stepStore:
		return m.renderList("Where should credentials be stored?", storeOptions)
	default:
		return promptTitleStyle.Render("App password") + "\n\n" +
			m.input.View() + "\n\n" +
			promptHelpStyle.Render("enter to confirm, esc to cancel") + "\n"
	}
}

func (m loginModel) renderList(title string, options []string) string {
	out := promptTitleStyle.Render(title) + "\n\n"
	for i, option := range options {
		if i == m.cursor {
			out += promptCursorStyle.Render("> ") + promptSelectedStyle.Render(option) + "\n"
		} else {
			out += "  " + option + "\n"
		}
	}
	return out + "\n" + promptHelpStyle.Render("↑/↓ to move, enter to select, esc to cancel") + "\n"
}

// promptLogin walks the user through method, store, and (for the direct
// exchange) the app password.
func promptLogin(identifier, defaultStore string) (*loginChoice, error) {
	final, err := tea.NewProgram(newLoginModel(identifier, defaultStore)).Run()
	if err != nil {
		return nil, fmt.Errorf("login prompt failed: %w", err)
	}

	m := final.(loginModel)
	if m.aborted {
		return nil, fmt.Errorf("login canceled")
	}

	choice := &loginChoice{store: storeNames[m.store]}
	if m.method == 1 {
		choice.password = m.input.Value()
	}
	return choice, nil
}
