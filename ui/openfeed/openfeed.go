package openfeed

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/nostrodon/ui/common"
)

var (
	ErrEmptyKey   = errors.New("please enter a public key")
	ErrInvalidKey = errors.New("a public key is 64 hex characters")
)

type Model struct {
	TextInput textinput.Model
	Error     string
}

func InitialModel() Model {
	ti := textinput.New()
	ti.Placeholder = "hex public key"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 50

	return Model{TextInput: ti}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// ParsePubKey accepts a 64 character hex key, case-insensitive.
func ParsePubKey(input string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return "", ErrEmptyKey
	}
	if len(key) != 64 {
		return "", ErrInvalidKey
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", ErrInvalidKey
	}
	return key, nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			key, err := ParsePubKey(m.TextInput.Value())
			if err != nil {
				m.Error = err.Error()
				return m, nil
			}
			m.TextInput.SetValue("")
			m.Error = ""
			return m, func() tea.Msg {
				return common.OpenFeedMsg{PubKey: key}
			}
		case "esc":
			m.TextInput.SetValue("")
			m.Error = ""
			return m, func() tea.Msg {
				return common.TimelineView
			}
		}
	}

	m.TextInput, cmd = m.TextInput.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("open author feed"))
	s.WriteString("\n\n")
	s.WriteString("Paste the author's public key:\n\n")
	s.WriteString(m.TextInput.View())
	s.WriteString("\n\n")

	if m.Error != "" {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_RED)).Render(m.Error))
		s.WriteString("\n")
	}
	return s.String()
}
