package header

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	engine "github.com/deemkeen/nostrodon/timeline"
	"github.com/deemkeen/nostrodon/ui/common"
	"github.com/deemkeen/nostrodon/util"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Border(lipgloss.NormalBorder(), true, false, true, false).
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))

	activeTabStyle = tabStyle.
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color(common.COLOR_PURPLE))

	versionStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color(common.COLOR_GREY)).
			Border(lipgloss.NormalBorder(), true, false, true, false).
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))

	userStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color(common.COLOR_MAGENTA)).
			Border(lipgloss.NormalBorder(), true, false, true, false).
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))
)

// Model is the tab bar.
type Model struct {
	Width    int
	PubKey   string
	Engine   *engine.Timeline
	Profiles common.Profiles
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	return GetHeaderStyle(m.Engine.Tabs(), m.Engine.ActiveTabIndex(), m.Profiles, m.PubKey, m.Width)
}

// Titles returns the tab titles in display order.
func Titles(tabs []engine.TabView, profiles common.Profiles) []string {
	titles := make([]string, len(tabs))
	for i, tab := range tabs {
		titles[i] = util.Truncate(profiles.TabTitle(tab.Identity()), 20)
	}
	return titles
}

func GetHeaderStyle(tabs []engine.TabView, active int, profiles common.Profiles, pubkey string, width int) string {
	parts := []string{versionStyle.Render(util.GetNameAndVersion())}

	for i, title := range Titles(tabs, profiles) {
		if i == active {
			parts = append(parts, activeTabStyle.Render(title))
		} else {
			parts = append(parts, tabStyle.Render(title))
		}
	}

	user := "read-only"
	if pubkey != "" {
		user = profiles.Label(pubkey)
	}
	parts = append(parts, userStyle.Render(user))

	bar := lipgloss.JoinHorizontal(lipgloss.Left, parts...)
	if width > 0 && lipgloss.Width(bar) > width {
		return lipgloss.NewStyle().MaxWidth(width).Render(bar)
	}
	return bar
}

