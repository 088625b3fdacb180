package timeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	engine "github.com/deemkeen/nostrodon/timeline"
	"github.com/deemkeen/nostrodon/ui/common"
	"github.com/deemkeen/nostrodon/util"
	"github.com/rs/zerolog"
)

const (
	maxContentLength = 280
	linesPerNote     = 5
)

var (
	noteStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	selectedStyle = noteStyle.
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_PURPLE))

	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	countsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Faint(true)
)

// Executor carries out the engine's commands, usually a relay.Feed.
type Executor interface {
	Execute(ctx context.Context, cmd engine.Command) error
}

// Model drives one timeline engine from key presses and relay updates.
type Model struct {
	ctx      context.Context
	engine   *engine.Timeline
	exec     Executor
	profiles common.Profiles
	keys     KeyMap
	spinner  spinner.Model
	ticking  bool
	width    int
	height   int
	log      zerolog.Logger
}

func InitialModel(ctx context.Context, tl *engine.Timeline, exec Executor, profiles common.Profiles, width, height int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_MAGENTA))

	return Model{
		ctx:      ctx,
		engine:   tl,
		exec:     exec,
		profiles: profiles,
		keys:     DefaultKeyMap(),
		spinner:  s,
		ticking:  true,
		width:    width,
		height:   height,
		log:      logging.Component("ui.timeline"),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Keys() KeyMap {
	return m.keys
}

func (m Model) Engine() *engine.Timeline {
	return m.engine
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy() {
			m.ticking = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case common.RelayMsg:
		if msg.Update.Message == nil {
			return m, nil
		}
		return m.keepTicking(m.apply(msg.Update.Message))

	case common.CacheLoadedMsg:
		var cmds []tea.Cmd
		for _, ev := range msg.Notes {
			cmds = append(cmds, m.apply(engine.NoteObserved{Event: ev, Tab: domain.HomeTab()}))
		}
		for _, ev := range msg.Engagement {
			if message, ok := engagementMessage(ev); ok {
				cmds = append(cmds, m.apply(message))
			}
		}
		m.log.Debug().Int("notes", len(msg.Notes)).Int("engagement", len(msg.Engagement)).Msg("replayed cache")
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.keepTicking(m.handleKey(msg))
	}
	return m, nil
}

// busy reports whether a spinner is on screen.
func (m Model) busy() bool {
	return m.engine.IsLoading() || m.engine.ActiveTab().IsLoadingMore()
}

// keepTicking restarts the spinner when the engine became busy after its
// ticks had stopped.
func (m Model) keepTicking(cmd tea.Cmd) (Model, tea.Cmd) {
	if m.ticking || !m.busy() {
		return m, cmd
	}
	m.ticking = true
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		return m.apply(engine.SelectPrevious{})
	case key.Matches(msg, m.keys.Down):
		return m.apply(engine.SelectNext{})
	case key.Matches(msg, m.keys.Top):
		return m.apply(engine.SelectFirst{})
	case key.Matches(msg, m.keys.Bottom):
		return m.apply(engine.SelectLast{})
	case key.Matches(msg, m.keys.Clear):
		return m.apply(engine.ClearSelection{})
	case key.Matches(msg, m.keys.NextTab):
		return m.apply(engine.NextTab{})
	case key.Matches(msg, m.keys.PrevTab):
		return m.apply(engine.PreviousTab{})
	case key.Matches(msg, m.keys.OpenFeed):
		note, ok := m.engine.SelectedNote()
		if !ok {
			return nil
		}
		return m.apply(engine.AddTab{Tab: domain.UserFeedTab(note.Author())})
	case key.Matches(msg, m.keys.OpenKey):
		return func() tea.Msg {
			return common.OpenFeedView
		}
	case key.Matches(msg, m.keys.CloseTab):
		return m.apply(engine.RemoveTab{Index: m.engine.ActiveTabIndex()})
	case key.Matches(msg, m.keys.Reply):
		return m.onSelected(func(target domain.Event) tea.Msg { return common.ReplyMsg{Target: target} })
	case key.Matches(msg, m.keys.Like):
		return m.onSelected(func(target domain.Event) tea.Msg { return common.ReactMsg{Target: target} })
	case key.Matches(msg, m.keys.Repost):
		return m.onSelected(func(target domain.Event) tea.Msg { return common.RepostMsg{Target: target} })
	case key.Matches(msg, m.keys.Compose):
		return func() tea.Msg {
			return common.ComposeMsg{}
		}
	}
	return nil
}

// onSelected emits msg for the selected note, or nothing without a selection.
func (m Model) onSelected(msg func(domain.Event) tea.Msg) tea.Cmd {
	note, ok := m.engine.SelectedNote()
	if !ok {
		return nil
	}
	target := note.Event
	return func() tea.Msg {
		return msg(target)
	}
}

// OpenFeed adds a tab for pubkey's notes and activates it.
func (m Model) OpenFeed(pubkey string) tea.Cmd {
	return m.apply(engine.AddTab{Tab: domain.UserFeedTab(pubkey)})
}

// apply feeds msg to the engine and turns the resulting command into a
// tea.Cmd that runs it against the executor.
func (m Model) apply(msg engine.Message) tea.Cmd {
	cmd := m.engine.Update(msg)
	if cmd == nil {
		return nil
	}
	m.log.Debug().Str("command", fmt.Sprintf("%T", cmd)).Msg("executing")
	ctx, exec := m.ctx, m.exec
	return func() tea.Msg {
		if err := exec.Execute(ctx, cmd); err != nil {
			return common.ErrStatus(err)
		}
		return nil
	}
}

func engagementMessage(ev domain.Event) (engine.Message, bool) {
	switch ev.Kind {
	case domain.KindReaction:
		return engine.ReactionObserved{Event: ev}, true
	case domain.KindRepost:
		return engine.RepostObserved{Event: ev}, true
	case domain.KindZapReceipt:
		return engine.ReceiptObserved{Event: ev}, true
	}
	return nil, false
}

func (m Model) View() string {
	var s strings.Builder

	if m.engine.IsLoading() {
		s.WriteString(common.CaptionStyle.Render(m.spinner.View() + " loading timeline…"))
		return s.String()
	}

	tab := m.engine.ActiveTab()
	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("%s (%d notes)", m.profiles.TabTitle(tab.Identity()), tab.Len())))
	s.WriteString("\n")

	if tab.IsEmpty() {
		s.WriteString(common.EmptyStyle.Render("No notes yet."))
		return s.String()
	}

	start, end := m.window()
	selected, hasSelection := m.engine.SelectedIndex()
	for i := start; i < end; i++ {
		note, ok := m.engine.NoteAt(i)
		if !ok {
			continue
		}
		style := noteStyle
		if hasSelection && i == selected {
			style = selectedStyle
		}
		s.WriteString(style.Width(max(m.width-4, 20)).Render(m.renderNote(note)))
		s.WriteString("\n")
	}

	if tab.IsLoadingMore() {
		s.WriteString(common.EmptyStyle.Render(m.spinner.View() + " loading more…"))
		s.WriteString("\n")
	}
	return s.String()
}

// window is the slice of the active tab that fits on screen, keeping the
// selection visible.
func (m Model) window() (int, int) {
	perPage := max(m.height/linesPerNote, 1)
	start := 0
	if selected, ok := m.engine.SelectedIndex(); ok && selected >= perPage {
		start = selected - perPage + 1
	}
	return start, min(start+perPage, m.engine.Len())
}

func (m Model) renderNote(note *domain.TextNote) string {
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		authorStyle.Render(m.profiles.Label(note.Author())),
		"  ",
		timeStyle.Render(common.FormatTime(note.CreatedAt().Time())),
	)
	content := contentStyle.Render(util.LinksToTerminal(util.Truncate(note.Content(), maxContentLength)))
	counts := countsStyle.Render(fmt.Sprintf("♥ %d  ↻ %d  ⚡ %d (%d sats)",
		note.ReactionsCount(), note.RepostsCount(), note.ZapReceiptsCount(), note.ZapAmount()/1000))

	if target, ok := note.ReplyTarget(); ok {
		reply := countsStyle.Render("↳ reply to " + domain.ShortKey(target))
		return lipgloss.JoinVertical(lipgloss.Left, header, reply, content, counts)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, counts)
}
