package outbox

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/ui/common"
	"github.com/deemkeen/nostrodon/util"
	"github.com/google/uuid"
)

const maxDrafts = 100

var (
	timeStyle = lipgloss.NewStyle().
			Align(lipgloss.Left).
			Foreground(lipgloss.Color(common.COLOR_PURPLE))

	targetStyle = lipgloss.NewStyle().
			Align(lipgloss.Left).
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			Align(lipgloss.Left)

	selectedStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
			PaddingLeft(1)

	unselectedStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// Store is where queued drafts live until an external signer picks them up.
type Store interface {
	ReadPendingDrafts(limit, offset int) ([]domain.OutboxItem, error)
	DeleteDraft(id uuid.UUID) error
}

// Draft pairs a queued item with its decoded event.
type Draft struct {
	Item  domain.OutboxItem
	Event domain.Event
}

type KeyMap struct {
	Up   key.Binding
	Down key.Binding
	Drop key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Drop: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "drop draft")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Drop}
}

type Model struct {
	Drafts []Draft
	Offset int
	keys   KeyMap
	width  int
	height int
	store  Store
}

type draftsLoadedMsg struct {
	drafts []Draft
}

type draftDroppedMsg struct {
	id uuid.UUID
}

func NewPager(store Store, width int, height int) Model {
	return Model{
		keys:   DefaultKeyMap(),
		width:  width,
		height: height,
		store:  store,
	}
}

func (m Model) Init() tea.Cmd {
	return loadDrafts(m.store)
}

func (m Model) Keys() KeyMap {
	return m.keys
}

// Selected returns the draft under the cursor.
func (m Model) Selected() (Draft, bool) {
	if m.Offset < 0 || m.Offset >= len(m.Drafts) {
		return Draft{}, false
	}
	return m.Drafts[m.Offset], true
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case draftsLoadedMsg:
		m.Drafts = msg.drafts
		if m.Offset >= len(m.Drafts) {
			m.Offset = max(len(m.Drafts)-1, 0)
		}
		return m, nil

	case draftDroppedMsg:
		return m, tea.Batch(
			loadDrafts(m.store),
			func() tea.Msg { return common.Status(fmt.Sprintf("dropped draft %s", msg.id)) },
		)

	case common.DraftQueuedMsg:
		return m, loadDrafts(m.store)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.Offset > 0 {
				m.Offset--
			}
		case key.Matches(msg, m.keys.Down):
			if m.Offset < len(m.Drafts)-1 {
				m.Offset++
			}
		case key.Matches(msg, m.keys.Drop):
			if d, ok := m.Selected(); ok {
				return m, dropDraft(m.store, d.Item.Id)
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("outbox (%d drafts)", len(m.Drafts))))
	s.WriteString("\n\n")

	if len(m.Drafts) == 0 {
		s.WriteString(common.EmptyStyle.Render("No drafts queued.\nWrite a note with n or reply with r."))
		return s.String()
	}

	itemsPerPage := 10
	start := max(m.Offset-itemsPerPage+1, 0)
	end := min(start+itemsPerPage, len(m.Drafts))

	for i := start; i < end; i++ {
		d := m.Drafts[i]

		lines := []string{timeStyle.Render(common.FormatTime(d.Item.CreatedAt))}
		if target, ok := d.Event.LastEventRef(); ok {
			lines = append(lines, targetStyle.Render(refLabel(d.Event.Kind)+" "+domain.ShortKey(target)))
		}
		if d.Event.Kind != domain.KindRepost {
			lines = append(lines, contentStyle.Render(util.Truncate(d.Event.Content, 150)))
		}

		body := lipgloss.JoinVertical(lipgloss.Left, lines...)
		if i == m.Offset {
			s.WriteString(selectedStyle.Render(body))
		} else {
			s.WriteString(unselectedStyle.Render(body))
		}
		s.WriteString("\n\n")
	}
	return s.String()
}

func refLabel(kind domain.Kind) string {
	switch kind {
	case domain.KindReaction:
		return "♥ reaction to"
	case domain.KindRepost:
		return "⟳ repost of"
	default:
		return "↳ reply to"
	}
}

func loadDrafts(store Store) tea.Cmd {
	return func() tea.Msg {
		log := logging.Component("outbox")
		items, err := store.ReadPendingDrafts(maxDrafts, 0)
		if err != nil {
			log.Error().Err(err).Msg("could not load drafts")
			return common.ErrStatus(err)
		}

		drafts := make([]Draft, 0, len(items))
		for _, item := range items {
			var ev domain.Event
			if err := json.Unmarshal([]byte(item.EventJSON), &ev); err != nil {
				log.Warn().Err(err).Str("draft", item.Id.String()).Msg("skipping unreadable draft")
				continue
			}
			drafts = append(drafts, Draft{Item: item, Event: ev})
		}
		return draftsLoadedMsg{drafts: drafts}
	}
}

func dropDraft(store Store, id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		if err := store.DeleteDraft(id); err != nil {
			log := logging.Component("outbox")
			log.Error().Err(err).Str("draft", id.String()).Msg("could not drop draft")
			return common.ErrStatus(err)
		}
		return draftDroppedMsg{id: id}
	}
}
