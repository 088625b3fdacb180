package writenote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/ui/common"
)

const MaxLetters = 1000

var (
	ErrNoTarget  = errors.New("select a note to reply to")
	ErrNoPubKey  = errors.New("set pubkey in the config to write replies")
	ErrEmptyNote = errors.New("note is empty")
)

// DraftStore keeps unsigned replies until a signer picks them up.
type DraftStore interface {
	EnqueueDraft(item *domain.OutboxItem) error
}

// Model composes replies and new notes.
type Model struct {
	Textarea    textarea.Model
	target      *domain.Event
	compose     bool
	author      string
	store       DraftStore
	lettersLeft int
	width       int
}

func InitialNote(contentWidth int, author string, store DraftStore) Model {
	width := common.DefaultReplyWidth(contentWidth)
	ti := textarea.New()
	ti.Placeholder = "press n for a new note, or select one and press r to reply"
	ti.CharLimit = MaxLetters
	ti.ShowLineNumbers = false
	ti.SetWidth(max(width-10, 20))

	return Model{
		Textarea:    ti,
		author:      author,
		store:       store,
		lettersLeft: MaxLetters,
		width:       width,
	}
}

// SetTarget points the composer at the note being answered and focuses it.
func (m Model) SetTarget(target domain.Event) (Model, tea.Cmd) {
	m.target = &target
	m.compose = false
	m.Textarea.Placeholder = "reply to " + domain.ShortKey(target.PubKey)
	return m, m.Textarea.Focus()
}

func (m Model) Target() (domain.Event, bool) {
	if m.target == nil {
		return domain.Event{}, false
	}
	return *m.target, true
}

// Compose points the composer at a new top-level note and focuses it.
func (m Model) Compose() (Model, tea.Cmd) {
	m.target = nil
	m.compose = true
	m.Textarea.Placeholder = "what's on your mind?"
	return m, m.Textarea.Focus()
}

// QueueReactionCmd queues a "like" on target.
func QueueReactionCmd(store DraftStore, author string, target domain.Event) tea.Cmd {
	if author == "" {
		return statusCmd(ErrNoPubKey)
	}
	return queueDraftCmd(store, "reaction", func() (domain.Event, error) {
		return domain.NewReactionDraft(author, domain.ReactionLike, target, domain.Now())
	})
}

// QueueRepostCmd queues a repost of target.
func QueueRepostCmd(store DraftStore, author string, target domain.Event) tea.Cmd {
	if author == "" {
		return statusCmd(ErrNoPubKey)
	}
	return queueDraftCmd(store, "repost", func() (domain.Event, error) {
		return domain.NewRepostDraft(author, target, domain.Now())
	})
}

func queueDraftCmd(store DraftStore, what string, build func() (domain.Event, error)) tea.Cmd {
	return func() tea.Msg {
		draft, err := build()
		if err != nil {
			return common.ErrStatus(err)
		}
		item, err := domain.NewOutboxItem(draft)
		if err != nil {
			return common.ErrStatus(err)
		}
		if err := store.EnqueueDraft(item); err != nil {
			log := logging.Component("ui.writenote")
			log.Error().Err(err).Str("kind", what).Str("event", domain.ShortKey(draft.ID)).Msg("could not queue draft")
			return common.ErrStatus(fmt.Errorf("queueing %s: %w", what, err))
		}
		return common.DraftQueuedMsg{What: what, Item: item}
	}
}

func statusCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return common.ErrStatus(err)
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.Textarea.Blur()
			m.target = nil
			m.compose = false
			return m, func() tea.Msg { return common.TimelineView }
		case tea.KeyCtrlS:
			target, ok := m.Target()
			if !ok && !m.compose {
				return m, statusCmd(ErrNoTarget)
			}
			if m.author == "" {
				return m, statusCmd(ErrNoPubKey)
			}
			value := strings.TrimSpace(m.Textarea.Value())
			if value == "" {
				return m, statusCmd(ErrEmptyNote)
			}
			m.Textarea.SetValue("")
			m.target = nil
			m.compose = false
			author := m.author
			if !ok {
				return m, queueDraftCmd(m.store, "note", func() (domain.Event, error) {
					return domain.NewNoteDraft(author, value, domain.Now())
				})
			}
			return m, queueDraftCmd(m.store, "reply", func() (domain.Event, error) {
				return domain.NewReplyDraft(author, value, target, domain.Now())
			})
		default:
			if !m.Textarea.Focused() {
				cmd = m.Textarea.Focus()
				cmds = append(cmds, cmd)
			}
		}
	}

	m.Textarea, cmd = m.Textarea.Update(msg)
	m.lettersLeft = m.CharCount()
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) CharCount() int {
	return m.Textarea.CharLimit - m.Textarea.Length() + m.Textarea.LineCount() - 1
}

func (m Model) View() string {
	caption := "reply"
	if target, ok := m.Target(); ok {
		caption = fmt.Sprintf("reply to %s", domain.ShortKey(target.ID))
	} else if m.compose {
		caption = "new note"
	}
	styledTextarea := lipgloss.NewStyle().PaddingLeft(2).PaddingRight(2).Margin(1).Render(m.Textarea.View())
	charsLeft := common.HelpStyle.Render(fmt.Sprintf("characters left: %d\n\nqueue: ctrl+s • cancel: esc",
		m.lettersLeft))

	return fmt.Sprintf("%s\n\n%s\n\n%s", common.CaptionStyle.Render(caption), styledTextarea, charsLeft)
}
