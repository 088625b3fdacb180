package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/relay"
	engine "github.com/deemkeen/nostrodon/timeline"
	"github.com/deemkeen/nostrodon/ui/common"
	"github.com/deemkeen/nostrodon/ui/header"
	"github.com/deemkeen/nostrodon/ui/openfeed"
	"github.com/deemkeen/nostrodon/ui/outbox"
	"github.com/deemkeen/nostrodon/ui/timeline"
	"github.com/deemkeen/nostrodon/ui/writenote"
	"github.com/rs/zerolog"
)

var (
	modelStyle = lipgloss.NewStyle().
			Align(lipgloss.Top, lipgloss.Top).
			BorderStyle(lipgloss.HiddenBorder()).MarginLeft(1)
	focusedModelStyle = lipgloss.NewStyle().
				Align(lipgloss.Top, lipgloss.Top).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).MarginLeft(1)
)

// Feed is the relay side of a session.
type Feed interface {
	timeline.Executor
	Next(ctx context.Context) (relay.Update, error)
}

// Cache is the local event store the session replays at startup and queues
// drafts into.
type Cache interface {
	writenote.DraftStore
	outbox.Store
	ReadTextNotesByAuthors(pubkeys []string, limit int) ([]domain.Event, error)
	ReadEngagementFor(ids []string) ([]domain.Event, error)
	ReadProfiles(pubkeys []string) (map[string]*domain.Profile, error)
}

type Options struct {
	PubKey  string
	Follows []string
	Limit   int
}

type MainModel struct {
	ctx           context.Context
	width         int
	height        int
	state         common.SessionState
	feed          Feed
	cache         Cache
	opts          Options
	profiles      common.Profiles
	headerModel   header.Model
	timelineModel timeline.Model
	replyModel    writenote.Model
	outboxModel   outbox.Model
	openFeedModel openfeed.Model
	status        common.StatusMsg
	log           zerolog.Logger
}

func NewModel(ctx context.Context, feed Feed, cache Cache, opts Options, width int, height int) MainModel {
	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	tl := engine.New(engine.WithLogger(logging.Component("timeline")))
	profiles := common.Profiles{}

	m := MainModel{
		ctx:      ctx,
		width:    width,
		height:   height,
		state:    common.TimelineView,
		feed:     feed,
		cache:    cache,
		opts:     opts,
		profiles: profiles,
		log:      logging.Component("ui"),
	}
	m.headerModel = header.Model{Width: width, PubKey: opts.PubKey, Engine: tl, Profiles: profiles}
	m.timelineModel = timeline.InitialModel(ctx, tl, feed, profiles, common.DefaultTimelineWidth(width), height-6)
	m.replyModel = writenote.InitialNote(width, opts.PubKey, cache)
	m.outboxModel = outbox.NewPager(cache, width-common.DefaultTimelineWidth(width), height-6)
	m.openFeedModel = openfeed.InitialModel()
	return m
}

// Engine exposes the session's timeline engine.
func (m MainModel) Engine() *engine.Timeline {
	return m.timelineModel.Engine()
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		m.timelineModel.Init(),
		m.replyModel.Init(),
		m.outboxModel.Init(),
		m.openFeedModel.Init(),
		loadCacheCmd(m.cache, m.opts),
		waitForUpdate(m.ctx, m.feed),
	)
}

// waitForUpdate blocks on the feed; MainModel re-issues it after every
// update so exactly one reader is running.
func waitForUpdate(ctx context.Context, feed Feed) tea.Cmd {
	return func() tea.Msg {
		u, err := feed.Next(ctx)
		if err != nil {
			return common.RelayErrMsg{Err: err}
		}
		return common.RelayMsg{Update: u}
	}
}

func loadCacheCmd(cache Cache, opts Options) tea.Cmd {
	return func() tea.Msg {
		log := logging.Component("ui")
		notes, err := cache.ReadTextNotesByAuthors(opts.Follows, opts.Limit)
		if err != nil {
			log.Warn().Err(err).Msg("could not read cached notes")
			return nil
		}
		ids := make([]string, len(notes))
		authors := make([]string, 0, len(notes)+1)
		for i, ev := range notes {
			ids[i] = ev.ID
			authors = append(authors, ev.PubKey)
		}
		if opts.PubKey != "" {
			authors = append(authors, opts.PubKey)
		}

		engagement, err := cache.ReadEngagementFor(ids)
		if err != nil {
			log.Warn().Err(err).Msg("could not read cached engagement")
		}
		profiles, err := cache.ReadProfiles(authors)
		if err != nil {
			log.Warn().Err(err).Msg("could not read cached profiles")
		}
		return common.CacheLoadedMsg{Notes: notes, Engagement: engagement, Profiles: profiles}
	}
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = common.DefaultWindowWidth(msg.Width)
		m.height = common.DefaultWindowHeight(msg.Height)
		m.headerModel.Width = m.width
		m.timelineModel.SetSize(common.DefaultTimelineWidth(m.width), m.height-6)
		m.outboxModel.SetSize(m.width-common.DefaultTimelineWidth(m.width), m.height-6)
		return m, nil

	case common.SessionState:
		m.state = msg
		return m, nil

	case common.StatusMsg:
		m.status = msg
		return m, nil

	case common.RelayMsg:
		switch {
		case msg.Update.Profile != nil:
			m.profiles.Observe(msg.Update.Profile)
		case msg.Update.Notice != "":
			m.status = common.Status(msg.Update.Notice)
		default:
			m.timelineModel, cmd = m.timelineModel.Update(msg)
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, waitForUpdate(m.ctx, m.feed))
		return m, tea.Batch(cmds...)

	case common.RelayErrMsg:
		if !errors.Is(msg.Err, context.Canceled) {
			m.log.Warn().Err(msg.Err).Msg("relay feed stopped")
			m.status = common.ErrStatus(msg.Err)
		}
		return m, nil

	case common.CacheLoadedMsg:
		for _, p := range msg.Profiles {
			m.profiles.Observe(p)
		}
		m.timelineModel, cmd = m.timelineModel.Update(msg)
		return m, cmd

	case common.ReplyMsg:
		m.state = common.ReplyView
		m.replyModel, cmd = m.replyModel.SetTarget(msg.Target)
		return m, cmd

	case common.ComposeMsg:
		m.state = common.ReplyView
		m.replyModel, cmd = m.replyModel.Compose()
		return m, cmd

	case common.ReactMsg:
		return m, writenote.QueueReactionCmd(m.cache, m.opts.PubKey, msg.Target)

	case common.RepostMsg:
		return m, writenote.QueueRepostCmd(m.cache, m.opts.PubKey, msg.Target)

	case common.OpenFeedMsg:
		m.state = common.TimelineView
		m.status = common.Status("opened feed of " + m.profiles.Label(msg.PubKey))
		return m, m.timelineModel.OpenFeed(msg.PubKey)

	case common.DraftQueuedMsg:
		m.state = common.TimelineView
		m.status = common.Status(fmt.Sprintf("%s %s queued in the outbox", msg.What, domain.ShortKey(msg.Item.EventId)))
		m.outboxModel, cmd = m.outboxModel.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			switch m.state {
			case common.TimelineView:
				m.state = common.ReplyView
			case common.ReplyView:
				m.state = common.OutboxView
			default:
				m.state = common.TimelineView
			}
			return m, nil
		}

		switch m.state {
		case common.TimelineView:
			m.timelineModel, cmd = m.timelineModel.Update(msg)
		case common.ReplyView:
			m.replyModel, cmd = m.replyModel.Update(msg)
		case common.OutboxView:
			m.outboxModel, cmd = m.outboxModel.Update(msg)
		case common.OpenFeedView:
			m.openFeedModel, cmd = m.openFeedModel.Update(msg)
		}
		return m, cmd
	}

	// Everything else, spinner ticks and cursor blinks included, goes to
	// every panel.
	m.timelineModel, cmd = m.timelineModel.Update(msg)
	cmds = append(cmds, cmd)
	m.replyModel, cmd = m.replyModel.Update(msg)
	cmds = append(cmds, cmd)
	m.outboxModel, cmd = m.outboxModel.Update(msg)
	cmds = append(cmds, cmd)
	m.openFeedModel, cmd = m.openFeedModel.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m MainModel) View() string {
	var s strings.Builder

	availableHeight := m.height - 6
	leftPanelWidth := common.DefaultTimelineWidth(m.width)
	rightPanelWidth := m.width - leftPanelWidth - 6

	timelineStr := lipgloss.NewStyle().
		MaxHeight(availableHeight).
		Height(availableHeight).
		Width(leftPanelWidth).
		MaxWidth(leftPanelWidth).
		Render(m.timelineModel.View())

	var rightView string
	switch m.state {
	case common.OutboxView:
		rightView = m.outboxModel.View()
	case common.OpenFeedView:
		rightView = m.openFeedModel.View()
	default:
		rightView = m.replyModel.View()
	}
	rightStr := lipgloss.NewStyle().
		MaxHeight(availableHeight).
		Height(availableHeight).
		Width(rightPanelWidth).
		MaxWidth(rightPanelWidth).
		Render(rightView)

	s.WriteString(m.headerModel.View())
	s.WriteString("\n")

	switch m.state {
	case common.TimelineView:
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			focusedModelStyle.Render(timelineStr),
			modelStyle.Render(rightStr)))
	default:
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			modelStyle.Render(timelineStr),
			focusedModelStyle.Render(rightStr)))
	}
	s.WriteString("\n")

	if m.status.Text != "" {
		if m.status.Err {
			s.WriteString(common.ErrorStyle.Render(m.status.Text))
		} else {
			s.WriteString(common.StatusStyle.Render(m.status.Text))
		}
		s.WriteString("\n")
	}

	s.WriteString(common.HelpStyle.Render(fmt.Sprintf(
		"focused > %s\t\tkeys > tab: switch • %s • ctrl-c: exit",
		m.currentFocusedModel(), m.viewCommands())))
	return s.String()
}

func (m MainModel) viewCommands() string {
	bindings := m.timelineModel.Keys().ShortHelp()
	switch m.state {
	case common.ReplyView:
		return "ctrl+s: queue • esc: cancel"
	case common.OpenFeedView:
		return "enter: open tab • esc: cancel"
	case common.OutboxView:
		bindings = m.outboxModel.Keys().ShortHelp()
	}
	var parts []string
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func (m MainModel) currentFocusedModel() string {
	switch m.state {
	case common.ReplyView:
		return "reply"
	case common.OutboxView:
		return "outbox"
	case common.OpenFeedView:
		return "open feed"
	default:
		return "timeline"
	}
}
