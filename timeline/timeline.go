// Package timeline is the state machine behind the note list: a shared note
// store, a set of tabs over it, and the rules that keep selection and
// pagination consistent while notes arrive out of order.
//
// A Timeline is not safe for concurrent use. Update applies one message at a
// time; read accessors may be called between updates.
package timeline

import (
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/rs/zerolog"
)

type Timeline struct {
	tabs   []*Tab
	active int
	store  *Store

	// loading stays true until the first note arrives.
	loading bool

	log zerolog.Logger
}

type Option func(*Timeline)

func WithLogger(log zerolog.Logger) Option {
	return func(t *Timeline) {
		t.log = log
	}
}

// New returns a timeline with only the Home tab, still loading.
func New(opts ...Option) *Timeline {
	t := &Timeline{
		tabs:    []*Tab{NewTab(domain.HomeTab())},
		store:   NewStore(),
		loading: true,
		log:     logging.Component("timeline"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update applies msg and returns the command it produced, if any.
func (t *Timeline) Update(msg Message) Command {
	if t.loading && IsUserOperation(msg) {
		t.log.Debug().Type("msg", msg).Msg("ignoring navigation while loading")
		return nil
	}

	switch msg := msg.(type) {
	case NoteObserved:
		t.insertNote(msg.Event, msg.Tab)
	case ReactionObserved:
		t.applyEngagement(domain.Reaction, msg.Event)
	case RepostObserved:
		t.applyEngagement(domain.Repost, msg.Event)
	case ReceiptObserved:
		t.applyEngagement(domain.ZapReceipt, msg.Event)
	case PaginationReset:
		if i, ok := t.FindTab(msg.Tab); ok {
			t.tabs[i].ResetPagination()
		} else {
			t.log.Warn().Stringer("tab", msg.Tab).Msg("cannot reset pagination: tab not found")
		}

	case SelectPrevious:
		t.activeTab().SelectPrevious()
	case SelectNext:
		return t.activeTab().SelectNext()
	case SelectFirst:
		t.activeTab().SelectFirst()
	case SelectLast:
		t.activeTab().SelectLast()
	case Select:
		t.activeTab().Select(msg.Index)
	case ClearSelection:
		t.activeTab().Deselect()

	case AddTab:
		return t.addTab(msg.Tab)
	case RemoveTab:
		return t.removeTab(msg.Index)
	case SelectTab:
		if msg.Index >= 0 && msg.Index < len(t.tabs) {
			t.active = msg.Index
		}
	case NextTab:
		if t.active < len(t.tabs)-1 {
			t.active++
		}
	case PreviousTab:
		if t.active > 0 {
			t.active--
		}
	}

	return nil
}

func (t *Timeline) insertNote(ev domain.Event, identity domain.TabIdentity) {
	t.loading = false

	i, ok := t.FindTab(identity)
	if !ok {
		t.log.Warn().Stringer("tab", identity).Str("note", domain.ShortKey(ev.ID)).Msg("cannot add note: tab not found")
		return
	}

	t.store.InsertOrGet(ev.ID, func() *domain.TextNote {
		return domain.NewTextNote(ev)
	})
	t.tabs[i].Insert(ev.SortKey())
}

func (t *Timeline) applyEngagement(kind domain.EngagementKind, ev domain.Event) {
	if !t.store.ApplyEngagement(kind, ev) {
		t.log.Debug().Stringer("kind", kind).Str("event", domain.ShortKey(ev.ID)).Msg("engagement target not loaded, dropped")
	}
}

func (t *Timeline) addTab(identity domain.TabIdentity) Command {
	if _, ok := t.FindTab(identity); ok {
		t.log.Warn().Stringer("tab", identity).Msg("tab already exists")
		return nil
	}
	t.tabs = append(t.tabs, NewTab(identity))
	t.active = len(t.tabs) - 1
	return SubscribeTab{Tab: identity}
}

func (t *Timeline) removeTab(index int) Command {
	if index < 0 || index >= len(t.tabs) {
		t.log.Warn().Int("index", index).Msg("tab index out of bounds")
		return nil
	}
	identity := t.tabs[index].Identity()
	if identity.IsHome() {
		t.log.Warn().Msg("cannot remove the home tab")
		return nil
	}

	t.tabs = append(t.tabs[:index], t.tabs[index+1:]...)

	// Removing the active tab leaves the cursor on its right-hand neighbour,
	// or on the last tab when there is none.
	switch {
	case t.active >= len(t.tabs):
		t.active = len(t.tabs) - 1
	case index < t.active:
		t.active--
	}
	return UnsubscribeTab{Tab: identity}
}

// activeTab is always valid: the home tab cannot be removed and every write
// to active is bounds checked.
func (t *Timeline) activeTab() *Tab {
	return t.tabs[t.active]
}

func (t *Timeline) FindTab(identity domain.TabIdentity) (int, bool) {
	for i, tab := range t.tabs {
		if tab.Identity() == identity {
			return i, true
		}
	}
	return 0, false
}

func (t *Timeline) Tabs() []TabView {
	views := make([]TabView, len(t.tabs))
	for i, tab := range t.tabs {
		views[i] = tab
	}
	return views
}

func (t *Timeline) ActiveTabIndex() int {
	return t.active
}

func (t *Timeline) ActiveTab() TabView {
	return t.activeTab()
}

func (t *Timeline) IsLoading() bool {
	return t.loading
}

// Len is the length of the active tab.
func (t *Timeline) Len() int {
	return t.activeTab().Len()
}

func (t *Timeline) IsEmpty() bool {
	return t.activeTab().IsEmpty()
}

func (t *Timeline) SelectedIndex() (int, bool) {
	return t.activeTab().SelectedIndex()
}

func (t *Timeline) SelectedNote() (*domain.TextNote, bool) {
	index, ok := t.SelectedIndex()
	if !ok {
		return nil, false
	}
	return t.NoteAt(index)
}

// NoteAt resolves a position in the active tab through the store.
func (t *Timeline) NoteAt(index int) (*domain.TextNote, bool) {
	key, ok := t.activeTab().KeyAt(index)
	if !ok {
		return nil, false
	}
	return t.store.Get(key.ID)
}

func (t *Timeline) Note(id string) (*domain.TextNote, bool) {
	return t.store.Get(id)
}

func (t *Timeline) NoteCount() int {
	return t.store.Len()
}

func (t *Timeline) OldestTimestamp() (domain.Timestamp, bool) {
	return t.activeTab().OldestTimestamp()
}

// IsLoadingMore reports whether the tab is waiting for older notes. The second
// result is false when no such tab exists.
func (t *Timeline) IsLoadingMore(identity domain.TabIdentity) (bool, bool) {
	i, ok := t.FindTab(identity)
	if !ok {
		return false, false
	}
	return t.tabs[i].IsLoadingMore(), true
}

func (t *Timeline) IsAtBottom() bool {
	return t.activeTab().IsAtBottom()
}
