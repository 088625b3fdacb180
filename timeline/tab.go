package timeline

import (
	"slices"

	"github.com/deemkeen/nostrodon/domain"
)

// TabView is the read-only surface of a tab handed to renderers.
type TabView interface {
	Identity() domain.TabIdentity
	Len() int
	IsEmpty() bool
	KeyAt(index int) (domain.SortKey, bool)
	SelectedIndex() (int, bool)
	OldestTimestamp() (domain.Timestamp, bool)
	IsLoadingMore() bool
	IsAtBottom() bool
}

// Tab is one independently scrollable view. It keeps sort keys only; the notes
// themselves live in the shared Store.
type Tab struct {
	identity   domain.TabIdentity
	keys       []domain.SortKey // newest first
	ids        map[string]struct{}
	selection  Selection
	pagination Pagination
}

func NewTab(identity domain.TabIdentity) *Tab {
	return &Tab{
		identity: identity,
		ids:      make(map[string]struct{}),
	}
}

func (t *Tab) Identity() domain.TabIdentity {
	return t.identity
}

func (t *Tab) Len() int {
	return len(t.keys)
}

func (t *Tab) IsEmpty() bool {
	return len(t.keys) == 0
}

func (t *Tab) KeyAt(index int) (domain.SortKey, bool) {
	if index < 0 || index >= len(t.keys) {
		return domain.SortKey{}, false
	}
	return t.keys[index], true
}

func (t *Tab) Contains(id string) bool {
	_, ok := t.ids[id]
	return ok
}

func (t *Tab) SelectedIndex() (int, bool) {
	return t.selection.Selected()
}

func (t *Tab) OldestTimestamp() (domain.Timestamp, bool) {
	return t.pagination.OldestTimestamp()
}

func (t *Tab) IsLoadingMore() bool {
	return t.pagination.IsLoadingMore()
}

func (t *Tab) LoadingMoreSince() (domain.Timestamp, bool) {
	return t.pagination.LoadingMoreSince()
}

func (t *Tab) IsAtBottom() bool {
	selected, ok := t.selection.Selected()
	return ok && len(t.keys) > 0 && selected == len(t.keys)-1
}

// Insert places key at its sorted position and returns that position. A key
// whose id is already present is ignored.
//
// A new key updates pagination and selection in the same step: the oldest
// timestamp may drop, an in-flight load completes once something older than
// its threshold arrives, and a selection at or below the insertion point moves
// down one so the same note stays highlighted.
func (t *Tab) Insert(key domain.SortKey) (int, bool) {
	if t.Contains(key.ID) {
		return 0, false
	}

	pos, _ := slices.BinarySearchFunc(t.keys, key, domain.Compare)
	t.keys = slices.Insert(t.keys, pos, key)
	t.ids[key.ID] = struct{}{}

	t.pagination.ObserveTimestamp(key.CreatedAt)

	if since, loading := t.pagination.LoadingMoreSince(); loading && key.OlderThan(since) {
		t.pagination.FinishLoadingMore()
	}

	if selected, ok := t.selection.Selected(); ok && pos <= selected {
		t.selection.Select(selected + 1)
	}

	return pos, true
}

func (t *Tab) Select(index int) {
	if index < 0 || index >= len(t.keys) {
		return
	}
	t.selection.Select(index)
}

func (t *Tab) SelectPrevious() {
	if t.IsEmpty() {
		return
	}
	t.selection.Previous()
}

// SelectNext moves the cursor down. At the bottom it asks for older notes
// instead, unless such a request is already in flight.
func (t *Tab) SelectNext() Command {
	if t.IsEmpty() {
		return nil
	}
	if t.IsAtBottom() {
		return t.startLoadingMore()
	}
	t.selection.Next(t.maxIndex())
	return nil
}

func (t *Tab) SelectFirst() {
	if t.IsEmpty() {
		return
	}
	t.selection.First()
}

func (t *Tab) SelectLast() {
	if t.IsEmpty() {
		return
	}
	t.selection.Last(t.maxIndex())
}

func (t *Tab) Deselect() {
	t.selection.Clear()
}

// ResetPagination abandons an in-flight request for older notes.
func (t *Tab) ResetPagination() {
	t.pagination.FinishLoadingMore()
}

func (t *Tab) startLoadingMore() Command {
	if t.pagination.IsLoadingMore() {
		return nil
	}
	oldest, ok := t.pagination.OldestTimestamp()
	if !ok {
		return nil
	}
	t.pagination.StartLoadingMore(oldest)
	return FetchOlder{Tab: t.identity, Before: oldest}
}

func (t *Tab) maxIndex() int {
	return len(t.keys) - 1
}
