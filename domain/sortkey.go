package domain

import "strings"

// SortKey places a note in a timeline: newest first, ties broken by id.
type SortKey struct {
	CreatedAt Timestamp
	ID        string
}

// Compare orders keys for a newest-first timeline. It returns a negative value
// when a belongs before b.
func Compare(a, b SortKey) int {
	switch {
	case a.CreatedAt > b.CreatedAt:
		return -1
	case a.CreatedAt < b.CreatedAt:
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// OlderThan reports whether the key was created strictly before t.
func (k SortKey) OlderThan(t Timestamp) bool {
	return k.CreatedAt < t
}

type TabKind uint

const (
	HomeTabKind TabKind = iota
	UserFeedTabKind
)

// TabIdentity names one logical timeline view. It is comparable and can be
// used as a map key.
type TabIdentity struct {
	Kind   TabKind
	Author string
}

func HomeTab() TabIdentity {
	return TabIdentity{Kind: HomeTabKind}
}

func UserFeedTab(pubkey string) TabIdentity {
	return TabIdentity{Kind: UserFeedTabKind, Author: pubkey}
}

func (t TabIdentity) IsHome() bool {
	return t.Kind == HomeTabKind
}

func (t TabIdentity) String() string {
	if t.IsHome() {
		return "home"
	}
	return "user:" + ShortKey(t.Author)
}
