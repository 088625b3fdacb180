package relay

import (
	"slices"

	"github.com/deemkeen/nostrodon/domain"
)

// TimelineKinds are the event kinds a home timeline subscribes to.
var TimelineKinds = []domain.Kind{
	domain.KindTextNote,
	domain.KindRepost,
	domain.KindReaction,
	domain.KindZapReceipt,
}

// UserFeedKinds are the event kinds a single author's feed subscribes to.
var UserFeedKinds = []domain.Kind{
	domain.KindTextNote,
	domain.KindRepost,
}

// Filter selects events in a REQ. Empty fields match everything.
type Filter struct {
	IDs     []string          `json:"ids,omitempty"`
	Authors []string          `json:"authors,omitempty"`
	Kinds   []domain.Kind     `json:"kinds,omitempty"`
	Events  []string          `json:"#e,omitempty"`
	PubKeys []string          `json:"#p,omitempty"`
	Since   *domain.Timestamp `json:"since,omitempty"`
	Until   *domain.Timestamp `json:"until,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

func (f Filter) WithSince(ts domain.Timestamp) Filter {
	f.Since = &ts
	return f
}

func (f Filter) WithUntil(ts domain.Timestamp) Filter {
	f.Until = &ts
	return f
}

func (f Filter) WithLimit(limit int) Filter {
	f.Limit = limit
	return f
}

// Matches reports whether ev satisfies every condition of f except Limit.
func (f Filter) Matches(ev domain.Event) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, ev.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, ev.Kind) {
		return false
	}
	if len(f.Events) > 0 && !hasTagValue(ev, domain.TagEvent, f.Events) {
		return false
	}
	if len(f.PubKeys) > 0 && !hasTagValue(ev, domain.TagPubKey, f.PubKeys) {
		return false
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	return true
}

func hasTagValue(ev domain.Event, key string, values []string) bool {
	for _, tag := range ev.Tags {
		if tag.Key() == key && slices.Contains(values, tag.Value()) {
			return true
		}
	}
	return false
}

// TabFilter is the base filter for a tab's notes. A home tab without follows
// reads the global feed.
func TabFilter(tab domain.TabIdentity, follows []string) Filter {
	if tab.IsHome() {
		return Filter{Authors: follows, Kinds: TimelineKinds}
	}
	return Filter{Authors: []string{tab.Author}, Kinds: UserFeedKinds}
}

// ProfileFilter requests the metadata of authors.
func ProfileFilter(authors []string) Filter {
	return Filter{Authors: authors, Kinds: []domain.Kind{domain.KindMetadata}}
}

// ContactListFilter requests the newest contact list of pubkey.
func ContactListFilter(pubkey string) Filter {
	return Filter{Authors: []string{pubkey}, Kinds: []domain.Kind{domain.KindContactList}, Limit: 1}
}
