package domain

import (
	"fmt"
)

// EventSet keeps events in arrival order and ignores duplicate ids.
type EventSet struct {
	events []Event
	ids    map[string]struct{}
}

func NewEventSet() *EventSet {
	return &EventSet{ids: make(map[string]struct{})}
}

// Insert adds ev and reports whether it was new.
func (s *EventSet) Insert(ev Event) bool {
	if _, ok := s.ids[ev.ID]; ok {
		return false
	}
	s.ids[ev.ID] = struct{}{}
	s.events = append(s.events, ev)
	return true
}

func (s *EventSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *EventSet) Len() int {
	return len(s.events)
}

func (s *EventSet) Events() []Event {
	return s.events
}

type EngagementKind uint

const (
	Reaction EngagementKind = iota
	Repost
	ZapReceipt
)

func (k EngagementKind) String() string {
	switch k {
	case Reaction:
		return "reaction"
	case Repost:
		return "repost"
	case ZapReceipt:
		return "zap receipt"
	}
	return "unknown"
}

// EngagementKindOf maps an event kind to the engagement it represents.
func EngagementKindOf(k Kind) (EngagementKind, bool) {
	switch k {
	case KindReaction:
		return Reaction, true
	case KindRepost:
		return Repost, true
	case KindZapReceipt:
		return ZapReceipt, true
	}
	return 0, false
}

// TextNote is one immutable kind-1 event plus the engagement aggregated on it.
type TextNote struct {
	Event       Event
	reactions   *EventSet
	reposts     *EventSet
	zapReceipts *EventSet
}

func NewTextNote(ev Event) *TextNote {
	return &TextNote{
		Event:       ev,
		reactions:   NewEventSet(),
		reposts:     NewEventSet(),
		zapReceipts: NewEventSet(),
	}
}

func (n *TextNote) ID() string {
	return n.Event.ID
}

func (n *TextNote) Author() string {
	return n.Event.PubKey
}

func (n *TextNote) Content() string {
	return n.Event.Content
}

func (n *TextNote) CreatedAt() Timestamp {
	return n.Event.CreatedAt
}

// AddEngagement records ev under kind and reports whether it was new.
func (n *TextNote) AddEngagement(kind EngagementKind, ev Event) bool {
	switch kind {
	case Reaction:
		return n.reactions.Insert(ev)
	case Repost:
		return n.reposts.Insert(ev)
	case ZapReceipt:
		return n.zapReceipts.Insert(ev)
	}
	return false
}

func (n *TextNote) ReactionsCount() int {
	return n.reactions.Len()
}

func (n *TextNote) RepostsCount() int {
	return n.reposts.Len()
}

func (n *TextNote) ZapReceiptsCount() int {
	return n.zapReceipts.Len()
}

// ZapAmount sums the amounts of all zap receipts, in millisats.
func (n *TextNote) ZapAmount() uint64 {
	var total uint64
	for _, ev := range n.zapReceipts.Events() {
		total += ev.Amount()
	}
	return total
}

// ReplyTarget returns the note this one replies to, if any.
func (n *TextNote) ReplyTarget() (string, bool) {
	return n.Event.LastEventRef()
}

func (n *TextNote) MentionedPubKeys() []string {
	var keys []string
	for _, tag := range n.Event.Tags {
		if tag.Key() == TagPubKey && tag.Value() != "" {
			keys = append(keys, tag.Value())
		}
	}
	return keys
}

func (n *TextNote) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tAuthor: %s \n\tContent: %s \n\tCreatedAt: %s)", n.ID(), n.Author(), n.Content(), n.CreatedAt().Time())
}
