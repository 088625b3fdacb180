package timeline

import "github.com/deemkeen/nostrodon/domain"

// Message is anything Timeline.Update consumes.
type Message interface {
	isMessage()
}

// Data messages, delivered by the relay feed.
type (
	NoteObserved struct {
		Event domain.Event
		Tab   domain.TabIdentity
	}
	ReactionObserved struct{ Event domain.Event }
	RepostObserved   struct{ Event domain.Event }
	ReceiptObserved  struct{ Event domain.Event }

	// PaginationReset abandons a tab's in-flight request for older notes,
	// e.g. when the relays had nothing older or the request failed.
	PaginationReset struct{ Tab domain.TabIdentity }
)

// Navigation messages, translated from user input.
type (
	SelectPrevious struct{}
	SelectNext     struct{}
	SelectFirst    struct{}
	SelectLast     struct{}
	Select         struct{ Index int }
	ClearSelection struct{}
	SelectTab      struct{ Index int }
	NextTab        struct{}
	PreviousTab    struct{}
)

// Tab management messages.
type (
	AddTab    struct{ Tab domain.TabIdentity }
	RemoveTab struct{ Index int }
)

func (NoteObserved) isMessage()     {}
func (ReactionObserved) isMessage() {}
func (RepostObserved) isMessage()   {}
func (ReceiptObserved) isMessage()  {}
func (PaginationReset) isMessage()  {}
func (SelectPrevious) isMessage()   {}
func (SelectNext) isMessage()       {}
func (SelectFirst) isMessage()      {}
func (SelectLast) isMessage()       {}
func (Select) isMessage()           {}
func (ClearSelection) isMessage()   {}
func (SelectTab) isMessage()        {}
func (NextTab) isMessage()          {}
func (PreviousTab) isMessage()      {}
func (AddTab) isMessage()           {}
func (RemoveTab) isMessage()        {}

// IsUserOperation reports whether msg is navigation, which the timeline
// ignores until the first note has arrived.
func IsUserOperation(msg Message) bool {
	switch msg.(type) {
	case SelectPrevious, SelectNext, SelectFirst, SelectLast, Select, ClearSelection,
		SelectTab, NextTab, PreviousTab:
		return true
	}
	return false
}

// Command is an intent for the host to carry out. A nil Command means there
// is nothing to do.
type Command interface {
	isCommand()
}

type (
	// FetchOlder asks for notes of Tab created before Before.
	FetchOlder struct {
		Tab    domain.TabIdentity
		Before domain.Timestamp
	}
	SubscribeTab   struct{ Tab domain.TabIdentity }
	UnsubscribeTab struct{ Tab domain.TabIdentity }
)

func (FetchOlder) isCommand()     {}
func (SubscribeTab) isCommand()   {}
func (UnsubscribeTab) isCommand() {}
