package common

import (
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/relay"
)

type SessionState uint

const (
	TimelineView SessionState = iota
	ReplyView
	OutboxView
	OpenFeedView
)

// RelayMsg carries one update from the relay feed.
type RelayMsg struct {
	Update relay.Update
}

// RelayErrMsg ends the feed loop.
type RelayErrMsg struct {
	Err error
}

// StatusMsg is shown in the status line until the next one arrives.
type StatusMsg struct {
	Text string
	Err  bool
}

// ReplyMsg opens the composer for a reply to Target.
type ReplyMsg struct {
	Target domain.Event
}

// ComposeMsg opens the composer for a new top-level note.
type ComposeMsg struct{}

// ReactMsg asks for a "like" draft on Target.
type ReactMsg struct {
	Target domain.Event
}

// RepostMsg asks for a repost draft of Target.
type RepostMsg struct {
	Target domain.Event
}

// OpenFeedMsg asks the timeline to open PubKey's feed as a tab.
type OpenFeedMsg struct {
	PubKey string
}

// DraftQueuedMsg reports a draft stored in the outbox. What names the draft
// ("note", "reply", "reaction", "repost").
type DraftQueuedMsg struct {
	What string
	Item *domain.OutboxItem
}

// CacheLoadedMsg replays what the event cache already knows.
type CacheLoadedMsg struct {
	Notes      []domain.Event
	Engagement []domain.Event
	Profiles   map[string]*domain.Profile
}

func Status(text string) StatusMsg {
	return StatusMsg{Text: text}
}

func ErrStatus(err error) StatusMsg {
	return StatusMsg{Text: err.Error(), Err: true}
}
