package domain

import (
	"encoding/json"
	"fmt"
)

// ReactionLike is the content of a "like" reaction.
const ReactionLike = "+"

// NewNoteDraft returns an unsigned top-level text note.
func NewNoteDraft(author, content string, now Timestamp) (Event, error) {
	return newDraft("note draft", Event{
		PubKey:    author,
		CreatedAt: now,
		Kind:      KindTextNote,
		Tags:      []Tag{},
		Content:   content,
	})
}

// NewReactionDraft returns an unsigned reaction to target. The last "e" tag
// names the target, so the reaction counts toward it once published.
func NewReactionDraft(author, content string, target Event, now Timestamp) (Event, error) {
	return newDraft("reaction draft", Event{
		PubKey:    author,
		CreatedAt: now,
		Kind:      KindReaction,
		Tags:      []Tag{EventTag(target.ID, "", ""), PubKeyTag(target.PubKey)},
		Content:   content,
	})
}

// NewRepostDraft returns an unsigned repost of target, carrying the target
// event as its content.
func NewRepostDraft(author string, target Event, now Timestamp) (Event, error) {
	embedded, err := json.Marshal(target)
	if err != nil {
		return Event{}, fmt.Errorf("repost draft: %w", err)
	}
	return newDraft("repost draft", Event{
		PubKey:    author,
		CreatedAt: now,
		Kind:      KindRepost,
		Tags:      []Tag{EventTag(target.ID, "", ""), PubKeyTag(target.PubKey)},
		Content:   string(embedded),
	})
}

func newDraft(what string, ev Event) (Event, error) {
	id, err := ev.ComputeID()
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", what, err)
	}
	ev.ID = id
	return ev, nil
}
