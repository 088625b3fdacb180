package domain

// ReplyTags builds the tags of a reply to target. Existing "e" tags keep their
// position but lose a "reply" marker, the target itself is appended as "root"
// (when it had no "e" tags) or "reply", and the target's author is mentioned
// exactly once.
//
// The result is ordered: event refs, the new ref, pubkey refs, everything else.
func ReplyTags(target Event) []Tag {
	var eventTags, pubkeyTags, rest []Tag

	for _, tag := range target.Tags {
		switch tag.Key() {
		case TagEvent:
			if tag.Marker() == MarkerReply {
				eventTags = append(eventTags, tag.withoutMarker())
			} else {
				eventTags = append(eventTags, tag)
			}
		case TagPubKey:
			pubkeyTags = append(pubkeyTags, tag)
		default:
			rest = append(rest, tag)
		}
	}

	marker := MarkerReply
	if len(eventTags) == 0 {
		marker = MarkerRoot
	}
	eventTags = append(eventTags, EventTag(target.ID, "", marker))

	mentioned := false
	for _, tag := range pubkeyTags {
		if tag.Value() == target.PubKey {
			mentioned = true
			break
		}
	}
	if !mentioned {
		pubkeyTags = append(pubkeyTags, PubKeyTag(target.PubKey))
	}

	tags := make([]Tag, 0, len(eventTags)+len(pubkeyTags)+len(rest))
	tags = append(tags, eventTags...)
	tags = append(tags, pubkeyTags...)
	tags = append(tags, rest...)
	return tags
}

// NewReplyDraft returns an unsigned text note replying to target.
func NewReplyDraft(author, content string, target Event, now Timestamp) (Event, error) {
	return newDraft("reply draft", Event{
		PubKey:    author,
		CreatedAt: now,
		Kind:      KindTextNote,
		Tags:      ReplyTags(target),
		Content:   content,
	})
}
