package domain

const (
	TagEvent   = "e"
	TagPubKey  = "p"
	TagAmount  = "amount"
	TagHashtag = "t"

	MarkerRoot  = "root"
	MarkerReply = "reply"
)

// Tag is a raw nostr tag: a key followed by its values.
type Tag []string

func (t Tag) Key() string {
	return t.at(0)
}

func (t Tag) Value() string {
	return t.at(1)
}

func (t Tag) Relay() string {
	return t.at(2)
}

// Marker is the fourth element of an "e" tag ("root", "reply" or empty).
func (t Tag) Marker() string {
	if t.Key() != TagEvent {
		return ""
	}
	return t.at(3)
}

func (t Tag) at(i int) string {
	if i < len(t) {
		return t[i]
	}
	return ""
}

func EventTag(id, relay, marker string) Tag {
	if marker == "" {
		if relay == "" {
			return Tag{TagEvent, id}
		}
		return Tag{TagEvent, id, relay}
	}
	return Tag{TagEvent, id, relay, marker}
}

func PubKeyTag(pubkey string) Tag {
	return Tag{TagPubKey, pubkey}
}

// withoutMarker returns a copy of an "e" tag with its marker dropped.
func (t Tag) withoutMarker() Tag {
	return EventTag(t.Value(), t.Relay(), "")
}
