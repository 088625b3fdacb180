package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type Timestamp int64

func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0)
}

func Now() Timestamp {
	return Timestamp(time.Now().Unix())
}

type Kind int

const (
	KindMetadata    Kind = 0
	KindTextNote    Kind = 1
	KindContactList Kind = 3
	KindRepost      Kind = 6
	KindReaction    Kind = 7
	KindZapReceipt  Kind = 9735
)

// Event is a single nostr event as delivered by a relay.
type Event struct {
	ID        string    `json:"id"`
	PubKey    string    `json:"pubkey"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      Kind      `json:"kind"`
	Tags      []Tag     `json:"tags"`
	Content   string    `json:"content"`
	Sig       string    `json:"sig"`
}

func (ev *Event) SortKey() SortKey {
	return SortKey{CreatedAt: ev.CreatedAt, ID: ev.ID}
}

// Serialize returns the canonical array form used to derive the event id.
func (ev *Event) Serialize() ([]byte, error) {
	tags := ev.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return json.Marshal([]any{0, ev.PubKey, ev.CreatedAt, ev.Kind, tags, ev.Content})
}

func (ev *Event) ComputeID() (string, error) {
	b, err := ev.Serialize()
	if err != nil {
		return "", fmt.Errorf("serializing event: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ErrIDMismatch means an event's id is not the hash of its content.
var ErrIDMismatch = errors.New("event id does not match its content")

// VerifyID checks that ev.ID is the hash of the event's canonical form.
func (ev *Event) VerifyID() error {
	id, err := ev.ComputeID()
	if err != nil {
		return err
	}
	if id != ev.ID {
		return fmt.Errorf("%w: got %s, computed %s", ErrIDMismatch, ShortKey(ev.ID), ShortKey(id))
	}
	return nil
}

// LastEventRef returns the id of the last "e" tag. Engagement events may carry
// several; the last one is the target.
func (ev *Event) LastEventRef() (string, bool) {
	for i := len(ev.Tags) - 1; i >= 0; i-- {
		tag := ev.Tags[i]
		if tag.Key() == TagEvent && tag.Value() != "" {
			return tag.Value(), true
		}
	}
	return "", false
}

// Amount returns the millisat value of the last "amount" tag, or 0.
func (ev *Event) Amount() uint64 {
	for i := len(ev.Tags) - 1; i >= 0; i-- {
		tag := ev.Tags[i]
		if tag.Key() != TagAmount {
			continue
		}
		v, err := strconv.ParseUint(tag.Value(), 10, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

func (ev *Event) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tPubKey: %s \n\tKind: %d \n\tContent: %s \n\tCreatedAt: %s)", ev.ID, ev.PubKey, ev.Kind, ev.Content, ev.CreatedAt.Time())
}

// ShortKey abbreviates a hex key or id for display.
func ShortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:8] + ":" + key[len(key)-4:]
}
