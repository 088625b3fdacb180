package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile is the kind-0 metadata an author publishes about themselves.
type Profile struct {
	PubKey      string    `json:"-"`
	CreatedAt   Timestamp `json:"-"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	About       string    `json:"about"`
	Picture     string    `json:"picture"`
}

// ProfileFromEvent parses a metadata event.
func ProfileFromEvent(ev Event) (*Profile, error) {
	if ev.Kind != KindMetadata {
		return nil, fmt.Errorf("event %s is kind %d, not metadata", ShortKey(ev.ID), ev.Kind)
	}
	p := &Profile{}
	if err := json.Unmarshal([]byte(ev.Content), p); err != nil {
		return nil, fmt.Errorf("parsing metadata of %s: %w", ShortKey(ev.PubKey), err)
	}
	p.PubKey = ev.PubKey
	p.CreatedAt = ev.CreatedAt
	return p, nil
}

// Handle is "@name", or empty when no name is set.
func (p *Profile) Handle() string {
	if p.Name == "" {
		return ""
	}
	return "@" + p.Name
}

// DisplayLabel falls back from display name to handle to the shortened key.
func (p *Profile) DisplayLabel() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if h := p.Handle(); h != "" {
		return h
	}
	return ShortKey(p.PubKey)
}

// OutboxItem is an unsigned draft waiting for an external signer.
type OutboxItem struct {
	Id        uuid.UUID
	EventId   string
	EventJSON string
	CreatedAt time.Time
}

func NewOutboxItem(ev Event) (*OutboxItem, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding draft: %w", err)
	}
	return &OutboxItem{
		Id:        uuid.New(),
		EventId:   ev.ID,
		EventJSON: string(raw),
		CreatedAt: time.Now(),
	}, nil
}
