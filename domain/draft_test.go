package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoteDraft(t *testing.T) {
	ev, err := NewNoteDraft(bob, "gm nostr", 1705129933)
	require.NoError(t, err)

	assert.Equal(t, KindTextNote, ev.Kind)
	assert.Equal(t, bob, ev.PubKey)
	assert.Empty(t, ev.Tags)
	assert.Empty(t, ev.Sig)
	_, isReply := NewTextNote(ev).ReplyTarget()
	assert.False(t, isReply)

	id, err := ev.ComputeID()
	require.NoError(t, err)
	assert.Equal(t, id, ev.ID)
}

func TestNewReactionDraft(t *testing.T) {
	target := Event{ID: rootID, PubKey: alice, CreatedAt: 1705129933, Kind: KindTextNote,
		Tags: []Tag{EventTag(taggedID, "", MarkerRoot)}}

	ev, err := NewReactionDraft(bob, ReactionLike, target, 1705130000)
	require.NoError(t, err)

	assert.Equal(t, KindReaction, ev.Kind)
	assert.Equal(t, "+", ev.Content)
	assert.Equal(t, []Tag{{TagEvent, rootID}, {TagPubKey, alice}}, ev.Tags)

	ref, ok := ev.LastEventRef()
	require.True(t, ok)
	assert.Equal(t, rootID, ref)

	id, err := ev.ComputeID()
	require.NoError(t, err)
	assert.Equal(t, id, ev.ID)
}

func TestNewRepostDraft(t *testing.T) {
	target := Event{ID: rootID, PubKey: alice, CreatedAt: 1705129933, Kind: KindTextNote, Content: "hello", Sig: "abcd"}

	ev, err := NewRepostDraft(bob, target, 1705130000)
	require.NoError(t, err)

	assert.Equal(t, KindRepost, ev.Kind)
	assert.Equal(t, []Tag{{TagEvent, rootID}, {TagPubKey, alice}}, ev.Tags)

	var embedded Event
	require.NoError(t, json.Unmarshal([]byte(ev.Content), &embedded))
	assert.Equal(t, target, embedded)

	id, err := ev.ComputeID()
	require.NoError(t, err)
	assert.Equal(t, id, ev.ID)
}
