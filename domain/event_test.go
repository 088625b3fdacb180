package domain

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareOrdersNewestFirst(t *testing.T) {
	keys := []SortKey{
		{CreatedAt: 1000, ID: "a"},
		{CreatedAt: 3000, ID: "b"},
		{CreatedAt: 2000, ID: "c"},
		{CreatedAt: 2000, ID: "b"},
	}

	sort.Slice(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })

	assert.Equal(t, []SortKey{
		{CreatedAt: 3000, ID: "b"},
		{CreatedAt: 2000, ID: "b"},
		{CreatedAt: 2000, ID: "c"},
		{CreatedAt: 1000, ID: "a"},
	}, keys)
}

func TestCompareIsStrict(t *testing.T) {
	a := SortKey{CreatedAt: 5, ID: "x"}
	assert.Zero(t, Compare(a, a))
	assert.Negative(t, Compare(a, SortKey{CreatedAt: 5, ID: "y"}))
	assert.Positive(t, Compare(SortKey{CreatedAt: 5, ID: "y"}, a))
	assert.True(t, a.OlderThan(6))
	assert.False(t, a.OlderThan(5))
}

func TestTabIdentity(t *testing.T) {
	assert.True(t, HomeTab().IsHome())
	assert.False(t, UserFeedTab(alice).IsHome())
	assert.Equal(t, UserFeedTab(alice), UserFeedTab(alice))
	assert.NotEqual(t, UserFeedTab(alice), UserFeedTab(bob))
	assert.Equal(t, "home", HomeTab().String())
	assert.Equal(t, "user:4d39c23b:ae25", UserFeedTab(alice).String())
}

func TestEventJSONRoundTrip(t *testing.T) {
	raw := `{"id":"` + replyID + `","pubkey":"` + alice + `","created_at":1705133557,"kind":1,` +
		`"tags":[["e","` + rootID + `","","root"],["p","` + alice + `"]],"content":"hi","sig":"00"}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	assert.Equal(t, KindTextNote, ev.Kind)
	assert.Equal(t, Timestamp(1705133557), ev.CreatedAt)
	require.Len(t, ev.Tags, 2)
	assert.Equal(t, MarkerRoot, ev.Tags[0].Marker())
	assert.Equal(t, "", ev.Tags[1].Marker())
}

func TestLastEventRefPicksLastTag(t *testing.T) {
	ev := Event{Tags: []Tag{
		{TagEvent, rootID},
		{TagPubKey, alice},
		{TagEvent, replyID},
	}}

	ref, ok := ev.LastEventRef()
	require.True(t, ok)
	assert.Equal(t, replyID, ref)

	_, ok = (&Event{Tags: []Tag{{TagPubKey, alice}}}).LastEventRef()
	assert.False(t, ok)
}

func TestComputeIDIsStable(t *testing.T) {
	ev := Event{PubKey: alice, CreatedAt: 1, Kind: KindTextNote, Content: "x"}

	a, err := ev.ComputeID()
	require.NoError(t, err)
	ev.Tags = []Tag{}
	b, err := ev.ComputeID()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	ev.Content = "y"
	c, err := ev.ComputeID()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestVerifyID(t *testing.T) {
	ev := Event{PubKey: alice, CreatedAt: 1, Kind: KindTextNote, Content: "x"}
	id, err := ev.ComputeID()
	require.NoError(t, err)
	ev.ID = id
	assert.NoError(t, ev.VerifyID())

	ev.Content = "tampered"
	assert.ErrorIs(t, ev.VerifyID(), ErrIDMismatch)

	ev.Content = "x"
	ev.ID = unrelated
	assert.ErrorIs(t, ev.VerifyID(), ErrIDMismatch)
}

func TestAmount(t *testing.T) {
	ev := Event{Tags: []Tag{{TagAmount, "1000"}, {TagAmount, "21000"}}}
	assert.Equal(t, uint64(21000), ev.Amount())
	assert.Zero(t, (&Event{Tags: []Tag{{TagAmount, "nope"}}}).Amount())
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "abc", ShortKey("abc"))
	assert.Equal(t, "4d39c23b:ae25", ShortKey(alice))
}
