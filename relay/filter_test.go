package relay

import (
	"encoding/json"
	"testing"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterJSON(t *testing.T) {
	f := Filter{
		IDs:     []string{"i"},
		Authors: []string{"a"},
		Kinds:   []domain.Kind{domain.KindTextNote, domain.KindRepost},
		Events:  []string{"e1"},
		PubKeys: []string{"p1"},
	}.WithSince(10).WithUntil(20).WithLimit(5)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":["i"],"authors":["a"],"kinds":[1,6],"#e":["e1"],"#p":["p1"],"since":10,"until":20,"limit":5}`, string(data))

	empty, err := json.Marshal(Filter{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(empty))
}

func TestFilterWithDoesNotAlias(t *testing.T) {
	base := Filter{Authors: []string{"a"}}
	older := base.WithUntil(100)

	assert.Nil(t, base.Until)
	require.NotNil(t, older.Until)
	assert.Equal(t, domain.Timestamp(100), *older.Until)
}

func TestFilterMatches(t *testing.T) {
	ev := domain.Event{
		ID:        "id1",
		PubKey:    "alice",
		CreatedAt: 100,
		Kind:      domain.KindReaction,
		Tags:      []domain.Tag{{"e", "target"}, {"p", "bob"}},
	}

	assert.True(t, Filter{}.Matches(ev))
	assert.True(t, Filter{Authors: []string{"carol", "alice"}}.Matches(ev))
	assert.False(t, Filter{Authors: []string{"carol"}}.Matches(ev))
	assert.True(t, Filter{Kinds: TimelineKinds}.Matches(ev))
	assert.False(t, Filter{Kinds: UserFeedKinds}.Matches(ev))
	assert.True(t, Filter{Events: []string{"target"}}.Matches(ev))
	assert.False(t, Filter{Events: []string{"other"}}.Matches(ev))
	assert.True(t, Filter{PubKeys: []string{"bob"}}.Matches(ev))
	assert.False(t, Filter{IDs: []string{"id2"}}.Matches(ev))

	assert.True(t, Filter{}.WithSince(100).Matches(ev))
	assert.False(t, Filter{}.WithSince(101).Matches(ev))
	assert.True(t, Filter{}.WithUntil(100).Matches(ev))
	assert.False(t, Filter{}.WithUntil(99).Matches(ev))
}

func TestTabFilter(t *testing.T) {
	home := TabFilter(domain.HomeTab(), []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, home.Authors)
	assert.Equal(t, TimelineKinds, home.Kinds)

	global := TabFilter(domain.HomeTab(), nil)
	assert.Empty(t, global.Authors)

	user := TabFilter(domain.UserFeedTab("alice"), []string{"a"})
	assert.Equal(t, []string{"alice"}, user.Authors)
	assert.Equal(t, UserFeedKinds, user.Kinds)
}

func TestContactsOf(t *testing.T) {
	ev := domain.Event{Kind: domain.KindContactList, Tags: []domain.Tag{
		domain.PubKeyTag("a"),
		{"t", "ignored"},
		domain.PubKeyTag("b"),
		domain.PubKeyTag("a"),
		{"p"},
	}}

	assert.Equal(t, []string{"a", "b"}, ContactsOf(ev))
}
