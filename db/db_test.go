package db

import (
	"testing"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a migrated in-memory cache.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func textNote(id, author string, createdAt domain.Timestamp) domain.Event {
	return domain.Event{
		ID:        id,
		PubKey:    author,
		CreatedAt: createdAt,
		Kind:      domain.KindTextNote,
		Tags:      []domain.Tag{{domain.TagHashtag, "nostr"}},
		Content:   "hello " + id,
		Sig:       "sig-" + id,
	}
}

func engagementEvent(id string, kind domain.Kind, createdAt domain.Timestamp, targets ...string) domain.Event {
	ev := domain.Event{ID: id, PubKey: "fan", CreatedAt: createdAt, Kind: kind}
	for _, target := range targets {
		ev.Tags = append(ev.Tags, domain.Tag{domain.TagEvent, target})
	}
	return ev
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := setupTestDB(t)

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, version)

	require.NoError(t, db.RunMigrations())
	again, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, version, again)
}

func TestSaveAndReadEvent(t *testing.T) {
	db := setupTestDB(t)
	ev := textNote("n1", "alice", 1000)

	require.NoError(t, db.SaveEvent(ev))

	got, err := db.ReadEventById("n1")
	require.NoError(t, err)
	assert.Equal(t, ev, *got)
}

func TestSaveEventIgnoresDuplicates(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.SaveEvent(textNote("n1", "alice", 1000)))

	changed := textNote("n1", "alice", 1000)
	changed.Content = "rewritten"
	require.NoError(t, db.SaveEvent(changed))

	got, err := db.ReadEventById("n1")
	require.NoError(t, err)
	assert.Equal(t, "hello n1", got.Content)
}

func TestReadEventByIdNotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.ReadEventById("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

func TestReadTextNotesOrdering(t *testing.T) {
	db := setupTestDB(t)
	for _, ev := range []domain.Event{
		textNote("b", "alice", 2000),
		textNote("a", "bob", 2000),
		textNote("c", "alice", 3000),
		textNote("d", "bob", 1000),
		engagementEvent("r", domain.KindReaction, 4000, "c"),
	} {
		require.NoError(t, db.SaveEvent(ev))
	}

	notes, err := db.ReadTextNotes(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d"}, eventIDs(notes))

	limited, err := db.ReadTextNotes(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, eventIDs(limited))

	byAlice, err := db.ReadTextNotesByAuthor("alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, eventIDs(byAlice))

	byBoth, err := db.ReadTextNotesByAuthors([]string{"bob", "carol"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, eventIDs(byBoth))

	everyone, err := db.ReadTextNotesByAuthors(nil, 10)
	require.NoError(t, err)
	assert.Len(t, everyone, 4)
}

func TestReadEngagementForUsesLastEventTag(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.SaveEvent(textNote("root", "alice", 1000)))
	require.NoError(t, db.SaveEvent(textNote("target", "alice", 1100)))
	for _, ev := range []domain.Event{
		engagementEvent("r1", domain.KindReaction, 1200, "root", "target"),
		engagementEvent("s1", domain.KindRepost, 1300, "target"),
		engagementEvent("z1", domain.KindZapReceipt, 1400, "root"),
		engagementEvent("x1", domain.KindTextNote, 1500, "target"),
	} {
		require.NoError(t, db.SaveEvent(ev))
	}

	onTarget, err := db.ReadEngagementFor([]string{"target"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "s1"}, eventIDs(onTarget))

	onBoth, err := db.ReadEngagementFor([]string{"target", "root"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "s1", "z1"}, eventIDs(onBoth))

	none, err := db.ReadEngagementFor(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReadContactList(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.ReadContactList("alice")
	assert.ErrorIs(t, err, ErrNotFound)

	older := domain.Event{ID: "c1", PubKey: "alice", CreatedAt: 100, Kind: domain.KindContactList, Tags: []domain.Tag{domain.PubKeyTag("bob")}}
	newer := domain.Event{ID: "c2", PubKey: "alice", CreatedAt: 200, Kind: domain.KindContactList, Tags: []domain.Tag{domain.PubKeyTag("carol")}}
	require.NoError(t, db.SaveEvent(newer))
	require.NoError(t, db.SaveEvent(older))

	got, err := db.ReadContactList("alice")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)
}

func TestUpsertProfileKeepsNewest(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.UpsertProfile(&domain.Profile{PubKey: "alice", CreatedAt: 200, Name: "alice", DisplayName: "Alice"}))
	require.NoError(t, db.UpsertProfile(&domain.Profile{PubKey: "alice", CreatedAt: 100, Name: "stale"}))

	p, err := db.ReadProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, domain.Timestamp(200), p.CreatedAt)

	require.NoError(t, db.UpsertProfile(&domain.Profile{PubKey: "alice", CreatedAt: 300, Name: "alice2"}))
	p, err = db.ReadProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice2", p.Name)
	assert.Equal(t, "", p.DisplayName)
}

func TestReadProfiles(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.UpsertProfile(&domain.Profile{PubKey: "alice", CreatedAt: 1, Name: "alice"}))
	require.NoError(t, db.UpsertProfile(&domain.Profile{PubKey: "bob", CreatedAt: 1, Name: "bob"}))

	profiles, err := db.ReadProfiles([]string{"alice", "carol"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles["alice"].Name)

	_, err = db.ReadProfile("carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutboxLifecycle(t *testing.T) {
	db := setupTestDB(t)

	first, err := domain.NewOutboxItem(textNote("d1", "me", 1000))
	require.NoError(t, err)
	first.CreatedAt = time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	second, err := domain.NewOutboxItem(textNote("d2", "me", 1001))
	require.NoError(t, err)
	second.CreatedAt = time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.EnqueueDraft(second))
	require.NoError(t, db.EnqueueDraft(first))

	pending, err := db.ReadPendingDrafts(10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.Id, pending[0].Id)
	assert.Equal(t, "d1", pending[0].EventId)
	assert.JSONEq(t, first.EventJSON, pending[0].EventJSON)
	assert.Equal(t, second.Id, pending[1].Id)

	page, err := db.ReadPendingDrafts(10, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.Id, page[0].Id)

	n, err := db.CountDrafts()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	item, err := db.ReadDraft(second.Id)
	require.NoError(t, err)
	assert.Equal(t, "d2", item.EventId)

	require.NoError(t, db.DeleteDraft(first.Id))
	_, err = db.ReadDraft(first.Id)
	assert.ErrorIs(t, err, ErrNotFound)
	pending, err = db.ReadPendingDrafts(10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.Id, pending[0].Id)
}

func eventIDs(events []domain.Event) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}
