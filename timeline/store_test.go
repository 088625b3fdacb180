package timeline

import (
	"testing"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInsertOrGet(t *testing.T) {
	s := NewStore()
	first := domain.Event{ID: "a", Content: "first"}

	note, created := s.InsertOrGet("a", func() *domain.TextNote { return domain.NewTextNote(first) })
	assert.True(t, created)
	assert.Equal(t, "first", note.Content())

	calls := 0
	again, created := s.InsertOrGet("a", func() *domain.TextNote {
		calls++
		return domain.NewTextNote(domain.Event{ID: "a", Content: "second"})
	})
	assert.False(t, created)
	assert.Zero(t, calls)
	assert.Same(t, note, again)
	assert.Equal(t, 1, s.Len())
}

func TestStoreApplyEngagementUsesLastEventTag(t *testing.T) {
	s := NewStore()
	s.InsertOrGet("target", func() *domain.TextNote { return domain.NewTextNote(domain.Event{ID: "target"}) })
	s.InsertOrGet("root", func() *domain.TextNote { return domain.NewTextNote(domain.Event{ID: "root"}) })

	reaction := domain.Event{ID: "r", Kind: domain.KindReaction, Tags: []domain.Tag{
		{domain.TagEvent, "root"},
		{domain.TagEvent, "target"},
	}}
	require.True(t, s.ApplyEngagement(domain.Reaction, reaction))

	target, _ := s.Get("target")
	root, _ := s.Get("root")
	assert.Equal(t, 1, target.ReactionsCount())
	assert.Equal(t, 0, root.ReactionsCount())
}

func TestStoreApplyEngagementUnknownTarget(t *testing.T) {
	s := NewStore()

	repost := domain.Event{ID: "r", Tags: []domain.Tag{{domain.TagEvent, "missing"}}}
	assert.False(t, s.ApplyEngagement(domain.Repost, repost))
	assert.False(t, s.ApplyEngagement(domain.Repost, domain.Event{ID: "untagged"}))
	assert.Zero(t, s.Len())
}
