package common

import (
	"errors"
	"testing"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/stretchr/testify/assert"
)

func TestProfilesObserveKeepsNewest(t *testing.T) {
	profiles := Profiles{}

	assert.False(t, profiles.Observe(nil))
	assert.True(t, profiles.Observe(&domain.Profile{PubKey: "alice", CreatedAt: 10, Name: "old"}))
	assert.False(t, profiles.Observe(&domain.Profile{PubKey: "alice", CreatedAt: 5, Name: "older"}))
	assert.False(t, profiles.Observe(&domain.Profile{PubKey: "alice", CreatedAt: 10, Name: "same"}))
	assert.True(t, profiles.Observe(&domain.Profile{PubKey: "alice", CreatedAt: 20, Name: "new"}))

	assert.Equal(t, "@new", profiles.Label("alice"))
}

func TestProfilesLabelAndTabTitle(t *testing.T) {
	profiles := Profiles{}
	profiles.Observe(&domain.Profile{PubKey: "alice", CreatedAt: 1, DisplayName: "Alice"})

	assert.Equal(t, "Alice", profiles.Label("alice"))
	assert.Equal(t, domain.ShortKey("bob"), profiles.Label("bob"))
	assert.Equal(t, "Home", profiles.TabTitle(domain.HomeTab()))
	assert.Equal(t, "Alice", profiles.TabTitle(domain.UserFeedTab("alice")))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "just now", FormatTime(time.Now()))
	assert.Equal(t, "5m ago", FormatTime(time.Now().Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "3h ago", FormatTime(time.Now().Add(-3*time.Hour-time.Second)))
	assert.Equal(t, "2d ago", FormatTime(time.Now().Add(-49*time.Hour)))
}

func TestStatusHelpers(t *testing.T) {
	assert.Equal(t, StatusMsg{Text: "ok"}, Status("ok"))
	assert.Equal(t, StatusMsg{Text: "boom", Err: true}, ErrStatus(errors.New("boom")))
}
