package openfeed

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/nostrodon/ui/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validKey = strings.Repeat("ab", 32)

func TestParsePubKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		err   error
	}{
		{"valid", validKey, validKey, nil},
		{"upper case and spaces", "  " + strings.ToUpper(validKey) + "\n", validKey, nil},
		{"empty", "   ", "", ErrEmptyKey},
		{"too short", "abcd", "", ErrInvalidKey},
		{"not hex", strings.Repeat("zz", 32), "", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePubKey(tt.input)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnterOpensFeed(t *testing.T) {
	m := InitialModel()
	m.TextInput.SetValue(validKey)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, common.OpenFeedMsg{PubKey: validKey}, cmd())
	assert.Empty(t, m.TextInput.Value())
	assert.Empty(t, m.Error)
}

func TestEnterRejectsBadKey(t *testing.T) {
	m := InitialModel()
	m.TextInput.SetValue("npub-not-supported")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, ErrInvalidKey.Error(), m.Error)
	assert.Contains(t, m.View(), ErrInvalidKey.Error())
}

func TestEscReturnsToTimeline(t *testing.T) {
	m := InitialModel()
	m.TextInput.SetValue("abc")
	m.Error = "old"

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, common.TimelineView, cmd())
	assert.Empty(t, m.TextInput.Value())
	assert.Empty(t, m.Error)
}
