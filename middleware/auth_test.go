package middleware

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/deemkeen/nostrodon/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func newKey(t *testing.T) gossh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pk, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return pk
}

func TestKeyListEmptyAllowsAll(t *testing.T) {
	keys := NewKeyList(nil)
	assert.True(t, keys.Allows(newKey(t)))
}

func TestKeyListMatchesIgnoringComments(t *testing.T) {
	listed := newKey(t)
	other := newKey(t)

	keys := NewKeyList([]string{
		util.PublicKeyToString(listed) + " me@laptop",
		"not a key",
	})

	assert.Len(t, keys, 1)
	assert.True(t, keys.Allows(listed))
	assert.False(t, keys.Allows(other))
	assert.False(t, keys.Allows(nil))
}

func TestPublicKeyHandler(t *testing.T) {
	listed := newKey(t)
	handler := PublicKeyHandler(NewKeyList([]string{util.PublicKeyToString(listed)}))

	assert.True(t, handler(nil, listed))
	assert.False(t, handler(nil, newKey(t)))
}
