package middleware

import (
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/util"
	gossh "golang.org/x/crypto/ssh"
)

// KeyList is the set of public keys allowed to open a session. An empty list
// admits everyone.
type KeyList map[string]struct{}

// NewKeyList parses authorized_keys style lines; unparsable lines are logged
// and skipped.
func NewKeyList(lines []string) KeyList {
	keys := make(KeyList, len(lines))
	for _, line := range lines {
		pk, _, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			logging.Warn().Err(err).Str("key", util.Truncate(line, 32)).Msg("ignoring authorized key")
			continue
		}
		keys[util.PublicKeyToString(pk)] = struct{}{}
	}
	return keys
}

func (k KeyList) Allows(pk ssh.PublicKey) bool {
	if len(k) == 0 {
		return true
	}
	_, ok := k[util.PublicKeyToString(pk)]
	return ok
}

// PublicKeyHandler rejects unlisted keys during the handshake.
func PublicKeyHandler(keys KeyList) ssh.PublicKeyHandler {
	return func(_ ssh.Context, pk ssh.PublicKey) bool {
		return keys.Allows(pk)
	}
}

func AuthMiddleware(conf *util.AppConfig) wish.Middleware {
	keys := NewKeyList(conf.Conf.AuthorizedKeys)
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			if !keys.Allows(s.PublicKey()) {
				logging.Warn().
					Str("remote", s.RemoteAddr().String()).
					Str("key", util.PkToHash(util.PublicKeyToString(s.PublicKey()))).
					Msg("refused session for unlisted key")
				wish.Fatalln(s, "this key is not authorized")
				return
			}
			util.LogPublicKey(s)
			h(s)
		}
	}
}
