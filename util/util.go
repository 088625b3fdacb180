package util

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/ssh"
	"github.com/deemkeen/nostrodon/logging"
	gossh "golang.org/x/crypto/ssh"
)

//go:embed version.txt
var embeddedVersion string

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

func LogPublicKey(s ssh.Session) {
	logging.Info().
		Str("user", s.User()).
		Str("remote", s.RemoteAddr().String()).
		Str("key", PkToHash(PublicKeyToString(s.PublicKey()))).
		Msg("opened a new ssh session")
}

func PublicKeyToString(s ssh.PublicKey) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(string(gossh.MarshalAuthorizedKey(s)))
}

func PkToHash(pk string) string {
	h := sha256.New()
	h.Write([]byte(pk))
	return hex.EncodeToString(h.Sum(nil))
}

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

func NormalizeInput(text string) string {
	normalized := strings.Replace(text, "\n", " ", -1)
	normalized = html.EscapeString(normalized)
	return normalized
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05"
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}

// Truncate cuts text to at most max runes, marking the cut with an ellipsis.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// ExtractURLs returns the http(s) URLs found in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// LinksToHTML escapes text and turns bare URLs into anchor tags.
func LinksToHTML(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		link := html.EscapeString(text[loc[0]:loc[1]])
		fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, link, link)
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return strings.ReplaceAll(b.String(), "\n", "<br>")
}

// LinksToTerminal wraps bare URLs in OSC 8 hyperlinks, green and underlined.
// \033[39;24m resets only foreground and underline so the background survives.
func LinksToTerminal(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(link string) string {
		return fmt.Sprintf("\033[38;2;0;255;127;4m\033]8;;%s\033\\%s\033]8;;\033\\\033[39;24m", link, link)
	})
}
