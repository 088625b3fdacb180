package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/deemkeen/nostrodon/db"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/util"
	"github.com/gorilla/feeds"
)

// ErrNoNotes is returned when a feed would have no items.
var ErrNoNotes = errors.New("no notes cached")

// GetRSS renders the cached home timeline, or one author's notes when pubkey
// is set.
func GetRSS(conf *util.AppConfig, store Store, pubkey string) (string, error) {
	var (
		notes []domain.Event
		err   error
		title string
	)
	link := fmt.Sprintf("%s/feed", baseURL(conf))
	limit := feedLimit(conf)

	if pubkey != "" {
		notes, err = store.ReadTextNotesByAuthor(pubkey, limit)
		link = fmt.Sprintf("%s/%s", link, pubkey)
	} else {
		notes, err = store.ReadTextNotesByAuthors(conf.Conf.Follows, limit)
	}
	if err != nil {
		logging.Error().Err(err).Str("pubkey", pubkey).Msg("could not read notes for rss")
		return "", err
	}
	if len(notes) == 0 {
		return "", ErrNoNotes
	}

	profiles := readProfiles(store, notes)
	if pubkey != "" {
		title = fmt.Sprintf("nostrodon notes - %s", label(profiles, pubkey))
	} else {
		title = "nostrodon home timeline"
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "notes cached from nostr relays",
		Created:     time.Now(),
	}
	if pubkey != "" {
		feed.Author = &feeds.Author{Name: label(profiles, pubkey)}
	}
	for _, ev := range notes {
		feed.Items = append(feed.Items, feedItem(conf, ev, profiles))
	}
	return feed.ToRss()
}

// GetRSSItem renders a single cached note.
func GetRSSItem(conf *util.AppConfig, store Store, id string) (string, error) {
	ev, err := store.ReadEventById(id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logging.Error().Err(err).Str("id", domain.ShortKey(id)).Msg("could not read note")
		}
		return "", err
	}
	if ev.Kind != domain.KindTextNote {
		return "", db.ErrNotFound
	}

	profiles := readProfiles(store, []domain.Event{*ev})
	feed := &feeds.Feed{
		Title:       "single nostrodon note",
		Link:        &feeds.Link{Href: noteURL(conf, ev.ID)},
		Description: "a note cached from nostr relays",
		Author:      &feeds.Author{Name: label(profiles, ev.PubKey)},
		Created:     time.Now(),
	}
	feed.Items = []*feeds.Item{feedItem(conf, *ev, profiles)}
	return feed.ToRss()
}

func feedItem(conf *util.AppConfig, ev domain.Event, profiles map[string]*domain.Profile) *feeds.Item {
	created := ev.CreatedAt.Time()
	return &feeds.Item{
		Id:          ev.ID,
		Title:       created.Format(util.DateTimeFormat()),
		Link:        &feeds.Link{Href: noteURL(conf, ev.ID)},
		Description: util.Truncate(util.NormalizeInput(ev.Content), 140),
		Content:     util.LinksToHTML(ev.Content),
		Author:      &feeds.Author{Name: label(profiles, ev.PubKey)},
		Created:     created,
	}
}

func readProfiles(store Store, notes []domain.Event) map[string]*domain.Profile {
	seen := make(map[string]struct{}, len(notes))
	var authors []string
	for _, ev := range notes {
		if _, ok := seen[ev.PubKey]; ok {
			continue
		}
		seen[ev.PubKey] = struct{}{}
		authors = append(authors, ev.PubKey)
	}
	profiles, err := store.ReadProfiles(authors)
	if err != nil {
		logging.Warn().Err(err).Msg("could not read profiles, falling back to keys")
		return map[string]*domain.Profile{}
	}
	return profiles
}

func label(profiles map[string]*domain.Profile, pubkey string) string {
	if p, ok := profiles[pubkey]; ok {
		return p.DisplayLabel()
	}
	return domain.ShortKey(pubkey)
}

func baseURL(conf *util.AppConfig) string {
	return fmt.Sprintf("http://%s:%d", conf.Conf.Host, conf.Conf.HttpPort)
}

func noteURL(conf *util.AppConfig, id string) string {
	return fmt.Sprintf("%s/note/%s", baseURL(conf), id)
}

func feedLimit(conf *util.AppConfig) int {
	if conf.Conf.TimelineLimit > 0 {
		return conf.Conf.TimelineLimit
	}
	return util.DefaultTimelineLimit
}
