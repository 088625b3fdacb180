package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/deemkeen/nostrodon/db"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/util"
	"github.com/gin-gonic/gin"
)

const postsPerPage = 20

type IndexPageData struct {
	Title    string
	Host     string
	SSHPort  int
	Posts    []PostView
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
}

type ProfilePageData struct {
	IndexPageData
	User UserView
}

type UserView struct {
	PubKey      string
	DisplayName string
	Handle      string
	About       string
	UpdatedAgo  string
}

type PostView struct {
	NoteID      string
	PubKey      string
	Author      string
	MessageHTML template.HTML // escaped content with clickable links
	TimeAgo     string
}

func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else if duration < 30*24*time.Hour {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	} else {
		return t.Format("Jan 2, 2006")
	}
}

func parsePage(c *gin.Context) int {
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		return p
	}
	return 1
}

// paginate reads one extra note past the page to know whether a next page
// exists.
func paginate(conf *util.AppConfig, title string, page int, read func(limit int) ([]domain.Event, error), store Store) (IndexPageData, error) {
	offset := (page - 1) * postsPerPage
	notes, err := read(offset + postsPerPage + 1)
	if err != nil {
		return IndexPageData{}, err
	}

	start := min(offset, len(notes))
	end := min(offset+postsPerPage, len(notes))
	pageNotes := notes[start:end]

	profiles := readProfiles(store, pageNotes)
	posts := make([]PostView, 0, len(pageNotes))
	for _, ev := range pageNotes {
		posts = append(posts, PostView{
			NoteID:      ev.ID,
			PubKey:      ev.PubKey,
			Author:      label(profiles, ev.PubKey),
			MessageHTML: template.HTML(util.LinksToHTML(ev.Content)),
			TimeAgo:     formatTimeAgo(ev.CreatedAt.Time()),
		})
	}

	return IndexPageData{
		Title:    title,
		Host:     conf.Conf.Host,
		SSHPort:  conf.Conf.SshPort,
		Posts:    posts,
		HasPrev:  page > 1,
		HasNext:  len(notes) > end,
		PrevPage: page - 1,
		NextPage: page + 1,
	}, nil
}

func HandleIndex(c *gin.Context, conf *util.AppConfig, store Store) {
	data, err := paginate(conf, "Home", parsePage(c), func(limit int) ([]domain.Event, error) {
		return store.ReadTextNotesByAuthors(conf.Conf.Follows, limit)
	}, store)
	if err != nil {
		logging.Error().Err(err).Msg("could not read home timeline")
		c.HTML(http.StatusInternalServerError, "base.html", gin.H{"Title": "Error", "Error": "Failed to load timeline"})
		return
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func HandleProfile(c *gin.Context, conf *util.AppConfig, store Store) {
	pubkey := c.Param("pubkey")

	profile, err := store.ReadProfile(pubkey)
	if errors.Is(err, db.ErrNotFound) {
		profile = &domain.Profile{PubKey: pubkey}
	} else if err != nil {
		logging.Error().Err(err).Str("pubkey", domain.ShortKey(pubkey)).Msg("could not read profile")
		c.HTML(http.StatusInternalServerError, "base.html", gin.H{"Title": "Error", "Error": "Failed to load profile"})
		return
	}

	data, err := paginate(conf, profile.DisplayLabel(), parsePage(c), func(limit int) ([]domain.Event, error) {
		return store.ReadTextNotesByAuthor(pubkey, limit)
	}, store)
	if err != nil {
		logging.Error().Err(err).Str("pubkey", domain.ShortKey(pubkey)).Msg("could not read author notes")
		c.HTML(http.StatusInternalServerError, "base.html", gin.H{"Title": "Error", "Error": "Failed to load notes"})
		return
	}
	if profile.CreatedAt == 0 && len(data.Posts) == 0 {
		c.HTML(http.StatusNotFound, "base.html", gin.H{"Title": "Not Found", "Error": "Nothing cached for this key"})
		return
	}

	user := UserView{
		PubKey:      pubkey,
		DisplayName: profile.DisplayLabel(),
		Handle:      profile.Handle(),
		About:       profile.About,
	}
	if profile.CreatedAt > 0 {
		user.UpdatedAgo = formatTimeAgo(profile.CreatedAt.Time())
	}
	c.HTML(http.StatusOK, "profile.html", ProfilePageData{IndexPageData: data, User: user})
}
