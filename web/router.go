package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/deemkeen/nostrodon/db"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

// Store is the slice of the event cache the web server reads and writes.
type Store interface {
	ReadTextNotesByAuthors(pubkeys []string, limit int) ([]domain.Event, error)
	ReadTextNotesByAuthor(pubkey string, limit int) ([]domain.Event, error)
	ReadEventById(id string) (*domain.Event, error)
	ReadProfile(pubkey string) (*domain.Profile, error)
	ReadProfiles(pubkeys []string) (map[string]*domain.Profile, error)
	SaveEvent(ev domain.Event) error
	ReadPendingDrafts(limit, offset int) ([]domain.OutboxItem, error)
	ReadDraft(id uuid.UUID) (*domain.OutboxItem, error)
	CountDrafts() (int, error)
	DeleteDraft(id uuid.UUID) error
}

// Publisher forwards signed events to relays.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// maxEventBytes bounds a submitted signed event.
const maxEventBytes = 256 * 1024

func Router(conf *util.AppConfig, store Store, pub Publisher) error {
	logging.Info().Str("host", conf.Conf.Host).Int("port", conf.Conf.HttpPort).Msg("starting web server")
	return NewRouter(conf, store, pub).Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
}

// NewRouter wires the HTML pages, RSS feeds and the draft outbox. pub may be
// nil, in which case submitted events are only cached.
func NewRouter(conf *util.AppConfig, store Store, pub Publisher) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	g.GET("/", func(c *gin.Context) {
		HandleIndex(c, conf, store)
	})

	g.GET("/u/:pubkey", func(c *gin.Context) {
		HandleProfile(c, conf, store)
	})

	g.GET("/feed", func(c *gin.Context) {
		renderRSS(c, func() (string, error) { return GetRSS(conf, store, "") })
	})

	g.GET("/feed/:pubkey", func(c *gin.Context) {
		renderRSS(c, func() (string, error) { return GetRSS(conf, store, c.Param("pubkey")) })
	})

	g.GET("/note/:id", func(c *gin.Context) {
		renderRSS(c, func() (string, error) { return GetRSSItem(conf, store, c.Param("id")) })
	})

	g.GET("/outbox", func(c *gin.Context) {
		out, err := GetOutbox(conf, store, ParsePageParam(c.Query("page")))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read outbox"})
			return
		}
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Render(http.StatusOK, render.String{Format: out})
	})

	// Stricter limit for submissions: 2 req/sec per IP
	submitLimiter := NewRateLimiter(rate.Limit(2), 5)
	g.POST("/outbox/:id", RateLimitMiddleware(submitLimiter), MaxBytesMiddleware(maxEventBytes), func(c *gin.Context) {
		HandleSubmit(c, store, pub)
	})

	return g
}

func renderRSS(c *gin.Context, build func() (string, error)) {
	c.Header("Content-Type", "application/xml; charset=utf-8")
	rss, err := build()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, db.ErrNotFound) || errors.Is(err, ErrNoNotes) {
			status = http.StatusNotFound
		}
		c.Render(status, render.String{Format: ""})
		return
	}
	c.Render(http.StatusOK, render.String{Format: rss})
}
