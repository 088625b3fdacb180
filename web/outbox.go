package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/deemkeen/nostrodon/db"
	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const draftsPerPage = 20

var (
	ErrDraftMismatch = errors.New("submitted event does not match the draft")
	ErrUnsigned      = errors.New("submitted event carries no signature")
	ErrMalformed     = errors.New("malformed event")
)

// GetOutbox lists the drafts waiting for an external signer. Page 0 is the
// collection summary, pages from 1 hold the drafts oldest first.
func GetOutbox(conf *util.AppConfig, store Store, page int) (string, error) {
	outboxURL := fmt.Sprintf("%s/outbox", baseURL(conf))

	if page == 0 {
		total, err := store.CountDrafts()
		if err != nil {
			logging.Error().Err(err).Msg("could not count drafts")
			return "{}", err
		}
		collection := map[string]any{
			"id":         outboxURL,
			"totalItems": total,
			"first":      fmt.Sprintf("%s?page=1", outboxURL),
		}
		return marshal(collection)
	}

	offset := (page - 1) * draftsPerPage
	drafts, err := store.ReadPendingDrafts(draftsPerPage+1, offset)
	if err != nil {
		logging.Error().Err(err).Int("page", page).Msg("could not read drafts")
		return "{}", err
	}

	hasMore := len(drafts) > draftsPerPage
	if hasMore {
		drafts = drafts[:draftsPerPage]
	}

	items := make([]map[string]any, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, map[string]any{
			"id":        d.Id.String(),
			"eventId":   d.EventId,
			"createdAt": d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			"submit":    fmt.Sprintf("%s/%s", outboxURL, d.Id),
			"event":     json.RawMessage(d.EventJSON),
		})
	}

	collectionPage := map[string]any{
		"id":           fmt.Sprintf("%s?page=%d", outboxURL, page),
		"partOf":       outboxURL,
		"orderedItems": items,
	}
	if hasMore {
		collectionPage["next"] = fmt.Sprintf("%s?page=%d", outboxURL, page+1)
	}
	if page > 1 {
		collectionPage["prev"] = fmt.Sprintf("%s?page=%d", outboxURL, page-1)
	}
	return marshal(collectionPage)
}

// SubmitSigned accepts the signed version of a queued draft. The event id must
// match both its content and the draft, then it is cached, published and the
// draft dropped. A failed publish keeps the draft.
func SubmitSigned(ctx context.Context, store Store, pub Publisher, draftID uuid.UUID, body []byte) (domain.Event, error) {
	var ev domain.Event

	draft, err := store.ReadDraft(draftID)
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.Sig == "" {
		return ev, ErrUnsigned
	}
	id, err := ev.ComputeID()
	if err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if id != ev.ID || ev.ID != draft.EventId {
		return ev, ErrDraftMismatch
	}

	if err := store.SaveEvent(ev); err != nil {
		return ev, fmt.Errorf("caching event: %w", err)
	}
	if pub != nil {
		if err := pub.Publish(ctx, ev); err != nil {
			return ev, fmt.Errorf("publishing event: %w", err)
		}
	}
	if err := store.DeleteDraft(draftID); err != nil {
		return ev, fmt.Errorf("dropping draft: %w", err)
	}
	return ev, nil
}

func HandleSubmit(c *gin.Context, store Store, pub Publisher) {
	log := logging.Component("outbox")

	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid draft id"})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	ev, err := SubmitSigned(c.Request.Context(), store, pub, draftID, body)
	switch {
	case err == nil:
		log.Info().Str("draft", draftID.String()).Str("event", domain.ShortKey(ev.ID)).Msg("signed draft published")
		c.JSON(http.StatusAccepted, gin.H{"id": ev.ID})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	case errors.Is(err, ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnsigned), errors.Is(err, ErrDraftMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Warn().Err(err).Str("draft", draftID.String()).Msg("could not submit draft")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// ParsePageParam extracts the page parameter from a query string
func ParsePageParam(pageStr string) int {
	if pageStr == "" {
		return 0
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 0 {
		return 0
	}
	return page
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
