package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"golang.org/x/sync/errgroup"
)

const DefaultPublishTimeout = 10 * time.Second

// ErrRejected is returned when no relay accepted a published event.
var ErrRejected = errors.New("relay: event rejected")

// PublishResult is one relay's answer to a published event.
type PublishResult struct {
	Relay    string
	Accepted bool
	Message  string
	Err      error
}

// Broadcaster publishes signed events on short-lived connections, without a
// running Feed.
type Broadcaster struct {
	Relays  []string
	Timeout time.Duration
	Dial    DialFunc
}

// Broadcast sends ev to every relay at once and waits for their OKs.
func (b Broadcaster) Broadcast(ctx context.Context, ev domain.Event) []PublishResult {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	dial := b.Dial
	if dial == nil {
		dial = Dial
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]PublishResult, len(b.Relays))
	var g errgroup.Group
	for i, url := range b.Relays {
		i, url := i, url
		g.Go(func() error {
			results[i] = publishOne(ctx, dial, url, ev)
			return nil
		})
	}
	g.Wait()
	return results
}

// Publish succeeds when at least one relay accepted ev.
func (b Broadcaster) Publish(ctx context.Context, ev domain.Event) error {
	log := logging.Component("publish")
	var reasons []string
	for _, r := range b.Broadcast(ctx, ev) {
		switch {
		case r.Err != nil:
			log.Warn().Err(r.Err).Str("relay", r.Relay).Str("event", domain.ShortKey(ev.ID)).Msg("publish failed")
			reasons = append(reasons, fmt.Sprintf("%s: %v", r.Relay, r.Err))
		case !r.Accepted:
			log.Warn().Str("relay", r.Relay).Str("reason", r.Message).Str("event", domain.ShortKey(ev.ID)).Msg("event rejected")
			reasons = append(reasons, fmt.Sprintf("%s: %s", r.Relay, r.Message))
		default:
			log.Info().Str("relay", r.Relay).Str("event", domain.ShortKey(ev.ID)).Msg("event accepted")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRejected, strings.Join(reasons, "; "))
}

func publishOne(ctx context.Context, dial DialFunc, url string, ev domain.Event) PublishResult {
	res := PublishResult{Relay: url}
	c, err := dial(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}
	defer c.Close()

	if err := c.Publish(ctx, ev); err != nil {
		res.Err = err
		return res
	}
	for {
		select {
		case env, ok := <-c.Envelopes():
			if !ok {
				res.Err = fmt.Errorf("%w: connection closed before OK", ErrNotConnected)
				return res
			}
			if env.Type != EnvelopeOK || env.EventID != ev.ID {
				continue
			}
			res.Accepted = env.Accepted
			res.Message = env.Message
			return res
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		}
	}
}
