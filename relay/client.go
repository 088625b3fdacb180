// Package relay speaks the nostr relay protocol over websockets and feeds
// what the relays send into the timeline.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by writes on a closed or broken connection.
var ErrNotConnected = errors.New("relay: not connected")

const (
	defaultWriteTimeout = 10 * time.Second
	envelopeBufferSize  = 256
)

// Client is a single relay connection. Writes may be issued from any
// goroutine; incoming envelopes are delivered on Envelopes until the
// connection ends.
type Client struct {
	url  string
	conn *websocket.Conn

	writeMu sync.Mutex

	envelopes chan Envelope
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	log zerolog.Logger
}

// Dial connects to the relay at url.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{
		url:       url,
		conn:      conn,
		envelopes: make(chan Envelope, envelopeBufferSize),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
		log:       logging.Component("relay").With().Str("relay", url).Logger(),
	}
	go c.readLoop()
	c.log.Info().Msg("connected")
	return c, nil
}

func (c *Client) URL() string {
	return c.url
}

// Envelopes is closed once the connection ends.
func (c *Client) Envelopes() <-chan Envelope {
	return c.envelopes
}

// Done is closed once the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Subscribe(ctx context.Context, subID string, filters ...Filter) error {
	payload, err := encodeReq(subID, filters)
	if err != nil {
		return fmt.Errorf("encoding REQ %s: %w", subID, err)
	}
	return c.write(ctx, payload)
}

func (c *Client) Unsubscribe(ctx context.Context, subID string) error {
	payload, err := encodeClose(subID)
	if err != nil {
		return fmt.Errorf("encoding CLOSE %s: %w", subID, err)
	}
	return c.write(ctx, payload)
}

// Publish forwards an already signed event.
func (c *Client) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", domain.ShortKey(ev.ID), err)
	}
	return c.write(ctx, payload)
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	<-c.done
	return err
}

func (c *Client) write(ctx context.Context, payload []byte) error {
	select {
	case <-c.closing:
		return ErrNotConnected
	case <-c.done:
		return ErrNotConnected
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer func() {
		close(c.envelopes)
		close(c.done)
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
				c.log.Debug().Msg("connection closed")
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Info().Err(err).Msg("relay closed the connection")
				} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.log.Warn().Err(err).Msg("read timeout")
				} else {
					c.log.Warn().Err(err).Msg("read error")
				}
				c.conn.Close()
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			c.log.Debug().Err(err).Bytes("sample", sample).Msg("dropping envelope")
			continue
		}
		env.Relay = c.url

		select {
		case c.envelopes <- env:
		case <-c.closing:
			return
		}
	}
}
