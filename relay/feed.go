package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/timeline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultContactListTimeout = 10 * time.Second
	DefaultLimit              = 50

	profileBatchSize = 50
	updateBufferSize = 64
)

// Store is where the feed persists what it sees.
type Store interface {
	SaveEvent(ev domain.Event) error
	UpsertProfile(p *domain.Profile) error
	ReadContactList(pubkey string) (*domain.Event, error)
}

type Config struct {
	Relays []string
	// PubKey is the user's key; its contact list defines the home tab
	// unless Follows is set.
	PubKey  string
	Follows []string
	// Limit caps every backfill and fetch-older request.
	Limit              int
	ContactListTimeout time.Duration
}

// Update is one observation for the UI. Exactly one field is set.
type Update struct {
	Message timeline.Message
	Profile *domain.Profile
	Notice  string
}

type DialFunc func(ctx context.Context, url string) (*Client, error)

type FeedOption func(*Feed)

func WithDialer(dial DialFunc) FeedOption {
	return func(f *Feed) {
		f.dial = dial
	}
}

func WithFeedLogger(log zerolog.Logger) FeedOption {
	return func(f *Feed) {
		f.log = log
	}
}

type purpose string

const (
	purposeLive     purpose = "live"
	purposeBackfill purpose = "backfill"
	purposeOlder    purpose = "older"
	purposeProfiles purpose = "profiles"
	purposeContacts purpose = "contacts"
)

type subscription struct {
	id      string
	tab     domain.TabIdentity
	purpose purpose
	// pending holds the relays that have not finished sending stored events.
	pending map[string]struct{}
}

// Feed is the network side of the timeline: it turns engine commands into
// relay subscriptions and relay traffic into engine messages.
//
// Execute may be called from any goroutine. Next must be called from a
// single goroutine.
type Feed struct {
	cfg   Config
	store Store
	dial  DialFunc

	mu        sync.Mutex
	clients   map[string]*Client
	subs      map[string]*subscription
	follows   []string
	requested map[string]struct{}
	profileQ  []string

	incoming     chan Envelope
	disconnected chan string
	updates      chan Update
	backlog      []Update

	closed    chan struct{}
	closeOnce sync.Once

	log zerolog.Logger
}

func NewFeed(cfg Config, store Store, opts ...FeedOption) *Feed {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.ContactListTimeout <= 0 {
		cfg.ContactListTimeout = DefaultContactListTimeout
	}
	f := &Feed{
		cfg:          cfg,
		store:        store,
		dial:         Dial,
		clients:      make(map[string]*Client),
		subs:         make(map[string]*subscription),
		requested:    make(map[string]struct{}),
		incoming:     make(chan Envelope, envelopeBufferSize),
		disconnected: make(chan string, len(cfg.Relays)+1),
		updates:      make(chan Update, updateBufferSize),
		closed:       make(chan struct{}),
		log:          logging.Component("feed"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start connects to the configured relays, resolves the follow list and
// subscribes the home tab. It fails only when no relay is reachable.
func (f *Feed) Start(ctx context.Context) error {
	for _, url := range f.cfg.Relays {
		c, err := f.dial(ctx, url)
		if err != nil {
			f.log.Warn().Err(err).Str("relay", url).Msg("relay unreachable")
			continue
		}
		f.addClient(ctx, c)
	}
	if f.connected() == 0 {
		return fmt.Errorf("%w: no relay reachable", ErrNotConnected)
	}

	follows, err := f.resolveFollows(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.follows = follows
	f.mu.Unlock()
	f.log.Info().Int("follows", len(follows)).Int("relays", f.connected()).Msg("feed started")

	return f.subscribeTab(ctx, domain.HomeTab())
}

// Follows returns the authors the home tab is built from. Empty means the
// global feed.
func (f *Feed) Follows() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.follows...)
}

// Execute carries out a timeline command. A failed FetchOlder also queues a
// PaginationReset so the tab can ask again.
func (f *Feed) Execute(ctx context.Context, cmd timeline.Command) error {
	switch cmd := cmd.(type) {
	case nil:
		return nil
	case timeline.FetchOlder:
		filter := TabFilter(cmd.Tab, f.Follows()).WithUntil(cmd.Before).WithLimit(f.cfg.Limit)
		if _, err := f.subscribe(ctx, cmd.Tab, purposeOlder, filter); err != nil {
			f.push(Update{Message: timeline.PaginationReset{Tab: cmd.Tab}})
			return fmt.Errorf("fetching older notes for %s: %w", cmd.Tab, err)
		}
		return nil
	case timeline.SubscribeTab:
		return f.subscribeTab(ctx, cmd.Tab)
	case timeline.UnsubscribeTab:
		f.unsubscribeTab(ctx, cmd.Tab)
		return nil
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

// Next blocks until the relays produce something the UI should see.
func (f *Feed) Next(ctx context.Context) (Update, error) {
	for {
		if len(f.backlog) > 0 {
			u := f.backlog[0]
			f.backlog = f.backlog[1:]
			return u, nil
		}

		select {
		case u := <-f.updates:
			return u, nil
		case env := <-f.incoming:
			f.handle(ctx, env)
		case url := <-f.disconnected:
			f.dropClient(url)
			if f.connected() == 0 {
				return Update{}, fmt.Errorf("%w: all relays disconnected", ErrNotConnected)
			}
		case <-ctx.Done():
			return Update{}, ctx.Err()
		case <-f.closed:
			return Update{}, ErrNotConnected
		}
	}
}

// Publish forwards a signed event to every connected relay.
func (f *Feed) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	sent := 0
	for _, c := range f.clientList() {
		if err := c.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("publishing %s: %w", domain.ShortKey(ev.ID), errors.Join(append([]error{ErrNotConnected}, errs...)...))
	}
	return nil
}

func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	var errs []error
	for _, c := range f.clientList() {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Feed) handle(ctx context.Context, env Envelope) {
	switch env.Type {
	case EnvelopeEvent:
		f.handleEvent(ctx, env)
	case EnvelopeEOSE:
		f.finish(ctx, env.SubscriptionID, env.Relay, true)
		f.flushProfiles(ctx)
	case EnvelopeClosed:
		f.log.Warn().Str("relay", env.Relay).Str("sub", env.SubscriptionID).Str("reason", env.Message).Msg("subscription closed by relay")
		f.finish(ctx, env.SubscriptionID, env.Relay, false)
	case EnvelopeNotice:
		f.emit(Update{Notice: fmt.Sprintf("%s: %s", env.Relay, env.Message)})
	case EnvelopeOK:
		if env.Accepted {
			f.log.Info().Str("relay", env.Relay).Str("event", domain.ShortKey(env.EventID)).Msg("event accepted")
		} else {
			f.emit(Update{Notice: fmt.Sprintf("%s rejected %s: %s", env.Relay, domain.ShortKey(env.EventID), env.Message)})
		}
	}
}

func (f *Feed) handleEvent(ctx context.Context, env Envelope) {
	sub := f.lookup(env.SubscriptionID)
	if sub == nil {
		f.log.Debug().Str("sub", env.SubscriptionID).Msg("event for unknown subscription")
		return
	}
	ev := *env.Event
	if err := ev.VerifyID(); err != nil {
		f.log.Debug().Err(err).Str("relay", env.Relay).Msg("dropping event")
		return
	}

	if err := f.store.SaveEvent(ev); err != nil {
		f.log.Warn().Err(err).Str("event", domain.ShortKey(ev.ID)).Msg("could not cache event")
	}

	switch ev.Kind {
	case domain.KindTextNote:
		f.emit(Update{Message: timeline.NoteObserved{Event: ev, Tab: sub.tab}})
		f.wantProfile(ctx, ev.PubKey)
	case domain.KindReaction:
		f.emit(Update{Message: timeline.ReactionObserved{Event: ev}})
	case domain.KindRepost:
		f.emit(Update{Message: timeline.RepostObserved{Event: ev}})
	case domain.KindZapReceipt:
		f.emit(Update{Message: timeline.ReceiptObserved{Event: ev}})
	case domain.KindMetadata:
		profile, err := domain.ProfileFromEvent(ev)
		if err != nil {
			f.log.Debug().Err(err).Msg("ignoring metadata")
			return
		}
		if err := f.store.UpsertProfile(profile); err != nil {
			f.log.Warn().Err(err).Str("pubkey", domain.ShortKey(profile.PubKey)).Msg("could not cache profile")
		}
		f.emit(Update{Profile: profile})
	default:
		f.log.Debug().Int("kind", int(ev.Kind)).Msg("ignoring event kind")
	}
}

// finish records that relay has no more stored events for id. Once every
// relay is done, one-shot subscriptions are closed; a fetch-older request
// also resets its tab's pagination.
func (f *Feed) finish(ctx context.Context, id, relay string, sendClose bool) {
	f.mu.Lock()
	sub, ok := f.subs[id]
	if !ok {
		f.mu.Unlock()
		return
	}
	delete(sub.pending, relay)
	done := len(sub.pending) == 0
	f.mu.Unlock()

	if !done {
		return
	}
	f.complete(ctx, sub, sendClose)
}

func (f *Feed) complete(ctx context.Context, sub *subscription, sendClose bool) {
	switch sub.purpose {
	case purposeLive:
		return
	case purposeOlder:
		f.emit(Update{Message: timeline.PaginationReset{Tab: sub.tab}})
	}
	f.closeSubscription(ctx, sub.id, sendClose)
}

func (f *Feed) subscribeTab(ctx context.Context, tab domain.TabIdentity) error {
	follows := f.Follows()
	base := TabFilter(tab, follows)
	now := domain.Now()

	var errs []error
	if _, err := f.subscribe(ctx, tab, purposeBackfill, base.WithUntil(now).WithLimit(f.cfg.Limit)); err != nil {
		errs = append(errs, err)
	}
	if _, err := f.subscribe(ctx, tab, purposeLive, base.WithSince(now)); err != nil {
		errs = append(errs, err)
	}

	var authors []string
	if tab.IsHome() {
		authors = follows
	} else {
		authors = []string{tab.Author}
	}
	if len(authors) > 0 {
		f.markRequested(authors)
		if _, err := f.subscribe(ctx, tab, purposeProfiles, ProfileFilter(authors)); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("subscribing %s: %w", tab, err)
	}
	return nil
}

func (f *Feed) unsubscribeTab(ctx context.Context, tab domain.TabIdentity) {
	f.mu.Lock()
	var ids []string
	for id, sub := range f.subs {
		if sub.tab == tab {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()

	for _, id := range ids {
		f.closeSubscription(ctx, id, true)
	}
	f.log.Debug().Stringer("tab", tab).Int("subscriptions", len(ids)).Msg("unsubscribed tab")
}

// subscribe sends one REQ to every connected relay. It fails only when no
// relay accepted it.
func (f *Feed) subscribe(ctx context.Context, tab domain.TabIdentity, p purpose, filters ...Filter) (string, error) {
	id := fmt.Sprintf("%s-%s", p, uuid.NewString())
	clients := f.clientList()

	sub := &subscription{id: id, tab: tab, purpose: p, pending: make(map[string]struct{}, len(clients))}
	for _, c := range clients {
		sub.pending[c.URL()] = struct{}{}
	}
	f.mu.Lock()
	f.subs[id] = sub
	f.mu.Unlock()

	var errs []error
	sent := 0
	for _, c := range clients {
		if err := c.Subscribe(ctx, id, filters...); err != nil {
			errs = append(errs, err)
			f.mu.Lock()
			delete(sub.pending, c.URL())
			f.mu.Unlock()
			continue
		}
		sent++
	}

	if sent == 0 {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		return "", errors.Join(append([]error{ErrNotConnected}, errs...)...)
	}
	f.log.Debug().Str("sub", id).Stringer("tab", tab).Int("relays", sent).Msg("subscribed")
	return id, nil
}

func (f *Feed) closeSubscription(ctx context.Context, id string, sendClose bool) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()

	if !sendClose {
		return
	}
	for _, c := range f.clientList() {
		if err := c.Unsubscribe(ctx, id); err != nil {
			f.log.Debug().Err(err).Str("relay", c.URL()).Str("sub", id).Msg("could not close subscription")
		}
	}
}

func (f *Feed) resolveFollows(ctx context.Context) ([]string, error) {
	if len(f.cfg.Follows) > 0 {
		return f.cfg.Follows, nil
	}
	if f.cfg.PubKey == "" {
		return nil, nil
	}

	newest, err := f.store.ReadContactList(f.cfg.PubKey)
	if err != nil {
		newest = nil
	}
	fetched, err := f.fetchContactList(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		f.log.Warn().Err(err).Msg("could not fetch contact list")
	}
	if fetched != nil && (newest == nil || fetched.CreatedAt > newest.CreatedAt) {
		newest = fetched
	}
	if newest == nil {
		f.log.Warn().Str("pubkey", domain.ShortKey(f.cfg.PubKey)).Msg("no contact list found, reading the global feed")
		return nil, nil
	}
	return ContactsOf(*newest), nil
}

// fetchContactList waits for every relay to answer the contact list request,
// or for the timeout.
func (f *Feed) fetchContactList(ctx context.Context) (*domain.Event, error) {
	id, err := f.subscribe(ctx, domain.HomeTab(), purposeContacts, ContactListFilter(f.cfg.PubKey))
	if err != nil {
		return nil, err
	}
	defer f.closeSubscription(ctx, id, true)

	timer := time.NewTimer(f.cfg.ContactListTimeout)
	defer timer.Stop()

	var newest *domain.Event
	for {
		select {
		case env := <-f.incoming:
			if env.SubscriptionID != id {
				continue
			}
			switch env.Type {
			case EnvelopeEvent:
				ev := *env.Event
				if ev.Kind != domain.KindContactList || ev.PubKey != f.cfg.PubKey {
					continue
				}
				if err := ev.VerifyID(); err != nil {
					f.log.Debug().Err(err).Str("relay", env.Relay).Msg("dropping contact list")
					continue
				}
				if err := f.store.SaveEvent(ev); err != nil {
					f.log.Warn().Err(err).Msg("could not cache contact list")
				}
				if newest == nil || ev.CreatedAt > newest.CreatedAt {
					newest = &ev
				}
			case EnvelopeEOSE, EnvelopeClosed:
				if f.markDone(id, env.Relay) {
					return newest, nil
				}
			}
		case url := <-f.disconnected:
			f.dropClient(url)
			if f.connected() == 0 {
				return newest, fmt.Errorf("%w: all relays disconnected", ErrNotConnected)
			}
			if f.markDone(id, url) {
				return newest, nil
			}
		case <-timer.C:
			f.log.Warn().Dur("timeout", f.cfg.ContactListTimeout).Msg("contact list request timed out")
			return newest, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (f *Feed) markDone(id, relay string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return true
	}
	delete(sub.pending, relay)
	return len(sub.pending) == 0
}

// ContactsOf returns the followed keys listed in a contact list event.
func ContactsOf(ev domain.Event) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, tag := range ev.Tags {
		if tag.Key() != domain.TagPubKey || tag.Value() == "" {
			continue
		}
		if _, dup := seen[tag.Value()]; dup {
			continue
		}
		seen[tag.Value()] = struct{}{}
		keys = append(keys, tag.Value())
	}
	return keys
}

func (f *Feed) wantProfile(ctx context.Context, pubkey string) {
	f.mu.Lock()
	if _, ok := f.requested[pubkey]; ok {
		f.mu.Unlock()
		return
	}
	f.requested[pubkey] = struct{}{}
	f.profileQ = append(f.profileQ, pubkey)
	full := len(f.profileQ) >= profileBatchSize
	f.mu.Unlock()

	if full {
		f.flushProfiles(ctx)
	}
}

func (f *Feed) markRequested(pubkeys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pk := range pubkeys {
		f.requested[pk] = struct{}{}
	}
}

func (f *Feed) flushProfiles(ctx context.Context) {
	f.mu.Lock()
	authors := f.profileQ
	f.profileQ = nil
	f.mu.Unlock()

	if len(authors) == 0 {
		return
	}
	if _, err := f.subscribe(ctx, domain.HomeTab(), purposeProfiles, ProfileFilter(authors)); err != nil {
		f.log.Warn().Err(err).Int("authors", len(authors)).Msg("could not request profiles")
	}
}

// emit queues an update produced while handling an envelope.
func (f *Feed) emit(u Update) {
	f.backlog = append(f.backlog, u)
}

// push queues an update from outside the Next goroutine.
func (f *Feed) push(u Update) {
	select {
	case f.updates <- u:
	default:
		f.log.Warn().Msg("update buffer full, dropping update")
	}
}

func (f *Feed) lookup(id string) *subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[id]
}

func (f *Feed) addClient(ctx context.Context, c *Client) {
	f.mu.Lock()
	f.clients[c.URL()] = c
	f.mu.Unlock()

	go func() {
		for env := range c.Envelopes() {
			select {
			case f.incoming <- env:
			case <-ctx.Done():
				return
			case <-f.closed:
				return
			}
		}
		select {
		case f.disconnected <- c.URL():
		case <-ctx.Done():
		case <-f.closed:
		}
	}()
}

// dropClient forgets a dead relay and completes whatever it was still
// expected to answer.
func (f *Feed) dropClient(url string) {
	f.mu.Lock()
	delete(f.clients, url)
	var finished []*subscription
	for _, sub := range f.subs {
		if _, ok := sub.pending[url]; !ok {
			continue
		}
		delete(sub.pending, url)
		if len(sub.pending) == 0 && sub.purpose != purposeContacts {
			finished = append(finished, sub)
		}
	}
	f.mu.Unlock()

	f.log.Warn().Str("relay", url).Msg("relay disconnected")
	for _, sub := range finished {
		f.complete(context.Background(), sub, true)
	}
}

func (f *Feed) connected() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) clientList() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	clients := make([]*Client, 0, len(f.clients))
	for _, c := range f.clients {
		clients = append(clients, c)
	}
	return clients
}
