package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeRelay answers REQs from a fixed event set: every matching stored event,
// then EOSE. EVENT frames are acknowledged with OK.
type fakeRelay struct {
	t      *testing.T
	server *httptest.Server

	writeMu sync.Mutex

	mu     sync.Mutex
	events []domain.Event
	frames []frame
	conns  []*websocket.Conn
}

type frame struct {
	Label   string
	SubID   string
	Filters []Filter
	Event   *domain.Event
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func newFakeRelay(t *testing.T, events ...domain.Event) *fakeRelay {
	t.Helper()
	r := &fakeRelay{t: t, events: events}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)
	return r
}

func (r *fakeRelay) URL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *fakeRelay) Close() {
	r.mu.Lock()
	for _, c := range r.conns {
		c.Close()
	}
	r.mu.Unlock()
	r.server.Close()
}

func (r *fakeRelay) serve(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.conns = append(r.conns, ws)
	r.mu.Unlock()
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		f, err := parseFrame(data)
		if err != nil {
			r.t.Logf("fake relay: %v", err)
			continue
		}
		r.mu.Lock()
		r.frames = append(r.frames, f)
		r.mu.Unlock()

		switch f.Label {
		case "REQ":
			for _, ev := range r.matching(f.Filters) {
				r.send(ws, []any{"EVENT", f.SubID, ev})
			}
			r.send(ws, []any{"EOSE", f.SubID})
		case "EVENT":
			r.send(ws, []any{"OK", f.Event.ID, true, ""})
		}
	}
}

func (r *fakeRelay) send(ws *websocket.Conn, msg []any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.t.Errorf("fake relay: %v", err)
		return
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	ws.WriteMessage(websocket.TextMessage, data)
}

func (r *fakeRelay) waitConns(n int) {
	r.t.Helper()
	require.Eventually(r.t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.conns) >= n
	}, 5*time.Second, 10*time.Millisecond)
}

// closes returns the subscription ids closed by the client so far.
func (r *fakeRelay) closes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.frames {
		if f.Label == "CLOSE" {
			out = append(out, f.SubID)
		}
	}
	return out
}

// sendAll pushes a raw message to every open connection.
func (r *fakeRelay) sendAll(msg []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		r.send(c, msg)
	}
}

func (r *fakeRelay) matching(filters []Filter) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, ev := range r.events {
		for _, f := range filters {
			if f.Matches(ev) {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// reqs returns the REQ frames received so far.
func (r *fakeRelay) reqs() []frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []frame
	for _, f := range r.frames {
		if f.Label == "REQ" {
			out = append(out, f)
		}
	}
	return out
}

func parseFrame(data []byte) (frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return frame{}, err
	}
	var f frame
	if err := json.Unmarshal(parts[0], &f.Label); err != nil {
		return frame{}, err
	}
	switch f.Label {
	case "REQ":
		if err := json.Unmarshal(parts[1], &f.SubID); err != nil {
			return frame{}, err
		}
		for _, raw := range parts[2:] {
			var filter Filter
			if err := json.Unmarshal(raw, &filter); err != nil {
				return frame{}, err
			}
			f.Filters = append(f.Filters, filter)
		}
	case "CLOSE":
		if err := json.Unmarshal(parts[1], &f.SubID); err != nil {
			return frame{}, err
		}
	case "EVENT":
		var ev domain.Event
		if err := json.Unmarshal(parts[1], &ev); err != nil {
			return frame{}, err
		}
		f.Event = &ev
	}
	return f, nil
}

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	events   map[string]domain.Event
	profiles map[string]*domain.Profile
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string]domain.Event), profiles: make(map[string]*domain.Profile)}
}

func (s *memStore) SaveEvent(ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
	return nil
}

func (s *memStore) UpsertProfile(p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.profiles[p.PubKey]; !ok || p.CreatedAt > old.CreatedAt {
		s.profiles[p.PubKey] = p
	}
	return nil
}

func (s *memStore) ReadContactList(pubkey string) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *domain.Event
	for _, ev := range s.events {
		if ev.Kind == domain.KindContactList && ev.PubKey == pubkey && (newest == nil || ev.CreatedAt > newest.CreatedAt) {
			ev := ev
			newest = &ev
		}
	}
	if newest == nil {
		return nil, errNoContacts
	}
	return newest, nil
}

func (s *memStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.events[id]
	return ok
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errNoContacts = storeError("no contact list")

// sealed sets ev.ID to the hash of its content, as a relay would deliver it.
func sealed(t *testing.T, ev domain.Event) domain.Event {
	t.Helper()
	id, err := ev.ComputeID()
	require.NoError(t, err)
	ev.ID = id
	return ev
}

// note returns a text note whose content is "note <label>".
func note(t *testing.T, label, author string, createdAt domain.Timestamp) domain.Event {
	t.Helper()
	return sealed(t, domain.Event{PubKey: author, CreatedAt: createdAt, Kind: domain.KindTextNote, Content: "note " + label})
}
