package timeline

import "github.com/deemkeen/nostrodon/domain"

// Store holds every note seen in the session, once, keyed by id. Tabs refer to
// notes by id only. Nothing is ever removed.
type Store struct {
	notes map[string]*domain.TextNote
}

func NewStore() *Store {
	return &Store{notes: make(map[string]*domain.TextNote)}
}

// InsertOrGet returns the note stored under id, creating it with newNote only
// when absent. The second result reports whether it was created.
func (s *Store) InsertOrGet(id string, newNote func() *domain.TextNote) (*domain.TextNote, bool) {
	if note, ok := s.notes[id]; ok {
		return note, false
	}
	note := newNote()
	s.notes[id] = note
	return note, true
}

// ApplyEngagement attaches ev to the note named by its last "e" tag. It
// returns false when the target has not arrived yet; the engagement is then
// dropped.
func (s *Store) ApplyEngagement(kind domain.EngagementKind, ev domain.Event) bool {
	target, ok := ev.LastEventRef()
	if !ok {
		return false
	}
	note, ok := s.notes[target]
	if !ok {
		return false
	}
	note.AddEngagement(kind, ev)
	return true
}

func (s *Store) Get(id string) (*domain.TextNote, bool) {
	note, ok := s.notes[id]
	return note, ok
}

func (s *Store) Len() int {
	return len(s.notes)
}
