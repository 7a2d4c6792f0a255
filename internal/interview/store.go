package interview

import (
	"sort"
	"sync"
)

// Store maps client identities to their live session. The map lock only
// covers insert/lookup/remove; transitions are serialized by each session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	gen      Generator
}

func NewStore(gen Generator) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		gen:      gen,
	}
}

// Create installs a fresh session for clientID. An existing session is
// discarded and replaced.
func (s *Store) Create(clientID string, p Params) *Session {
	sess := New(s.gen, p)

	s.mu.Lock()
	prev := s.sessions[clientID]
	s.sessions[clientID] = sess
	s.mu.Unlock()

	if prev != nil {
		prev.Discard()
	}
	return sess
}

func (s *Store) Get(clientID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[clientID]
	s.mu.RUnlock()

	if !ok || sess.Discarded() {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete discards and removes the session for clientID. It is a no-op when
// none exists.
func (s *Store) Delete(clientID string) {
	s.mu.Lock()
	sess, ok := s.sessions[clientID]
	delete(s.sessions, clientID)
	s.mu.Unlock()

	if ok {
		sess.Discard()
	}
}

// DeleteSession removes sess only if it is still the session installed for
// clientID, so a late result never evicts a newer session.
func (s *Store) DeleteSession(clientID string, sess *Session) bool {
	s.mu.Lock()
	cur, ok := s.sessions[clientID]
	if ok && cur == sess {
		delete(s.sessions, clientID)
	}
	s.mu.Unlock()

	sess.Discard()
	return ok && cur == sess
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) List() []Info {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	sessions := make(map[string]*Session, len(s.sessions))
	for id, sess := range s.sessions {
		ids = append(ids, id)
		sessions[id] = sess
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		sess := sessions[id]
		infos = append(infos, Info{
			ClientID:       id,
			Status:         sess.Status(),
			QuestionNumber: sess.QuestionNumber(),
			MaxQuestions:   sess.MaxQuestions(),
		})
	}
	return infos
}

// Close discards every session.
func (s *Store) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Discard()
	}
}
