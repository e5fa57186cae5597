package registry

import (
	"time"
)

// Selected returns the scenario token should be served for a mock. false means pass through.
func (s *State) Selected(token, identifier string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selected(token, identifier)
}

func (s *State) selected(token, identifier string) (string, bool) {
	if token == "" {
		key, ok := s.selections[identifier]
		return key, ok && key != PassThrough
	}

	if session, ok := s.sessions[token]; ok {
		if key, ok := session.Selections[identifier]; ok {
			return key, key != PassThrough
		}
	}

	key, ok := s.defaults[identifier]

	return key, ok
}

// Selections returns the scenario token is served for every mock that is not passed through
func (s *State) Selections(token string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	selections := map[string]string{}
	for _, m := range s.mocks {
		if key, ok := s.selected(token, m.Identifier); ok {
			selections[m.Identifier] = key
		}
	}

	return selections
}

// Select makes token get scenario for a mock. PassThrough is accepted for any mock.
func (s *State) Select(token, identifier, scenario string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[identifier]
	if !ok {
		return UnknownMock(identifier)
	}

	if scenario != PassThrough {
		if _, ok := s.mocks[i].Responses.Get(scenario); !ok {
			return UnknownScenario(scenario)
		}
	}

	if token == "" {
		s.selections[identifier] = scenario
		return nil
	}

	s.session(token).Selections[identifier] = scenario

	return nil
}

// Release drops the scenario token picked for a mock so its default applies again
func (s *State) Release(token, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[identifier]; !ok {
		return UnknownMock(identifier)
	}

	if token == "" {
		if key, ok := s.defaults[identifier]; ok {
			s.selections[identifier] = key
		} else {
			delete(s.selections, identifier)
		}
		return nil
	}

	if session, ok := s.sessions[token]; ok {
		delete(session.Selections, identifier)
	}

	return nil
}

// ResetToDefaults makes token get the default scenario of every mock
func (s *State) ResetToDefaults(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		s.selections = copyMap(s.defaults)
		return
	}

	s.session(token).Selections = map[string]string{}
}

// PassThroughAll forwards every mock for token
func (s *State) PassThroughAll(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		s.selections = map[string]string{}
		return
	}

	session := s.session(token)
	for _, m := range s.mocks {
		session.Selections[m.Identifier] = PassThrough
	}
}

// Touch records that token was seen
func (s *State) Touch(token string) {
	if token == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session(token).LastSeen = time.Now()
}

// Session returns a copy of the bookkeeping for token
func (s *State) Session(token string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}

	return Session{
		Selections: copyMap(session.Selections),
		FirstSeen:  session.FirstSeen,
		LastSeen:   session.LastSeen,
	}, true
}

// session returns the session for token, creating it. Callers hold the write lock.
func (s *State) session(token string) *Session {
	session, ok := s.sessions[token]
	if !ok {
		now := time.Now()
		session = &Session{Selections: map[string]string{}, FirstSeen: now, LastSeen: now}
		s.sessions[token] = session
	}

	return session
}

func copyMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}
