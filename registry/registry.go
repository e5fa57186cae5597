// Package registry holds the state shared by the dispatcher and every handler: the mock catalog,
// default and selected scenarios, per session bookkeeping, variables and recordings.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/zerbitx/apimock/spec"
)

type (
	// State is the shared configuration. An empty token addresses the anonymous scope.
	State struct {
		mu         sync.RWMutex
		mocks      []*spec.Mock
		index      map[string]int
		selections map[string]string
		sessions   map[string]*Session
		defaults   map[string]string
		variables  map[string]map[string]string
		record     bool
		recordings map[string][]Recording
	}

	// Session tracks one client that identified itself with a token.
	// A selection holding PassThrough forwards the mock for this session only.
	Session struct {
		Selections map[string]string
		FirstSeen  time.Time
		LastSeen   time.Time
	}

	// IdentifierCollision is returned when a named mock and a derived identifier clash
	IdentifierCollision string

	// UnknownMock is returned when no registered mock has the identifier
	UnknownMock string

	// UnknownScenario is returned when a mock has no response under the key
	UnknownScenario string
)

// PassThrough is the selection meaning "do not mock, forward to the backend"
const PassThrough = "passThrough"

// Error implements the error interface
func (ic IdentifierCollision) Error() string {
	return fmt.Sprintf("identifier %s is used by a named and an unnamed mock", string(ic))
}

// Error implements the error interface
func (um UnknownMock) Error() string {
	return fmt.Sprintf("no mock matching identifier [%s] found", string(um))
}

// Error implements the error interface
func (us UnknownScenario) Error() string {
	return fmt.Sprintf("no scenario matching name [%s] found", string(us))
}

// New returns empty shared state
func New() *State {
	return &State{
		index:      map[string]int{},
		selections: map[string]string{},
		sessions:   map[string]*Session{},
		defaults:   map[string]string{},
		variables:  map[string]map[string]string{},
		recordings: map[string][]Recording{},
	}
}

// Identifier is the mock's name, or its expression and method joined by $$
func Identifier(m *spec.Mock) string {
	if m.Name != "" {
		return m.Name
	}

	return m.Expression + "$$" + m.Method
}

// RegisterMocks upserts each mock by identifier and seeds defaults from its first default response.
func (s *State) RegisterMocks(mocks ...*spec.Mock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range mocks {
		stored := m.Clone()
		stored.Identifier = Identifier(m)

		if i, ok := s.index[stored.Identifier]; ok {
			s.mocks[i] = stored
		} else {
			s.index[stored.Identifier] = len(s.mocks)
			s.mocks = append(s.mocks, stored)
		}

		for _, scenario := range stored.Responses {
			if scenario.Response.Default {
				s.defaults[stored.Identifier] = scenario.Key
				s.selections[stored.Identifier] = scenario.Key
				break
			}
		}
	}
}

// CheckIdentifiers reports mocks whose identifier would silently overwrite a mock of the other kind,
// a named mock against an unnamed one. Registered mocks and the incoming ones are both considered.
func (s *State) CheckIdentifiers(mocks ...*spec.Mock) error {
	s.mu.RLock()
	named := make(map[string]bool, len(s.mocks)+len(mocks))
	for _, m := range s.mocks {
		named[m.Identifier] = m.Name != ""
	}
	s.mu.RUnlock()

	for _, m := range mocks {
		id := Identifier(m)
		if wasNamed, ok := named[id]; ok && wasNamed != (m.Name != "") {
			return IdentifierCollision(id)
		}
		named[id] = m.Name != ""
	}

	return nil
}

// Mocks returns the catalog in registration order
func (s *State) Mocks() []*spec.Mock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mocks := make([]*spec.Mock, len(s.mocks))
	copy(mocks, s.mocks)

	return mocks
}

// Mock looks up a registered mock
func (s *State) Mock(identifier string) (*spec.Mock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[identifier]
	if !ok {
		return nil, false
	}

	return s.mocks[i], true
}

// Defaults returns a copy of the default scenario per mock
func (s *State) Defaults() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyMap(s.defaults)
}
