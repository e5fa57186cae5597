package registry

import (
	"time"

	"github.com/google/uuid"
)

// Recording is one captured exchange
type Recording struct {
	ID       string    `json:"id"`
	Datetime time.Time `json:"datetime"`
	Method   string    `json:"method"`
	URL      string    `json:"url"`
	Status   int       `json:"status"`
	Body     string    `json:"body"`
}

// Unmatched is the recordings key for requests no mock matched
const Unmatched = "unmatched"

// Variables returns a copy of the variables of token
func (s *State) Variables(token string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyMap(s.variables[token])
}

// SetVariables adds or overwrites variables for token
func (s *State) SetVariables(token string, variables map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scoped, ok := s.variables[token]
	if !ok {
		scoped = map[string]string{}
		s.variables[token] = scoped
	}

	for name, value := range variables {
		scoped[name] = value
	}
}

// DeleteVariable removes a variable for token, reporting whether it existed
func (s *State) DeleteVariable(token, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	scoped, ok := s.variables[token]
	if !ok {
		return false
	}

	if _, ok := scoped[name]; !ok {
		return false
	}

	delete(scoped, name)

	return true
}

// Recording reports whether traffic is being captured
func (s *State) Recording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.record
}

// SetRecording turns capturing on or off for every client
func (s *State) SetRecording(record bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = record
}

// Record stores an exchange under key, filling in its id and time
func (s *State) Record(key string, r Recording) Recording {
	r.ID = uuid.New().String()
	if r.Datetime.IsZero() {
		r.Datetime = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordings[key] = append(s.recordings[key], r)

	return r
}

// Recordings returns every captured exchange by key
func (s *State) Recordings() map[string][]Recording {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recordings := make(map[string][]Recording, len(s.recordings))
	for key, r := range s.recordings {
		recordings[key] = append([]Recording(nil), r...)
	}

	return recordings
}
