package session

import (
	"slices"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
)

// State is the cached state of one conversation.
type State struct {
	Messages    []chatapi.Message
	IsStreaming bool
}

func (s State) clone() State {
	return State{
		Messages:    slices.Clone(s.Messages),
		IsStreaming: s.IsStreaming,
	}
}

// lastAssistant reports whether the final message exists and was written by
// the assistant.
func (s State) lastAssistant() bool {
	return len(s.Messages) > 0 && s.Messages[len(s.Messages)-1].Role == chatapi.RoleAssistant
}

// Store maps session keys to conversation state. It holds at most one State
// per key and hands out copies only: every mutation replaces the entry with a
// new value, so a State obtained from Get never changes underneath its
// holder.
//
// Store is a single-writer structure and does no locking of its own; the
// Multiplexer serializes all access.
type Store struct {
	states map[Key]State
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		states: make(map[Key]State),
	}
}

// Get returns a copy of the state for key.
func (s *Store) Get(key Key) (State, bool) {
	st, ok := s.states[key]
	if !ok {
		return State{}, false
	}
	return st.clone(), true
}

// Has reports whether key has a state.
func (s *Store) Has(key Key) bool {
	_, ok := s.states[key]
	return ok
}

// Put replaces the state for key.
func (s *Store) Put(key Key, st State) {
	s.states[key] = st.clone()
}

// WithEntry applies fn to the state for key and stores the result. A missing
// entry is created empty first.
func (s *Store) WithEntry(key Key, fn func(State) State) {
	st := s.states[key]
	s.states[key] = fn(st.clone())
}

// Update applies fn to the state for key only if the entry exists. It
// reports whether fn ran.
func (s *Store) Update(key Key, fn func(State) State) bool {
	st, ok := s.states[key]
	if !ok {
		return false
	}
	s.states[key] = fn(st.clone())
	return true
}

// Migrate moves the state stored under from to to, replacing anything stored
// under to, and removes from. It reports whether an entry was moved.
func (s *Store) Migrate(from, to Key) bool {
	st, ok := s.states[from]
	if !ok {
		return false
	}
	delete(s.states, from)
	s.states[to] = st
	return true
}

// Delete removes the state for key.
func (s *Store) Delete(key Key) {
	delete(s.states, key)
}

// Len returns the number of cached states.
func (s *Store) Len() int {
	return len(s.states)
}

// Reset drops every state.
func (s *Store) Reset() {
	s.states = make(map[Key]State)
}
