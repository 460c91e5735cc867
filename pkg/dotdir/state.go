package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	stateFile = "state.json"
)

// ChatState is what the chat command remembers between runs: the session
// that was current when it last exited, per backend.
type ChatState struct {
	// LastSessions maps an API target URL to a session id.
	LastSessions map[string]string `json:"last_sessions"`
}

// LastSession returns the remembered session id for target, or "".
func (s *ChatState) LastSession(target string) string {
	if s == nil {
		return ""
	}
	return s.LastSessions[target]
}

// SetLastSession remembers id for target. An empty id forgets it.
func (s *ChatState) SetLastSession(target, id string) {
	if id == "" {
		delete(s.LastSessions, target)
		return
	}
	if s.LastSessions == nil {
		s.LastSessions = make(map[string]string)
	}
	s.LastSessions[target] = id
}

// LoadChatState loads .cloudchat/state.json. A missing file yields an empty
// state.
func (m *Manager) LoadChatState(overrideDir string) (*ChatState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ChatState{}, nil
		}
		return nil, fmt.Errorf("reading chat state: %w", err)
	}

	state := &ChatState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing chat state: %w", err)
	}

	return state, nil
}

// SaveChatState persists state to .cloudchat/state.json.
func (m *Manager) SaveChatState(state *ChatState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil chat state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, stateFile), data, 0o600); err != nil {
		return fmt.Errorf("writing chat state: %w", err)
	}

	return nil
}
