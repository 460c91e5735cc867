package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/cloudchat/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// TokenEnvVar overrides the stored token for every target.
	TokenEnvVar = "CLOUDCHAT_TOKEN"
)

// Manager manages reading and writing credentials.toml in the .cloudchat/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .cloudchat/ directory; otherwise the standard dotdir resolution
// applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Targets: make(map[string]TargetCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Targets == nil {
		creds.Targets = make(map[string]TargetCredential)
	}

	return creds, nil
}

// Save atomically replaces credentials.toml, with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	return writeFileAtomic(m.targetPath, buf.Bytes())
}

// writeFileAtomic replaces path with data via a 0600 temp file in the same
// directory, so readers never observe a truncated file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+credentialsFile+"-*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetToken stores the bearer token for the given backend URL.
func (m *Manager) SetToken(target, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Targets[normalizeTarget(target)] = TargetCredential{Token: token}

	return m.Save(creds)
}

// GetToken returns the stored token for the given backend URL.
// Returns an empty string if no token is stored.
func (m *Manager) GetToken(target string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Targets[normalizeTarget(target)].Token, nil
}

// RemoveToken deletes the stored token for a backend URL.
func (m *Manager) RemoveToken(target string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Targets, normalizeTarget(target))

	return m.Save(creds)
}

// ListTargets returns the backend URLs that have stored tokens.
func (m *Manager) ListTargets() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(creds.Targets))
	for name := range creds.Targets {
		targets = append(targets, name)
	}

	sort.Strings(targets)

	return targets, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// ForTarget returns a token provider bound to one backend URL.
func (m *Manager) ForTarget(target string) *TokenSource {
	return &TokenSource{mgr: m, target: target}
}

// TokenSource supplies the bearer token for one backend. The file is read on
// every call, so tokens written by another process are picked up.
type TokenSource struct {
	mgr    *Manager
	target string
}

// IDToken returns the token from TokenEnvVar, else the stored one. An empty
// string means the user is not signed in.
func (s *TokenSource) IDToken(_ context.Context) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnvVar)); tok != "" {
		return tok, nil
	}
	return s.mgr.GetToken(s.target)
}

func normalizeTarget(target string) string {
	return strings.TrimRight(strings.TrimSpace(target), "/")
}
