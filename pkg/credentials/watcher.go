package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/cloudchat/pkg/logger"
)

// Watcher reports sign-in and sign-out for one backend by watching
// credentials.toml for a token appearing or disappearing.
type Watcher struct {
	source *TokenSource
	path   string
	logger *slog.Logger
}

// NewWatcher creates a watcher for target's token.
func NewWatcher(mgr *Manager, target string, log *slog.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		source: mgr.ForTarget(target),
		path:   mgr.GetTarget(),
		logger: log,
	}
}

// Run blocks until ctx is done, calling onChange with the new state each
// time the presence of a token changes. It does not report the initial
// state.
func (w *Watcher) Run(ctx context.Context, onChange func(signedIn bool)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating credentials watcher: %w", err)
	}
	defer fw.Close()

	// The file is replaced on save, so watch its directory.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching credentials dir: %w", err)
	}

	signedIn, _ := w.signedIn(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			now, ok := w.signedIn(ctx)
			if !ok || now == signedIn {
				continue
			}
			signedIn = now
			w.logger.Debug("credentials changed", "signed_in", signedIn)
			onChange(signedIn)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("credentials watcher error: %w", err)
		}
	}
}

// signedIn reports whether a token is present. ok is false when the file
// could not be read, e.g. half-written, and the previous state should stand.
func (w *Watcher) signedIn(ctx context.Context) (bool, bool) {
	tok, err := w.source.IDToken(ctx)
	if err != nil {
		w.logger.Debug("reading credentials", "error", err)
		return false, false
	}
	return tok != "", true
}
